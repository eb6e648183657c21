package alignment

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

type SurveyDocumentRepo interface {
	Create(dbc dbctx.Context, doc *types.SurveyDocument) error
	// GetByVersion returns (nil, nil) when the version was never published.
	GetByVersion(dbc dbctx.Context, version string) (*types.SurveyDocument, error)
	List(dbc dbctx.Context) ([]*types.SurveyDocument, error)
}

type surveyDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSurveyDocumentRepo(db *gorm.DB, baseLog *logger.Logger) SurveyDocumentRepo {
	return &surveyDocumentRepo{db: db, log: baseLog.With("repo", "SurveyDocumentRepo")}
}

func (r *surveyDocumentRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *surveyDocumentRepo) Create(dbc dbctx.Context, doc *types.SurveyDocument) error {
	if doc == nil {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Context()).Create(doc).Error
}

func (r *surveyDocumentRepo) GetByVersion(dbc dbctx.Context, version string) (*types.SurveyDocument, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, nil
	}
	var doc types.SurveyDocument
	if err := r.dbx(dbc).WithContext(dbc.Context()).
		Where("version = ?", version).
		Take(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *surveyDocumentRepo) List(dbc dbctx.Context) ([]*types.SurveyDocument, error) {
	out := []*types.SurveyDocument{}
	if err := r.dbx(dbc).WithContext(dbc.Context()).
		Select("version", "title", "checksum", "published_at").
		Order("version ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
