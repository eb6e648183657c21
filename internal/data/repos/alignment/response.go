package alignment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

type ResponseRepo interface {
	Upsert(dbc dbctx.Context, rows []*types.Response) error
	ListByUserVersion(dbc dbctx.Context, userID uuid.UUID, version string) ([]*types.Response, error)
	ListByUserVersionTopics(dbc dbctx.Context, userID uuid.UUID, version string, topicIDs []string) ([]*types.Response, error)
}

type responseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return &responseRepo{db: db, log: baseLog.With("repo", "ResponseRepo")}
}

func (r *responseRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

// Upsert writes each row under its composite id; an existing row for the same
// question is replaced.
func (r *responseRepo) Upsert(dbc dbctx.Context, rows []*types.Response) error {
	if len(rows) == 0 {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Context()).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"topic_id", "option_id", "score", "answered_at",
			}),
		}).
		Create(&rows).Error
}

func (r *responseRepo) ListByUserVersion(dbc dbctx.Context, userID uuid.UUID, version string) ([]*types.Response, error) {
	out := []*types.Response{}
	if userID == uuid.Nil || version == "" {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Context()).
		Where("user_id = ? AND survey_version = ?", userID, version).
		Order("question_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *responseRepo) ListByUserVersionTopics(dbc dbctx.Context, userID uuid.UUID, version string, topicIDs []string) ([]*types.Response, error) {
	out := []*types.Response{}
	if userID == uuid.Nil || version == "" || len(topicIDs) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Context()).
		Where("user_id = ? AND survey_version = ? AND topic_id IN ?", userID, version, topicIDs).
		Order("topic_id ASC, question_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
