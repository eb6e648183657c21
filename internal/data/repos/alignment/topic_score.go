package alignment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

type TopicScoreRepo interface {
	Upsert(dbc dbctx.Context, rows []*types.TopicScoreUser) error
	ListByUserVersion(dbc dbctx.Context, userID uuid.UUID, version string) ([]*types.TopicScoreUser, error)
}

type topicScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicScoreRepo(db *gorm.DB, baseLog *logger.Logger) TopicScoreRepo {
	return &topicScoreRepo{db: db, log: baseLog.With("repo", "TopicScoreRepo")}
}

func (r *topicScoreRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *topicScoreRepo) Upsert(dbc dbctx.Context, rows []*types.TopicScoreUser) error {
	if len(rows) == 0 {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Context()).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"mean_score", "answered_count", "updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *topicScoreRepo) ListByUserVersion(dbc dbctx.Context, userID uuid.UUID, version string) ([]*types.TopicScoreUser, error) {
	out := []*types.TopicScoreUser{}
	if userID == uuid.Nil || version == "" {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Context()).
		Where("user_id = ? AND survey_version = ?", userID, version).
		Order("topic_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
