package alignment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

type GroupMemberRepo interface {
	// Create inserts a new membership; an existing (group, user) row is a
	// unique violation, never an update.
	Create(dbc dbctx.Context, m *types.GroupMember) error
	// Get returns (nil, nil) when the membership does not exist.
	Get(dbc dbctx.Context, groupID uint64, userID uuid.UUID) (*types.GroupMember, error)
	ListByGroup(dbc dbctx.Context, groupID uint64) ([]*types.GroupMember, error)
	CountByGroup(dbc dbctx.Context, groupID uint64) (int64, error)
}

type groupMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGroupMemberRepo(db *gorm.DB, baseLog *logger.Logger) GroupMemberRepo {
	return &groupMemberRepo{db: db, log: baseLog.With("repo", "GroupMemberRepo")}
}

func (r *groupMemberRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *groupMemberRepo) Create(dbc dbctx.Context, m *types.GroupMember) error {
	if m == nil {
		return nil
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	return r.dbx(dbc).WithContext(dbc.Context()).Create(m).Error
}

func (r *groupMemberRepo) Get(dbc dbctx.Context, groupID uint64, userID uuid.UUID) (*types.GroupMember, error) {
	if groupID == 0 || userID == uuid.Nil {
		return nil, nil
	}
	var m types.GroupMember
	if err := r.dbx(dbc).WithContext(dbc.Context()).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *groupMemberRepo) ListByGroup(dbc dbctx.Context, groupID uint64) ([]*types.GroupMember, error) {
	out := []*types.GroupMember{}
	if groupID == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Context()).
		Where("group_id = ?", groupID).
		Order("joined_at ASC, user_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *groupMemberRepo) CountByGroup(dbc dbctx.Context, groupID uint64) (int64, error) {
	var n int64
	if groupID == 0 {
		return 0, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Context()).
		Model(&types.GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
