package alignment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

type GroupRepo interface {
	Create(dbc dbctx.Context, g *types.Group) error
	// GetByID returns (nil, nil) when the group does not exist.
	GetByID(dbc dbctx.Context, id uint64) (*types.Group, error)
	// LockByID is GetByID with a row lock where the dialect supports one.
	LockByID(dbc dbctx.Context, id uint64) (*types.Group, error)
	ListByMember(dbc dbctx.Context, userID uuid.UUID) ([]*types.Group, error)
	// ListEmptyCreatedBefore returns groups with no member rows created before cutoff, oldest first.
	ListEmptyCreatedBefore(dbc dbctx.Context, cutoff time.Time, limit int) ([]*types.Group, error)
	DeleteByID(dbc dbctx.Context, id uint64) error
}

type groupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGroupRepo(db *gorm.DB, baseLog *logger.Logger) GroupRepo {
	return &groupRepo{db: db, log: baseLog.With("repo", "GroupRepo")}
}

func (r *groupRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *groupRepo) Create(dbc dbctx.Context, g *types.Group) error {
	if g == nil {
		return nil
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = g.CreatedAt
	}
	return r.dbx(dbc).WithContext(dbc.Context()).Create(g).Error
}

func (r *groupRepo) GetByID(dbc dbctx.Context, id uint64) (*types.Group, error) {
	return r.get(r.dbx(dbc).WithContext(dbc.Context()), id)
}

func (r *groupRepo) LockByID(dbc dbctx.Context, id uint64) (*types.Group, error) {
	return r.get(r.dbx(dbc).WithContext(dbc.Context()).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *groupRepo) get(q *gorm.DB, id uint64) (*types.Group, error) {
	if id == 0 {
		return nil, nil
	}
	var g types.Group
	if err := q.Where("id = ?", id).Take(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *groupRepo) ListByMember(dbc dbctx.Context, userID uuid.UUID) ([]*types.Group, error) {
	out := []*types.Group{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Context()).
		Joins("JOIN alignment_group_member m ON m.group_id = alignment_group.id").
		Where("m.user_id = ?", userID).
		Order("alignment_group.created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *groupRepo) ListEmptyCreatedBefore(dbc dbctx.Context, cutoff time.Time, limit int) ([]*types.Group, error) {
	out := []*types.Group{}
	if limit <= 0 {
		limit = 100
	}
	if err := r.dbx(dbc).WithContext(dbc.Context()).
		Where("created_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM alignment_group_member m WHERE m.group_id = alignment_group.id)").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *groupRepo) DeleteByID(dbc dbctx.Context, id uint64) error {
	if id == 0 {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Context()).
		Where("id = ?", id).
		Delete(&types.Group{}).Error
}
