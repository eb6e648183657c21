package alignment

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Group is a small circle of users comparing themselves on one survey version.
// ID is assigned by the store on insert.
type Group struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OwnerUserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Nickname      string    `gorm:"column:nickname;not null" json:"nickname"`
	SurveyVersion string    `gorm:"column:survey_version;not null" json:"survey_version"`
	GroupCode     string    `gorm:"column:group_code;not null;uniqueIndex:idx_alignment_group_code" json:"-"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Group) TableName() string { return "alignment_group" }

func (g *Group) Key() string { return GroupKey(g.ID) }

// GroupMember is unique per (group, user); duplicate joins fail on the primary key.
type GroupMember struct {
	GroupID  uint64    `gorm:"column:group_id;primaryKey;autoIncrement:false" json:"group_id"`
	UserID   uuid.UUID `gorm:"type:uuid;column:user_id;primaryKey;index" json:"user_id"`
	Role     string    `gorm:"column:role;not null" json:"role"`
	Alias    string    `gorm:"column:alias" json:"alias"`
	JoinedAt time.Time `gorm:"column:joined_at;not null" json:"joined_at"`
}

func (GroupMember) TableName() string { return "alignment_group_member" }

func (m *GroupMember) Key() string { return GroupMemberKey(m.GroupID, m.UserID) }

// MemberKey identifies a GroupMember row.
type MemberKey struct {
	GroupID uint64
	UserID  uuid.UUID
}
