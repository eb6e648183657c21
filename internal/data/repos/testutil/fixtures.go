package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/commonground-backend/internal/domain/alignment"
)

func SeedGroup(tb testing.TB, db *gorm.DB, owner uuid.UUID, code string, createdAt time.Time) *alignment.Group {
	tb.Helper()
	g := &alignment.Group{
		OwnerUserID:   owner,
		Nickname:      "Group",
		SurveyVersion: "civic-2024",
		GroupCode:     code,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := db.Create(g).Error; err != nil {
		tb.Fatalf("seed group: %v", err)
	}
	return g
}

func SeedMember(tb testing.TB, db *gorm.DB, groupID uint64, userID uuid.UUID, role string) *alignment.GroupMember {
	tb.Helper()
	m := &alignment.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := db.Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}
