package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/commonground-backend/internal/domain/alignment"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// =========================
		// Survey catalogue
		// =========================
		&alignment.SurveyDocument{},

		// =========================
		// User-owned scores
		// =========================
		&alignment.Response{},
		&alignment.TopicScoreUser{},

		// =========================
		// Groups
		// =========================
		&alignment.Group{},
		&alignment.GroupMember{},
	); err != nil {
		return err
	}
	return EnsureAlignmentIndexes(db)
}

// EnsureAlignmentIndexes adds the indexes gorm tags cannot express portably.
func EnsureAlignmentIndexes(db *gorm.DB) error {
	// One topic score per (user, version, topic) regardless of id formatting.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_topic_score_user_version_topic
		ON topic_score_user (user_id, survey_version, topic_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_topic_score_user_version_topic: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_survey_response_user_version_question
		ON survey_response (user_id, survey_version, question_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_survey_response_user_version_question: %w", err)
	}
	// Member listing per group in join order.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_alignment_group_member_group_joined
		ON alignment_group_member (group_id, joined_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_alignment_group_member_group_joined: %w", err)
	}
	return nil
}
