package alignment

import (
	"time"

	"github.com/google/uuid"
)

// TopicScoreUser is the derived mean of a user's response scores for one
// topic of one survey version.
type TopicScoreUser struct {
	ID            string    `gorm:"column:id;primaryKey" json:"-"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index:idx_topic_score_user_version,priority:1" json:"-"`
	SurveyVersion string    `gorm:"column:survey_version;not null;index:idx_topic_score_user_version,priority:2" json:"-"`
	TopicID       string    `gorm:"column:topic_id;not null" json:"topicId"`
	MeanScore     float64   `gorm:"column:mean_score;not null" json:"meanScore"`
	AnsweredCount int       `gorm:"column:answered_count;not null" json:"answeredCount"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (TopicScoreUser) TableName() string { return "topic_score_user" }

// MergePolicy selects which responses feed a topic's mean when a submission
// touches only part of a topic.
type MergePolicy string

const (
	// MergeStored recomputes each touched topic from every stored response.
	MergeStored MergePolicy = "stored"
	// MergeBatch recomputes each touched topic from the current batch only.
	MergeBatch MergePolicy = "batch"
)

// ParseMergePolicy maps a config value to a policy; unknown values yield MergeStored.
func ParseMergePolicy(raw string) (MergePolicy, bool) {
	switch MergePolicy(raw) {
	case MergeStored, "":
		return MergeStored, true
	case MergeBatch:
		return MergeBatch, true
	default:
		return MergeStored, false
	}
}
