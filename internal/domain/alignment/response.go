package alignment

import (
	"time"

	"github.com/google/uuid"
)

// Response is one user's answer to one question of one survey version.
// Score is a snapshot of the chosen option's score at submission time.
type Response struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index:idx_response_user_version_topic,priority:1" json:"user_id"`
	SurveyVersion string    `gorm:"column:survey_version;not null;index:idx_response_user_version_topic,priority:2" json:"survey_version"`
	TopicID       string    `gorm:"column:topic_id;not null;index:idx_response_user_version_topic,priority:3" json:"topic_id"`
	QuestionID    string    `gorm:"column:question_id;not null" json:"question_id"`
	OptionID      string    `gorm:"column:option_id;not null" json:"option_id"`
	Score         int       `gorm:"column:score;not null" json:"score"`
	AnsweredAt    time.Time `gorm:"column:answered_at;not null" json:"answered_at"`
}

func (Response) TableName() string { return "survey_response" }
