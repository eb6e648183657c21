package alignment

import (
	"time"

	"gorm.io/datatypes"
)

// SurveyDocument is a published, immutable survey definition.
type SurveyDocument struct {
	Version     string         `gorm:"column:version;primaryKey" json:"version"`
	Title       string         `gorm:"column:title" json:"title"`
	Document    datatypes.JSON `gorm:"column:document;not null" json:"document"`
	Checksum    string         `gorm:"column:checksum;not null" json:"checksum"`
	PublishedAt time.Time      `gorm:"column:published_at;not null" json:"published_at"`
}

func (SurveyDocument) TableName() string { return "survey_document" }
