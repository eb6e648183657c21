package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/commonground-backend/internal/data/repos/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

type ResponseRepo = alignment.ResponseRepo
type TopicScoreRepo = alignment.TopicScoreRepo
type GroupRepo = alignment.GroupRepo
type GroupMemberRepo = alignment.GroupMemberRepo
type SurveyDocumentRepo = alignment.SurveyDocumentRepo

// Set is every table repo the service uses.
type Set struct {
	Responses       ResponseRepo
	TopicScores     TopicScoreRepo
	Groups          GroupRepo
	GroupMembers    GroupMemberRepo
	SurveyDocuments SurveyDocumentRepo
}

func NewGormSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Responses:       alignment.NewResponseRepo(db, log),
		TopicScores:     alignment.NewTopicScoreRepo(db, log),
		Groups:          alignment.NewGroupRepo(db, log),
		GroupMembers:    alignment.NewGroupMemberRepo(db, log),
		SurveyDocuments: alignment.NewSurveyDocumentRepo(db, log),
	}
}
