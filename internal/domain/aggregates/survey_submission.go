package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/commonground-backend/internal/domain/alignment"
)

var SurveySubmissionAggregateContract = Contract{
	Name:             "CommonGround.SurveySubmission",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Responses and the topic scores derived from them commit together or not at all.",
}

// SurveySubmissionAggregate persists one user's validated survey batch.
//
// Write failures return *aggregates.Error with codes:
// CodeValidation, CodeInvariantViolation, CodeConflict, CodeRetryable, CodeInternal.
type SurveySubmissionAggregate interface {
	Aggregate

	// Submit upserts the batch's responses and the touched topics' scores in one transaction.
	Submit(ctx context.Context, in SubmitSurveyInput) (SubmitSurveyResult, error)
}

type SubmitSurveyInput struct {
	UserID        uuid.UUID
	SurveyVersion string
	Responses     []*alignment.Response
	// TopicScores are the batch-local means; with MergeStored they are
	// replaced by means recomputed from all stored responses of the touched topics.
	TopicScores []*alignment.TopicScoreUser
	Merge       alignment.MergePolicy
	SubmittedAt time.Time
}

type SubmitSurveyResult struct {
	ResponsesWritten int
	TopicScores      []*alignment.TopicScoreUser
	CommittedAt      time.Time
}
