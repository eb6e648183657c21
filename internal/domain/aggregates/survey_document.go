package aggregates

import (
	"context"
	"errors"
	"time"
)

var SurveyDocumentAggregateContract = Contract{
	Name:             "CommonGround.SurveyDocument",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyTableRepoQueries,
	Notes:            "A published version is immutable; republishing identical content is a no-op.",
}

var ErrSurveyVersionTaken = errors.New("survey version already published with different content")

type SurveyDocumentAggregate interface {
	Aggregate

	Publish(ctx context.Context, in PublishSurveyInput) (PublishSurveyResult, error)
}

type PublishSurveyInput struct {
	Version     string
	Title       string
	Document    []byte
	Checksum    string
	PublishedAt time.Time
}

type PublishSurveyResult struct {
	Created bool
}
