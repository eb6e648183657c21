package aggregates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/commonground-backend/internal/data/repos"
	domainagg "github.com/yungbote/commonground-backend/internal/domain/aggregates"
	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/modules/commonground"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
)

type SurveySubmissionAggregateDeps struct {
	Base BaseDeps

	Responses   repos.ResponseRepo
	TopicScores repos.TopicScoreRepo
}

type surveySubmissionAggregate struct {
	deps SurveySubmissionAggregateDeps
}

func NewSurveySubmissionAggregate(deps SurveySubmissionAggregateDeps) domainagg.SurveySubmissionAggregate {
	deps.Base = deps.Base.withDefaults()
	return &surveySubmissionAggregate{deps: deps}
}

func (a *surveySubmissionAggregate) Contract() domainagg.Contract {
	return domainagg.SurveySubmissionAggregateContract
}

func (a *surveySubmissionAggregate) Submit(ctx context.Context, in domainagg.SubmitSurveyInput) (domainagg.SubmitSurveyResult, error) {
	const op = "CommonGround.SurveySubmission.Submit"
	var out domainagg.SubmitSurveyResult
	version := strings.TrimSpace(in.SurveyVersion)
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if version == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing survey_version", nil)
	}
	if len(in.Responses) == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "no responses to submit", nil)
	}
	if a.deps.Responses == nil || a.deps.TopicScores == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "survey submission repos not configured", nil)
	}
	for _, r := range in.Responses {
		if r == nil {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "nil response in batch", nil)
		}
		if r.UserID != in.UserID || r.SurveyVersion != version {
			return out, domainagg.NewError(domainagg.CodeInvariantViolation, op,
				fmt.Sprintf("response %s does not belong to user/version of the batch", r.ID), nil)
		}
		if r.ID != alignment.ResponseKey(in.UserID, version, r.QuestionID) {
			return out, domainagg.NewError(domainagg.CodeInvariantViolation, op,
				fmt.Sprintf("response id %q is not the composite key of its question", r.ID), nil)
		}
	}

	merge := in.Merge
	if merge == "" {
		merge = alignment.MergeStored
	}
	now := utcOrNow(in.SubmittedAt)
	batchScores := in.TopicScores
	if len(batchScores) == 0 {
		batchScores = commonground.RecomputeTopicScores(in.UserID, version, in.Responses, now)
	}

	var written []*alignment.TopicScoreUser
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.deps.Responses.Upsert(dbc, in.Responses); err != nil {
			return err
		}
		scores := batchScores
		if merge == alignment.MergeStored {
			touched := commonground.Submission{TopicScores: batchScores}.TouchedTopics()
			stored, err := a.deps.Responses.ListByUserVersionTopics(dbc, in.UserID, version, touched)
			if err != nil {
				return err
			}
			scores = commonground.RecomputeTopicScores(in.UserID, version, stored, now)
		}
		for _, ts := range scores {
			if ts.ID != alignment.TopicScoreKey(in.UserID, version, ts.TopicID) {
				return InvariantError(fmt.Sprintf("topic score id %q is not the composite key of its topic", ts.ID))
			}
		}
		if err := a.deps.TopicScores.Upsert(dbc, scores); err != nil {
			return err
		}
		written = scores
		return nil
	})
	if err != nil {
		return out, err
	}
	out.ResponsesWritten = len(in.Responses)
	out.TopicScores = written
	out.CommittedAt = now
	return out, nil
}
