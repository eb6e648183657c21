package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/commonground-backend/internal/data/repos"
	domainagg "github.com/yungbote/commonground-backend/internal/domain/aggregates"
	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/modules/commonground"
	"github.com/yungbote/commonground-backend/internal/observability"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/survey"
)

type SubmitResult struct {
	Accepted    int
	Skipped     int
	TopicScores []*alignment.TopicScoreUser
}

type SurveyService interface {
	Submit(ctx context.Context, userID uuid.UUID, version string, answers []commonground.Answer) (SubmitResult, error)
	TopicScores(ctx context.Context, userID uuid.UUID, version string) ([]*alignment.TopicScoreUser, error)
	Get(ctx context.Context, version string) (*survey.Definition, error)
	List(ctx context.Context) ([]survey.Summary, error)
	Publish(ctx context.Context, def *survey.Definition) (bool, error)
}

type SurveyServiceDeps struct {
	Provider    survey.Provider
	Submissions domainagg.SurveySubmissionAggregate
	Documents   domainagg.SurveyDocumentAggregate
	TopicScores repos.TopicScoreRepo
	Merge       alignment.MergePolicy
	Metrics     *observability.Metrics
	Now         func() time.Time
}

type surveyService struct {
	log  *logger.Logger
	deps SurveyServiceDeps
}

func NewSurveyService(baseLog *logger.Logger, deps SurveyServiceDeps) SurveyService {
	if deps.Merge == "" {
		deps.Merge = alignment.MergeStored
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &surveyService{log: baseLog.With("service", "SurveyService"), deps: deps}
}

// resolveVersion maps an unknown version to a not_found aggregate error.
func resolveVersion(ctx context.Context, provider survey.Provider, op, version string) (*survey.Definition, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing survey version", nil)
	}
	def, err := provider.Get(ctx, version)
	if errors.Is(err, survey.ErrNotFound) {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("survey %q not found", version), ErrSurveyNotFound)
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

func (s *surveyService) Submit(ctx context.Context, userID uuid.UUID, version string, answers []commonground.Answer) (SubmitResult, error) {
	const op = "SurveyService.Submit"
	var out SubmitResult
	ctx, span := observability.StartSpan(ctx, op, attribute.String("survey.version", version), attribute.Int("survey.answers", len(answers)))
	defer span.End()

	if userID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user", nil)
	}
	if len(answers) == 0 {
		s.deps.Metrics.IncSubmission("rejected")
		return out, domainagg.NewError(domainagg.CodeValidation, op, "answers must not be empty", ErrEmptyBatch)
	}
	def, err := resolveVersion(ctx, s.deps.Provider, op, version)
	if err != nil {
		s.deps.Metrics.IncSubmission("rejected")
		return out, err
	}

	resolved := commonground.ResolveAnswers(s.log, def, answers)
	out.Accepted = len(resolved)
	out.Skipped = len(answers) - len(resolved)
	s.deps.Metrics.AddAnswersSkipped(out.Skipped)
	if len(resolved) == 0 {
		s.log.Warn("submission had no valid answers", "user_id", userID, "version", def.Version, "answers", len(answers))
		s.deps.Metrics.IncSubmission("empty")
		return out, nil
	}

	now := s.deps.Now().UTC()
	sub := commonground.BuildSubmission(userID, def.Version, resolved, now)
	res, err := s.deps.Submissions.Submit(ctx, domainagg.SubmitSurveyInput{
		UserID:        userID,
		SurveyVersion: def.Version,
		Responses:     sub.Responses,
		TopicScores:   sub.TopicScores,
		Merge:         s.deps.Merge,
		SubmittedAt:   now,
	})
	if err != nil {
		s.deps.Metrics.IncSubmission(string(domainagg.CodeOf(err)))
		s.log.Warn("survey submission failed", "user_id", userID, "version", def.Version, "error", err)
		return out, err
	}
	out.TopicScores = res.TopicScores
	s.deps.Metrics.IncSubmission("ok")
	s.log.Info("survey submitted",
		"user_id", userID,
		"version", def.Version,
		"responses", res.ResponsesWritten,
		"topics", len(res.TopicScores),
		"skipped", out.Skipped,
	)
	return out, nil
}

func (s *surveyService) TopicScores(ctx context.Context, userID uuid.UUID, version string) ([]*alignment.TopicScoreUser, error) {
	const op = "SurveyService.TopicScores"
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user", nil)
	}
	def, err := resolveVersion(ctx, s.deps.Provider, op, version)
	if err != nil {
		return nil, err
	}
	rows, err := s.deps.TopicScores.ListByUserVersion(dbctx.Context{Ctx: ctx}, userID, def.Version)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if rows == nil {
		rows = []*alignment.TopicScoreUser{}
	}
	return rows, nil
}

func (s *surveyService) Get(ctx context.Context, version string) (*survey.Definition, error) {
	return resolveVersion(ctx, s.deps.Provider, "SurveyService.Get", version)
}

func (s *surveyService) List(ctx context.Context) ([]survey.Summary, error) {
	return s.deps.Provider.List(ctx)
}

// Publish stores a validated definition. It reports false when the same
// content was already published under that version.
func (s *surveyService) Publish(ctx context.Context, def *survey.Definition) (bool, error) {
	const op = "SurveyService.Publish"
	if def == nil {
		return false, domainagg.NewError(domainagg.CodeValidation, op, "missing definition", nil)
	}
	if s.deps.Documents == nil {
		return false, domainagg.NewError(domainagg.CodeInternal, op, "survey document store not configured", nil)
	}
	doc, err := def.Canonical()
	if err != nil {
		return false, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	sum, err := def.Checksum()
	if err != nil {
		return false, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	res, err := s.deps.Documents.Publish(ctx, domainagg.PublishSurveyInput{
		Version:     def.Version,
		Title:       def.Title,
		Document:    doc,
		Checksum:    sum,
		PublishedAt: s.deps.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	s.log.Info("survey published", "version", def.Version, "created", res.Created)
	return res.Created, nil
}
