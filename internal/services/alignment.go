package services

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/commonground-backend/internal/data/repos"
	domainagg "github.com/yungbote/commonground-backend/internal/domain/aggregates"
	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/modules/commonground"
	"github.com/yungbote/commonground-backend/internal/observability"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/survey"
)

type AlignmentService interface {
	Compare(ctx context.Context, userID, otherUserID uuid.UUID, version string) (commonground.PairwiseResult, error)
}

type alignmentService struct {
	log         *logger.Logger
	provider    survey.Provider
	topicScores repos.TopicScoreRepo
}

func NewAlignmentService(baseLog *logger.Logger, provider survey.Provider, topicScores repos.TopicScoreRepo) AlignmentService {
	return &alignmentService{
		log:         baseLog.With("service", "AlignmentService"),
		provider:    provider,
		topicScores: topicScores,
	}
}

// Compare reads both score sets concurrently outside any transaction.
func (s *alignmentService) Compare(ctx context.Context, userID, otherUserID uuid.UUID, version string) (commonground.PairwiseResult, error) {
	const op = "AlignmentService.Compare"
	var out commonground.PairwiseResult
	ctx, span := observability.StartSpan(ctx, op, attribute.String("survey.version", version))
	defer span.End()

	if userID == uuid.Nil || otherUserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user id", nil)
	}
	def, err := resolveVersion(ctx, s.provider, op, version)
	if err != nil {
		return out, err
	}

	var mine, theirs []*alignment.TopicScoreUser
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.topicScores.ListByUserVersion(dbctx.Context{Ctx: gctx}, userID, def.Version)
		mine = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.topicScores.ListByUserVersion(dbctx.Context{Ctx: gctx}, otherUserID, def.Version)
		theirs = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	out = commonground.Compare(mine, theirs)
	s.log.Debug("pairwise computed",
		"user_id", userID,
		"other_user_id", otherUserID,
		"version", def.Version,
		"shared", out.SharedTopics,
		"agreed", out.AgreedCount,
	)
	return out, nil
}
