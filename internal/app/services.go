package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/commonground-backend/internal/data/aggregates"
	"github.com/yungbote/commonground-backend/internal/observability"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/services"
	"github.com/yungbote/commonground-backend/internal/survey"
)

type Services struct {
	Auth      services.AuthService
	Surveys   services.SurveyService
	Alignment services.AlignmentService
	Groups    services.GroupService
}

// wireSurveyProvider serves SURVEY_DIR definitions first, then anything
// published into the store.
func wireSurveyProvider(ctx context.Context, log *logger.Logger, cfg Config, storage *Storage) (survey.Provider, error) {
	catalog, err := loadCatalog(log, cfg.SurveyDir)
	if err != nil {
		return nil, err
	}
	provider := survey.Chain{catalog, survey.NewStoreProvider(storage.Repos.SurveyDocuments, log)}

	if v := strings.TrimSpace(cfg.DefaultSurveyVersion); v != "" {
		if _, err := provider.Get(ctx, v); err != nil {
			return nil, fmt.Errorf("DEFAULT_SURVEY_VERSION %q: %w", v, err)
		}
	}
	return provider, nil
}

func loadCatalog(log *logger.Logger, dir string) (*survey.Catalog, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return survey.NewCatalog()
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		log.Warn("survey directory missing; serving published surveys only", "dir", dir)
		return survey.NewCatalog()
	}
	catalog, err := survey.LoadDir(dir, log)
	if err != nil {
		return nil, fmt.Errorf("load surveys from %s: %w", dir, err)
	}
	return catalog, nil
}

func wireServices(
	log *logger.Logger,
	cfg Config,
	storage *Storage,
	clients Clients,
	metrics *observability.Metrics,
	provider survey.Provider,
) Services {
	log.Info("Wiring services...")
	set := storage.Repos
	base := aggregates.BaseDeps{
		Log:    log,
		Runner: storage.Runner,
		Hooks:  aggregates.NewObservabilityHooks(metrics),
	}

	limiter := services.NewNoopJoinLimiter()
	if clients.Redis != nil && cfg.JoinRateLimit > 0 {
		limiter = services.NewRedisJoinLimiter(log, clients.Redis, cfg.JoinRateLimit, cfg.JoinRateWindow)
	}

	retry := aggregates.DefaultJoinRetry
	retry.MaxAttempts = cfg.JoinMaxAttempts

	return Services{
		Auth: services.NewAuthService(log, cfg.JWTSecretKey),
		Surveys: services.NewSurveyService(log, services.SurveyServiceDeps{
			Provider: provider,
			Submissions: aggregates.NewSurveySubmissionAggregate(aggregates.SurveySubmissionAggregateDeps{
				Base:        base,
				Responses:   set.Responses,
				TopicScores: set.TopicScores,
			}),
			Documents: aggregates.NewSurveyDocumentAggregate(aggregates.SurveyDocumentAggregateDeps{
				Base:      base,
				Documents: set.SurveyDocuments,
			}),
			TopicScores: set.TopicScores,
			Merge:       cfg.TopicScoreMerge,
			Metrics:     metrics,
		}),
		Alignment: services.NewAlignmentService(log, provider, set.TopicScores),
		Groups: services.NewGroupService(log, services.GroupServiceDeps{
			Provider:    provider,
			Groups:      set.Groups,
			Members:     set.GroupMembers,
			TopicScores: set.TopicScores,
			Aggregate: aggregates.NewGroupAggregate(aggregates.GroupAggregateDeps{
				Base:      base,
				JoinRetry: retry,
				Groups:    set.Groups,
				Members:   set.GroupMembers,
			}),
			Limiter:        limiter,
			Metrics:        metrics,
			DefaultVersion: cfg.DefaultSurveyVersion,
		}),
	}
}
