package app

import (
	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/commonground-backend/internal/http"
	httpH "github.com/yungbote/commonground-backend/internal/http/handlers"
	httpMW "github.com/yungbote/commonground-backend/internal/http/middleware"
	"github.com/yungbote/commonground-backend/internal/observability"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Survey    *httpH.SurveyHandler
	Alignment *httpH.AlignmentHandler
	Group     *httpH.GroupHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(),
		Survey:    httpH.NewSurveyHandler(log, services.Surveys),
		Alignment: httpH.NewAlignmentHandler(log, services.Alignment),
		Group:     httpH.NewGroupHandler(log, services.Groups),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return apphttp.NewRouter(apphttp.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      cfg.Otel.ServiceName,
		TracingEnabled:   cfg.Otel.Enabled,
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AuthMiddleware:   middleware.Auth,
		HealthHandler:    handlers.Health,
		SurveyHandler:    handlers.Survey,
		AlignmentHandler: handlers.Alignment,
		GroupHandler:     handlers.Group,
	})
}
