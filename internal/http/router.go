package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/commonground-backend/internal/http/handlers"
	httpMW "github.com/yungbote/commonground-backend/internal/http/middleware"
	"github.com/yungbote/commonground-backend/internal/observability"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	TracingEnabled bool
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	SurveyHandler    *httpH.SurveyHandler
	AlignmentHandler *httpH.AlignmentHandler
	GroupHandler     *httpH.GroupHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		name := cfg.ServiceName
		if name == "" {
			name = "commonground"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Survey catalogue (public)
		if cfg.SurveyHandler != nil {
			api.GET("/surveys", cfg.SurveyHandler.List)
			api.GET("/surveys/:version", cfg.SurveyHandler.Get)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Surveys
		if cfg.SurveyHandler != nil {
			protected.POST("/surveys/submissions", cfg.SurveyHandler.Submit)
			protected.GET("/topic-scores", cfg.SurveyHandler.TopicScores)
		}

		// Alignment
		if cfg.AlignmentHandler != nil {
			protected.GET("/alignment/:otherUserId", cfg.AlignmentHandler.Compare)
		}

		// Groups
		if cfg.GroupHandler != nil {
			protected.POST("/groups", cfg.GroupHandler.Create)
			protected.POST("/groups/:groupId/join", cfg.GroupHandler.Join)
			protected.GET("/groups/:groupId/members", cfg.GroupHandler.Members)
			protected.GET("/groups/:groupId/alignment", cfg.GroupHandler.Alignment)
		}
	}

	return r
}
