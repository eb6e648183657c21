package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/commonground-backend/internal/http"
	"github.com/yungbote/commonground-backend/internal/observability"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
	"github.com/yungbote/commonground-backend/internal/survey"
)

const redisStatsInterval = 15 * time.Second

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Storage  *Storage
	Clients  Clients
	Provider survey.Provider
	Services Services
	Metrics  *observability.Metrics
	Router   *gin.Engine

	shutdownOtel func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	mode := strings.TrimSpace(os.Getenv("LOG_MODE"))
	if mode == "" {
		mode = "development"
	}
	log, err := logger.New(mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// New wires the full service: storage, clients, services and the HTTP router.
func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		log.Warn("JWT_SECRET_KEY is empty; every authenticated request will be rejected")
	}
	if strings.EqualFold(cfg.LogMode, "production") || strings.EqualFold(cfg.LogMode, "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	a := &App{Log: log, Cfg: cfg}
	a.shutdownOtel = observability.InitOTel(ctx, log, cfg.Otel)
	if cfg.MetricsEnabled {
		a.Metrics = observability.New()
	}

	a.Storage, err = OpenStorage(ctx, cfg, log, cfg.AutoMigrate)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients, err = wireClients(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Provider, err = wireSurveyProvider(ctx, log, cfg, a.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Services = wireServices(log, cfg, a.Storage, a.Clients, a.Metrics, a.Provider)
	handlers := wireHandlers(log, a.Services)
	middleware := wireMiddleware(log, a.Services)
	a.Router = wireRouter(log, cfg, a.Metrics, handlers, middleware)
	return a, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis, redisStatsInterval)
	}
	addr := ":" + strings.TrimPrefix(a.Cfg.Port, ":")
	a.Log.Info("HTTP server listening", "addr", addr)
	return (&apphttp.Server{Engine: a.Router}).Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
		a.shutdownOtel = nil
	}
	a.Clients.Close()
	a.Storage.Close()
	a.Log.Sync()
}
