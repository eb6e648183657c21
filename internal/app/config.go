package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/commonground-backend/internal/clients/redis"
	"github.com/yungbote/commonground-backend/internal/data/db"
	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/observability"
	"github.com/yungbote/commonground-backend/internal/platform/envutil"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Port    string
	LogMode string

	DBDriver    string
	Postgres    db.PostgresConfig
	SQLitePath  string
	AutoMigrate bool

	JWTSecretKey string

	SurveyDir            string
	DefaultSurveyVersion string
	TopicScoreMerge      alignment.MergePolicy

	JoinMaxAttempts int
	JoinRateLimit   int
	JoinRateWindow  time.Duration

	Redis redis.Config

	MetricsEnabled     bool
	Otel               observability.OtelConfig
	CORSAllowedOrigins []string
}

// LoadDotEnv reads .env (or ENV_FILE) into the process environment if present.
// Variables already set win over file values.
func LoadDotEnv() error {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func LoadConfig(log *logger.Logger) (Config, error) {
	merge, ok := alignment.ParseMergePolicy(strings.ToLower(envutil.String("TOPIC_SCORE_MERGE", string(alignment.MergeStored), log)))
	if !ok {
		return Config{}, fmt.Errorf("TOPIC_SCORE_MERGE must be %q or %q", alignment.MergeStored, alignment.MergeBatch)
	}

	cfg := Config{
		Port:    envutil.String("PORT", "8080", log),
		LogMode: envutil.String("LOG_MODE", "development", log),

		DBDriver: strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres, log)),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost", log),
			Port:     envutil.String("POSTGRES_PORT", "5432", log),
			User:     envutil.String("POSTGRES_USER", "postgres", log),
			Password: envutil.String("POSTGRES_PASSWORD", "", log),
			Name:     envutil.String("POSTGRES_NAME", "commonground", log),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable", log),
		},
		SQLitePath:  envutil.String("SQLITE_PATH", "commonground.db", log),
		AutoMigrate: envutil.Bool("DB_AUTO_MIGRATE", true, log),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", "", log),

		SurveyDir:            envutil.String("SURVEY_DIR", "surveys", log),
		DefaultSurveyVersion: envutil.String("DEFAULT_SURVEY_VERSION", "", log),
		TopicScoreMerge:      merge,

		JoinMaxAttempts: envutil.Int("JOIN_MAX_ATTEMPTS", 3, log),
		JoinRateLimit:   envutil.Int("JOIN_RATE_LIMIT", 10, log),
		JoinRateWindow:  envutil.Duration("JOIN_RATE_WINDOW", time.Minute, log),

		Redis: redis.Config{
			Addr:     envutil.String("REDIS_ADDR", "", log),
			Password: envutil.String("REDIS_PASSWORD", "", log),
			DB:       envutil.Int("REDIS_DB", 0, log),
		},

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true, log),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "commonground", log),
			Environment: envutil.String("APP_ENV", "development", log),
			Version:     envutil.String("APP_VERSION", "dev", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: sampleRatio(envutil.String("OTEL_TRACES_SAMPLER_RATIO", "1", log)),
		},
		CORSAllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil, log),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER %q is not one of postgres, sqlite, memory", c.DBDriver)
	}
	if c.JoinMaxAttempts < 1 {
		return fmt.Errorf("JOIN_MAX_ATTEMPTS must be at least 1")
	}
	if c.JoinRateLimit < 0 {
		return fmt.Errorf("JOIN_RATE_LIMIT must not be negative")
	}
	if c.JoinRateLimit > 0 && c.JoinRateWindow <= 0 {
		return fmt.Errorf("JOIN_RATE_WINDOW must be positive when JOIN_RATE_LIMIT is set")
	}
	return nil
}

func sampleRatio(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 1
	}
	return v
}
