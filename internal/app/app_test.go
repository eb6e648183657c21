package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

func setMemoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("SURVEY_DIR", filepath.Join("..", "survey", "testdata"))
	t.Setenv("DEFAULT_SURVEY_VERSION", "civic-2024")
	t.Setenv("JWT_SECRET_KEY", "app-test-secret")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("OTEL_ENABLED", "false")
}

func TestNewWiresMemoryApp(t *testing.T) {
	setMemoryEnv(t)
	a, err := New(context.Background(), logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	for _, path := range []string{"/healthcheck", "/api/surveys", "/api/surveys/civic-2024", "/metrics"} {
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: want=200 got=%d body=%s", path, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/topic-scores?version=civic-2024", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("protected route without token: want=401 got=%d", rec.Code)
	}
}

func TestNewRejectsUnknownDefaultVersion(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("DEFAULT_SURVEY_VERSION", "nope-1999")
	if _, err := New(context.Background(), logger.Nop()); err == nil {
		t.Fatalf("expected error for unknown default survey version")
	}
}

func TestOpenStorageSQLiteMigrates(t *testing.T) {
	cfg := Config{DBDriver: DriverSQLite, SQLitePath: ":memory:"}
	st, err := OpenStorage(context.Background(), cfg, logger.Nop(), true)
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	defer st.Close()
	if !st.DB.Migrator().HasTable("alignment_group") {
		t.Fatalf("expected alignment_group table after migrate")
	}
	if st.Runner == nil || st.Repos.Groups == nil {
		t.Fatalf("storage not fully wired: %+v", st)
	}
}
