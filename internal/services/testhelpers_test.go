package services

import (
	"os"
	"strings"
	"testing"
)

func testRedisAddr(t *testing.T) string {
	t.Helper()
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	return addr
}
