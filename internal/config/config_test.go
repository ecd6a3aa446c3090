package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDevelopmentAllowsMissingBackends(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Fatalf("expected empty backend URLs, got %q / %q", cfg.DatabaseURL, cfg.RedisURL)
	}
	if cfg.ReportMaxRetries != 3 || cfg.ReportRetryBackoff != 10*time.Second {
		t.Fatalf("unexpected retry defaults: %d / %s", cfg.ReportMaxRetries, cfg.ReportRetryBackoff)
	}
	if cfg.DBMaxConns != 10 || cfg.ConnectTimeout != 5*time.Second {
		t.Fatalf("unexpected pool defaults: %d / %s", cfg.DBMaxConns, cfg.ConnectTimeout)
	}
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/nile")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "REDIS_URL") {
		t.Fatalf("expected REDIS_URL error, got %v", err)
	}

	t.Setenv("REDIS_URL", "redis://localhost:6379")
	if _, err := Load(); err != nil {
		t.Fatalf("load with both URLs: %v", err)
	}
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	t.Setenv("DB_MAX_CONNS", "zero")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric DB_MAX_CONNS")
	}
	t.Setenv("DB_MAX_CONNS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero DB_MAX_CONNS")
	}
	t.Setenv("DB_MAX_CONNS", "25")

	t.Setenv("REPORT_MAX_RETRIES", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative REPORT_MAX_RETRIES")
	}
	t.Setenv("REPORT_MAX_RETRIES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBMaxConns != 25 || cfg.ReportMaxRetries != 5 {
		t.Fatalf("overrides not applied: %d / %d", cfg.DBMaxConns, cfg.ReportMaxRetries)
	}
}
