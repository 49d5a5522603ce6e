package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "storage:\n  mode: memory\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Storage.UseMemory() {
		t.Error("expected memory storage mode")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Address() != "0.0.0.0:8080" {
		t.Errorf("unexpected server address %q", cfg.Server.Address())
	}
	if cfg.Dedup.Window != 5*time.Minute {
		t.Errorf("expected default dedup window 5m, got %s", cfg.Dedup.Window)
	}
	if cfg.Kafka.Topic != "opssight-alert-events" {
		t.Errorf("unexpected default kafka topic %q", cfg.Kafka.Topic)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Errorf("unexpected default redis address %q", cfg.Redis.Addr())
	}
	if cfg.Notification.Email.Port != 587 {
		t.Errorf("expected default smtp port 587, got %d", cfg.Notification.Email.Port)
	}
	if cfg.Logger.Level != "info" || cfg.Logger.Format != "json" {
		t.Errorf("unexpected default logger settings: %+v", cfg.Logger)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
storage:
  mode: storage
server:
  host: 10.0.0.5
  port: 9090
postgres:
  host: db.internal
  database: opssight
dedup:
  window: 10m
security:
  github_secret: gh-secret
logger:
  level: debug
  format: text
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Storage.UseStorage() {
		t.Error("expected storage mode")
	}
	if cfg.Server.Address() != "10.0.0.5:9090" {
		t.Errorf("unexpected server address %q", cfg.Server.Address())
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Database != "opssight" {
		t.Errorf("unexpected postgres settings: %+v", cfg.Postgres)
	}
	// Unset postgres fields still get defaults.
	if cfg.Postgres.Port != 5432 || cfg.Postgres.SSLMode != "disable" {
		t.Errorf("expected postgres defaults for unset fields: %+v", cfg.Postgres)
	}
	if cfg.Dedup.Window != 10*time.Minute {
		t.Errorf("expected 10m dedup window, got %s", cfg.Dedup.Window)
	}
	if cfg.Security.GitHubSecret != "gh-secret" {
		t.Errorf("unexpected github secret %q", cfg.Security.GitHubSecret)
	}
	if cfg.Logger.Level != "debug" || cfg.Logger.Format != "text" {
		t.Errorf("unexpected logger settings: %+v", cfg.Logger)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	if _, err := Load(writeConfig(t, "storage: [not a mapping")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if !cfg.Storage.Mode.IsValid() {
		t.Errorf("default storage mode %q is invalid", cfg.Storage.Mode)
	}
	if !cfg.Storage.UseMemory() {
		t.Error("expected default config to run in memory mode")
	}
	if cfg.Server.ReadTimeout == 0 || cfg.Server.WriteTimeout == 0 {
		t.Error("expected default server timeouts to be set")
	}
}
