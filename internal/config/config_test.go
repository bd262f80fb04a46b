package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  port: "9090"
  allowedOrigins: ["https://app.example"]
store:
  driver: postgres
postgres:
  url: postgres://quiz@localhost/quiz
redis:
  addr: localhost:6379
live:
  pollInterval: 15s
auth:
  secret: from-yaml
`

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AUTH_JWT_SECRET", "from-env")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Store.Driver != DriverPostgres || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Auth.Secret != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.Auth.Secret)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
	if got := TTLDuration(cfg.Live.PollInterval, time.Minute); got != 15*time.Second {
		t.Fatalf("unexpected poll interval %v", got)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("missing.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != DriverMemory || cfg.Mongo.Database != "quiz" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %v", got)
	}
}

func TestSampleConfigShipsNoAuthSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if cfg.Auth.Secret != "" {
		t.Fatalf("sample config must not carry a signing secret, got %q", cfg.Auth.Secret)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Fatalf("expected sample to default to memory, got %q", cfg.Store.Driver)
	}
}
