package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
backend:
  url: https://api.maipocket.test
  timeout: 3s
redis:
  addr: localhost:6379
  ttl: 5m
local_store:
  engine: sqlite
  path: data/standings.db
media:
  parallelism: 6
auth:
  jwt_secret: s3cret
quiz:
  ranked_questions: 25
  time_limit: 12s
  life_pass: true
  result_retention: 2m
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Backend.URL != "https://api.maipocket.test" {
		t.Fatalf("unexpected server/backend: %+v %+v", cfg.Server, cfg.Backend)
	}
	if cfg.LocalStore.Engine != "sqlite" || cfg.Media.Parallelism != 6 {
		t.Fatalf("unexpected local store/media: %+v %+v", cfg.LocalStore, cfg.Media)
	}
	if cfg.Quiz.RankedQuestions != 25 || !cfg.Quiz.LifePass {
		t.Fatalf("unexpected quiz section: %+v", cfg.Quiz)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("unexpected auth section: %+v", cfg.Auth)
	}
	if got := TTLDuration(cfg.Quiz.ResultRetention, time.Minute); got != 2*time.Minute {
		t.Fatalf("expected 2m retention, got %s", got)
	}
	if got := TTLDuration(cfg.Quiz.TimeLimit, time.Second); got != 12*time.Second {
		t.Fatalf("expected 12s, got %s", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty: got %s", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("invalid: got %s", got)
	}
	if got := IntOr(0, 10); got != 10 {
		t.Fatalf("IntOr fallback: got %d", got)
	}
	if got := IntOr(3, 10); got != 3 {
		t.Fatalf("IntOr value: got %d", got)
	}
}
