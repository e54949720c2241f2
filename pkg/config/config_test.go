package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != "localhost:8080" {
		t.Fatalf("address %q", cfg.Server.Address)
	}
	if cfg.Server.Engine != "nethttp" {
		t.Fatalf("engine %q", cfg.Server.Engine)
	}
	if cfg.Limits.MaxBodyBytes != 10<<20 {
		t.Fatalf("max body %d", cfg.Limits.MaxBodyBytes)
	}
	if cfg.Metrics.Address != "" {
		t.Fatalf("metrics address %q", cfg.Metrics.Address)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asgineerd.yaml")
	data := `
server:
  address: 0.0.0.0:9000
  engine: fasthttp
metrics:
  address: localhost:9100
limits:
  rps: 20
  burst: 40
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != "0.0.0.0:9000" || cfg.Server.Engine != "fasthttp" {
		t.Fatalf("server %+v", cfg.Server)
	}
	if cfg.Metrics.Address != "localhost:9100" {
		t.Fatalf("metrics %+v", cfg.Metrics)
	}
	if cfg.Limits.RPS != 20 || cfg.Limits.Burst != 40 {
		t.Fatalf("limits %+v", cfg.Limits)
	}
	// Values the file does not mention keep their defaults.
	if cfg.Limits.MaxBodyBytes != 10<<20 {
		t.Fatalf("max body %d", cfg.Limits.MaxBodyBytes)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log %+v", cfg.Log)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASGINEER_ADDR", "127.0.0.1:7000")
	t.Setenv("ASGINEER_MAX_BODY_BYTES", "1024")
	t.Setenv("ASGINEER_LOG_LEVEL", "warn")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != "127.0.0.1:7000" {
		t.Fatalf("address %q", cfg.Server.Address)
	}
	if cfg.Limits.MaxBodyBytes != 1024 {
		t.Fatalf("max body %d", cfg.Limits.MaxBodyBytes)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("level %q", cfg.Log.Level)
	}
}

func TestRejectsUnknownEngine(t *testing.T) {
	t.Setenv("ASGINEER_ENGINE", "gopher")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected engine error")
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}
