// Package config loads the configuration for the asgineerd binary from
// a YAML file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the asgineerd configuration.
type Config struct {
	Server struct {
		// Address is host:port to listen on.
		Address string `yaml:"address"`
		// Engine selects the host runtime: "nethttp" (default) or
		// "fasthttp". The fasthttp engine does not serve websockets.
		Engine string `yaml:"engine"`
		TLS    struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Metrics struct {
		// Address for the prometheus exposition endpoint; empty
		// disables metrics.
		Address string `yaml:"address"`
	} `yaml:"metrics"`
	Limits struct {
		RPS          float64 `yaml:"rps"`
		Burst        int     `yaml:"burst"`
		MaxBodyBytes int64   `yaml:"max_body_bytes"`
	} `yaml:"limits"`
	Assets struct {
		// Dir is a directory whose files are loaded into memory and
		// served at /assets/<name>. Empty disables asset serving.
		Dir    string `yaml:"dir"`
		MaxAge int    `yaml:"max_age"`
	} `yaml:"assets"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Address = "localhost:8080"
	cfg.Server.Engine = "nethttp"
	cfg.Limits.MaxBodyBytes = 10 << 20
	return cfg
}

// Load reads path (when non-empty) over the defaults and then applies
// environment overrides: ASGINEER_ADDR, ASGINEER_ENGINE,
// ASGINEER_METRICS_ADDR, ASGINEER_MAX_BODY_BYTES, ASGINEER_LOG_LEVEL.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(cfg)
	if cfg.Server.Engine != "nethttp" && cfg.Server.Engine != "fasthttp" {
		return nil, fmt.Errorf("unknown server engine %q", cfg.Server.Engine)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ASGINEER_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("ASGINEER_ENGINE"); v != "" {
		cfg.Server.Engine = v
	}
	if v := os.Getenv("ASGINEER_METRICS_ADDR"); v != "" {
		cfg.Metrics.Address = v
	}
	if v := os.Getenv("ASGINEER_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Limits.MaxBodyBytes = n
		}
	}
	if v := os.Getenv("ASGINEER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
