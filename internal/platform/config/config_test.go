package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:     "postgres://localhost/appraisal",
		Environment:     "development",
		MaxBodyBytes:    1048576,
		MaxImportBytes:  8388608,
		NotifyQueueSize: 16,
		TokenTTL:        time.Hour,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"missing database":   func(c *Config) { c.DatabaseURL = "" },
		"weak prod secret":   func(c *Config) { c.Environment = "production"; c.JWTSecret = "short" },
		"small body":         func(c *Config) { c.MaxBodyBytes = 10 },
		"import below body":  func(c *Config) { c.MaxImportBytes = 2048 },
		"email without smtp": func(c *Config) { c.EmailEnabled = true },
		"zero notify queue":  func(c *Config) { c.NotifyQueueSize = 0 },
		"non positive ttl":   func(c *Config) { c.TokenTTL = 0 },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9999")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("TOKEN_TTL", "30m")

	cfg := Load()
	if cfg.Addr != ":9999" {
		t.Fatalf("expected addr :9999, got %s", cfg.Addr)
	}
	if !cfg.EmailEnabled {
		t.Fatal("expected email enabled")
	}
	if cfg.SMTPPort != 587 {
		t.Fatalf("expected fallback smtp port, got %d", cfg.SMTPPort)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %s", cfg.TokenTTL)
	}
}
