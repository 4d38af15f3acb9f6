package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name   string
		check  func(*Config) bool
		expect string
	}{
		{
			name:   "default mode is api",
			check:  func(c *Config) bool { return c.Mode == "api" },
			expect: "api",
		},
		{
			name:   "default host is 0.0.0.0",
			check:  func(c *Config) bool { return c.Host == "0.0.0.0" },
			expect: "0.0.0.0",
		},
		{
			name:   "default port is 8080",
			check:  func(c *Config) bool { return c.Port == 8080 },
			expect: "8080",
		},
		{
			name:   "default log level is info",
			check:  func(c *Config) bool { return c.LogLevel == "info" },
			expect: "info",
		},
		{
			name:   "default log format is json",
			check:  func(c *Config) bool { return c.LogFormat == "json" },
			expect: "json",
		},
		{
			name:   "default metrics path",
			check:  func(c *Config) bool { return c.MetricsPath == "/metrics" },
			expect: "/metrics",
		},
		{
			name:   "listen addr format",
			check:  func(c *Config) bool { return c.ListenAddr() == "0.0.0.0:8080" },
			expect: "0.0.0.0:8080",
		},
		{
			name:   "default webhook retry attempts",
			check:  func(c *Config) bool { return c.WebhookRetryAttempts == 3 },
			expect: "3",
		},
		{
			name:   "default dlq max attempts",
			check:  func(c *Config) bool { return c.DLQMaxAttempts == 10 },
			expect: "10",
		},
		{
			name:   "default alert rate limit per endpoint",
			check:  func(c *Config) bool { return c.AlertRateLimitPerEndpoint == 50 },
			expect: "50",
		},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("expected %s", tt.expect)
			}
		})
	}
}

func TestValidateRejectsNonPositiveInts(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero queue size", func(c *Config) { c.AISMaxQueueSize = 0 }},
		{"negative hash set size", func(c *Config) { c.AISMaxHashSetSize = -1 }},
		{"zero webhook retry attempts", func(c *Config) { c.WebhookRetryAttempts = 0 }},
		{"zero dlq max attempts", func(c *Config) { c.DLQMaxAttempts = 0 }},
		{"zero dedupe ttl", func(c *Config) { c.AlertDedupeTTLHours = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	cfg.Mode = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown mode, got nil")
	}
}
