// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"window above cap", func(c *Config) { c.Detection.WindowSize = 1001 }, "DETECTION_WINDOW_SIZE"},
		{"window equals cap", func(c *Config) { c.Detection.WindowSize = 1000 }, ""},
		{"zero window", func(c *Config) { c.Detection.WindowSize = 0 }, "DETECTION_WINDOW_SIZE"},
		{"zero cap", func(c *Config) { c.Detection.RetentionCap = 0 }, "DETECTION_RETENTION_CAP"},
		{"negative threshold", func(c *Config) { c.Detection.Threshold = -1 }, "DETECTION_THRESHOLD"},
		{"rate limit without burst", func(c *Config) {
			c.Detection.DeviceRateLimit = 5
			c.Detection.DeviceRateBurst = 0
		}, "DETECTION_DEVICE_RATE_BURST"},
		{"heads do not divide hidden", func(c *Config) { c.Model.NumHeads = 5 }, "MODEL_NUM_HEADS"},
		{"zero learning rate", func(c *Config) { c.Model.LearningRate = 0 }, "MODEL_LEARNING_RATE"},
		{"checkpoint without path", func(c *Config) {
			c.Checkpoint.Enabled = true
			c.Checkpoint.Path = ""
		}, "CHECKPOINT_PATH"},
		{"checkpoint in memory", func(c *Config) {
			c.Checkpoint.Enabled = true
			c.Checkpoint.Path = ""
			c.Checkpoint.InMemory = true
		}, ""},
		{"checkpoint interval", func(c *Config) {
			c.Checkpoint.Enabled = true
			c.Checkpoint.Interval = time.Millisecond
		}, "CHECKPOINT_INTERVAL"},
		{"nats bad url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.URL = "http://localhost"
		}, "NATS_URL"},
		{"nats subscribers", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.SubscribersCount = 0
		}, "NATS_SUBSCRIBERS"},
		{"unknown auth mode", func(c *Config) { c.Security.AuthMode = "oidc" }, "AUTH_MODE"},
		{"jwt short secret", func(c *Config) {
			c.Security.AuthMode = "jwt"
			c.Security.JWTSecret = "short"
		}, "JWT_SECRET"},
		{"jwt ok", func(c *Config) {
			c.Security.AuthMode = "jwt"
			c.Security.JWTSecret = strings.Repeat("s", 32)
		}, ""},
		{"no auth in production", func(c *Config) { c.Server.Environment = "production" }, "AUTH_MODE=none"},
		{"rate limit window", func(c *Config) { c.Security.RateLimitWindow = time.Millisecond }, "RATE_LIMIT_WINDOW"},
		{"rate limit disabled skips bounds", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	for env, want := range map[string]bool{
		"production":  true,
		"PROD":        true,
		"development": false,
		"":            false,
	} {
		cfg := defaultConfig()
		cfg.Server.Environment = env
		if got := cfg.IsProduction(); got != want {
			t.Errorf("IsProduction(%q) = %v, want %v", env, got, want)
		}
	}
}
