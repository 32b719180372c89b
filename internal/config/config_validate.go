// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDetection,
		c.validateModel,
		c.validateCheckpoint,
		c.validateNATS,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.MaxBodyBytes < 1024 {
		return fmt.Errorf("HTTP_MAX_BODY_BYTES must be at least 1024")
	}
	return nil
}

// validateDetection validates window and retention sizes
func (c *Config) validateDetection() error {
	d := c.Detection
	if d.RetentionCap < 1 {
		return fmt.Errorf("DETECTION_RETENTION_CAP must be positive")
	}
	if d.WindowSize < 1 || d.WindowSize > d.RetentionCap {
		return fmt.Errorf("DETECTION_WINDOW_SIZE must be between 1 and DETECTION_RETENTION_CAP (%d)", d.RetentionCap)
	}
	if d.Threshold < 0 {
		return fmt.Errorf("DETECTION_THRESHOLD must not be negative")
	}
	if d.DeviceRateLimit < 0 {
		return fmt.Errorf("DETECTION_DEVICE_RATE_LIMIT must not be negative")
	}
	if d.DeviceRateLimit > 0 && d.DeviceRateBurst < 1 {
		return fmt.Errorf("DETECTION_DEVICE_RATE_BURST must be at least 1 when rate limiting is enabled")
	}
	if d.MaxBatchEvents < 1 {
		return fmt.Errorf("DETECTION_MAX_BATCH_EVENTS must be positive")
	}
	return nil
}

// validateModel validates the network shape and optimizer settings
func (c *Config) validateModel() error {
	m := c.Model
	if m.HiddenSize < 1 || m.LatentSize < 1 || m.NumHeads < 1 {
		return fmt.Errorf("model sizes must be positive")
	}
	if m.HiddenSize%m.NumHeads != 0 {
		return fmt.Errorf("MODEL_HIDDEN_SIZE (%d) must be divisible by MODEL_NUM_HEADS (%d)", m.HiddenSize, m.NumHeads)
	}
	if m.LearningRate <= 0 || m.LearningRate > 1 {
		return fmt.Errorf("MODEL_LEARNING_RATE must be in (0, 1]")
	}
	if m.WeightDecay < 0 {
		return fmt.Errorf("MODEL_WEIGHT_DECAY must not be negative")
	}
	return nil
}

// validateCheckpoint validates checkpoint settings (only if enabled)
func (c *Config) validateCheckpoint() error {
	if !c.Checkpoint.Enabled {
		return nil
	}
	if c.Checkpoint.Path == "" && !c.Checkpoint.InMemory {
		return fmt.Errorf("CHECKPOINT_PATH is required when CHECKPOINT_ENABLED=true")
	}
	if c.Checkpoint.Interval < time.Second {
		return fmt.Errorf("CHECKPOINT_INTERVAL must be at least 1s")
	}
	if c.Checkpoint.KeepLast < 1 {
		return fmt.Errorf("CHECKPOINT_KEEP_LAST must be at least 1")
	}
	return nil
}

// NATS limit constants
const (
	natsMaxSubscribers = 32
	natsMinMemory      = 16 * 1024 * 1024 // 16MB
)

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	u, err := url.Parse(c.NATS.URL)
	if err != nil || (u.Scheme != "nats" && u.Scheme != "tls") || u.Host == "" {
		return fmt.Errorf("NATS_URL must be a nats:// or tls:// URL")
	}
	if c.NATS.BatchSubject == "" {
		return fmt.Errorf("NATS_BATCH_SUBJECT is required when NATS_ENABLED=true")
	}
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > natsMaxSubscribers {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and %d", natsMaxSubscribers)
	}
	if c.NATS.EmbeddedServer && c.NATS.MaxMemory < natsMinMemory {
		return fmt.Errorf("NATS_MAX_MEMORY must be at least 16MB")
	}
	return nil
}

// Rate limit bounds
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

var validAuthModes = map[string]bool{
	"none": true,
	"jwt":  true,
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt")
	}
	if c.Security.AuthMode == "jwt" {
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters when AUTH_MODE is jwt")
		}
	}
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "console": true,
}

// validateLogging validates the log level and format
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
