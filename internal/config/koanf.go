// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cadence/config.yaml",
	"/etc/cadence/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8420,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    8 << 20, // 8MB
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:                   "/data/cadence.duckdb",
			MaxMemory:              "1GB",
			Threads:                0, // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true,
		},
		Detection: DetectionConfig{
			WindowSize:      200,
			RetentionCap:    1000,
			Threshold:       0.01,
			DeviceIdleTTL:   30 * time.Minute,
			SweepInterval:   time.Minute,
			DeviceRateLimit: 0, // Disabled
			DeviceRateBurst: 10,
			MaxBatchEvents:  10000,
		},
		Model: ModelConfig{
			HiddenSize:   64,
			LatentSize:   16,
			NumHeads:     4,
			LearningRate: 1e-3,
			WeightDecay:  0.03,
			Seed:         42,
		},
		Checkpoint: CheckpointConfig{
			Enabled:  false,
			Path:     "/data/checkpoints",
			Interval: 5 * time.Minute,
			KeepLast: 3,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   true,
			StoreDir:         "/data/nats/jetstream",
			MaxMemory:        256 << 20, // 256MB
			MaxStore:         1 << 30,   // 1GB
			BatchSubject:     "cadence.batches",
			ResultSubject:    "cadence.scores",
			PublishResults:   true,
			SubscribersCount: 2,
			DurableName:      "cadence-ingest",
			QueueGroup:       "ingesters",
			AckWaitTimeout:   30 * time.Second,
			CloseTimeout:     30 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:          "none",
			JWTSecret:         "",
			JWTIssuer:         "cadence",
			RateLimitReqs:     600,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// ConfigFilePath returns the config file that LoadWithKoanf would read.
func ConfigFilePath() string {
	return findConfigFile()
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server mappings
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_max_body_bytes":   "server.max_body_bytes",
	"environment":           "server.environment",

	// Database mappings
	"duckdb_path":         "database.path",
	"duckdb_max_memory":   "database.max_memory",
	"duckdb_threads":      "database.threads",
	"duckdb_skip_indexes": "database.skip_indexes",

	// Detection mappings
	"detection_window_size":       "detection.window_size",
	"detection_retention_cap":     "detection.retention_cap",
	"detection_threshold":         "detection.threshold",
	"detection_device_idle_ttl":   "detection.device_idle_ttl",
	"detection_sweep_interval":    "detection.sweep_interval",
	"detection_device_rate_limit": "detection.device_rate_limit",
	"detection_device_rate_burst": "detection.device_rate_burst",
	"detection_max_batch_events":  "detection.max_batch_events",

	// Model mappings
	"model_hidden_size":   "model.hidden_size",
	"model_latent_size":   "model.latent_size",
	"model_num_heads":     "model.num_heads",
	"model_learning_rate": "model.learning_rate",
	"model_weight_decay":  "model.weight_decay",
	"model_seed":          "model.seed",

	// Checkpoint mappings
	"checkpoint_enabled":     "checkpoint.enabled",
	"checkpoint_path":        "checkpoint.path",
	"checkpoint_interval":    "checkpoint.interval",
	"checkpoint_keep_last":   "checkpoint.keep_last",
	"checkpoint_sync_writes": "checkpoint.sync_writes",

	// NATS mappings
	"nats_enabled":         "nats.enabled",
	"nats_url":             "nats.url",
	"nats_embedded":        "nats.embedded_server",
	"nats_store_dir":       "nats.store_dir",
	"nats_max_memory":      "nats.max_memory",
	"nats_max_store":       "nats.max_store",
	"nats_batch_subject":   "nats.batch_subject",
	"nats_result_subject":  "nats.result_subject",
	"nats_publish_results": "nats.publish_results",
	"nats_subscribers":     "nats.subscribers_count",
	"nats_durable_name":    "nats.durable_name",
	"nats_queue_group":     "nats.queue_group",
	"nats_ack_wait":        "nats.ack_wait_timeout",

	// Security mappings
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DETECTION_WINDOW_SIZE -> detection.window_size
//   - DUCKDB_PATH -> database.path
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so random environment variables never
	// pollute the configuration.
	return ""
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for synchronizing access to reloaded values.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
