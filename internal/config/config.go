// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Detection  DetectionConfig  `koanf:"detection"`
	Model      ModelConfig      `koanf:"model"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	NATS       NATSConfig       `koanf:"nats"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"` // Upper bound on an ingest request body
	Environment     string        `koanf:"environment"`    // "development", "staging", "production"
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // Number of DuckDB threads (0 = use NumCPU)
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // Whether to preserve insertion order (default true)
	SkipIndexes            bool   `koanf:"skip_indexes"`             // Skip index creation (fast test setup)
}

// DetectionConfig holds the anomaly engine settings.
//
// Environment Variables:
//   - DETECTION_WINDOW_SIZE: events fed to the model per batch (default: 200)
//   - DETECTION_RETENTION_CAP: raw events kept per device (default: 1000)
//   - DETECTION_THRESHOLD: unscaled reconstruction error above which a batch is anomalous (default: 0.01)
//   - DETECTION_DEVICE_IDLE_TTL: idle time before a device is dropped from the registry (default: 30m)
//   - DETECTION_DEVICE_RATE_LIMIT: batches per second per device, 0 disables (default: 0)
//   - DETECTION_DEVICE_RATE_BURST: burst size for the per-device limiter (default: 10)
type DetectionConfig struct {
	WindowSize      int           `koanf:"window_size"`
	RetentionCap    int           `koanf:"retention_cap"`
	Threshold       float64       `koanf:"threshold"`
	DeviceIdleTTL   time.Duration `koanf:"device_idle_ttl"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
	DeviceRateLimit float64       `koanf:"device_rate_limit"`
	DeviceRateBurst int           `koanf:"device_rate_burst"`
	MaxBatchEvents  int           `koanf:"max_batch_events"`
}

// ModelConfig holds the reconstruction network settings.
type ModelConfig struct {
	HiddenSize   int     `koanf:"hidden_size"`
	LatentSize   int     `koanf:"latent_size"`
	NumHeads     int     `koanf:"num_heads"`
	LearningRate float64 `koanf:"learning_rate"`
	WeightDecay  float64 `koanf:"weight_decay"`
	Seed         int64   `koanf:"seed"`
}

// CheckpointConfig controls persistence of model state in BadgerDB.
// Disabled by default: every process start builds a fresh model.
type CheckpointConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Path      string        `koanf:"path"`
	Interval  time.Duration `koanf:"interval"`
	KeepLast  int           `koanf:"keep_last"`
	InMemory  bool          `koanf:"in_memory"` // Badger in-memory mode, for tests
	SyncWrite bool          `koanf:"sync_writes"`
}

// NATSConfig holds message-based ingest settings. Only effective in
// binaries built with -tags nats.
type NATSConfig struct {
	Enabled          bool          `koanf:"enabled"`
	URL              string        `koanf:"url"`
	EmbeddedServer   bool          `koanf:"embedded_server"`
	StoreDir         string        `koanf:"store_dir"`
	MaxMemory        int64         `koanf:"max_memory"`
	MaxStore         int64         `koanf:"max_store"`
	BatchSubject     string        `koanf:"batch_subject"`
	ResultSubject    string        `koanf:"result_subject"`
	PublishResults   bool          `koanf:"publish_results"`
	SubscribersCount int           `koanf:"subscribers_count"`
	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`
}

// SecurityConfig holds API access settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // "none" or "jwt"
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTIssuer         string        `koanf:"jwt_issuer"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, the optional config file and the
// environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
