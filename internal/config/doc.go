// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package config provides layered configuration loading for Cadence.

Configuration is assembled with Koanf v2 from three sources, later sources
overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file (CONFIG_PATH, ./config.yaml, /etc/cadence/config.yaml)
 3. Environment variables, through an explicit name mapping

Only mapped environment variables are read, so unrelated variables in the
process environment never leak into the configuration.

Example config.yaml:

	server:
	  port: 8420
	database:
	  path: /data/cadence.duckdb
	detection:
	  window_size: 200
	  retention_cap: 1000
	  threshold: 0.01
	model:
	  hidden_size: 64
	  learning_rate: 0.001
	checkpoint:
	  enabled: true
	  path: /data/checkpoints

Key environment variables:
  - HTTP_PORT, HTTP_HOST: listener address
  - DUCKDB_PATH: database file (":memory:" for an in-memory store)
  - DETECTION_WINDOW_SIZE, DETECTION_RETENTION_CAP, DETECTION_THRESHOLD
  - MODEL_SEED, MODEL_LEARNING_RATE, MODEL_WEIGHT_DECAY
  - CHECKPOINT_ENABLED, CHECKPOINT_PATH, CHECKPOINT_INTERVAL
  - NATS_ENABLED, NATS_URL, NATS_EMBEDDED
  - AUTH_MODE (none, jwt), JWT_SECRET, CORS_ORIGINS
  - LOG_LEVEL, LOG_FORMAT

Validate is run after loading and rejects inconsistent settings such as a
window larger than the retention cap.
*/
package config
