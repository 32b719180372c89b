// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package main is the entry point for the Cadence server.

Cadence receives batches of keyboard and mouse events from capture agents,
keeps a bounded window per device in DuckDB, trains one shared
reconstruction model online and flags batches whose reconstruction error
exceeds a threshold.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("cadence")
	├── DataSupervisor ("data-layer")
	│   ├── registry-sweeper
	│   └── checkpoint-service (CHECKPOINT_ENABLED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   └── nats-ingest (NATS_ENABLED=true, -tags nats)
	└── APISupervisor ("api-layer")
	    └── http-server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB with the event and anomaly tables
 4. Model: shared trainer, restored from the newest checkpoint if enabled
 5. Detection engine and device registry
 6. Authentication: JWT or no-auth mode
 7. NATS components (optional)
 8. Supervisor tree and HTTP server

# Configuration

Priority: Environment variables > Config file > Defaults

	HTTP_PORT=8420
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console
	DUCKDB_PATH=/data/cadence.duckdb
	DETECTION_WINDOW_SIZE=200
	DETECTION_RETENTION_CAP=1000
	DETECTION_THRESHOLD=0.01
	AUTH_MODE=none               # none or jwt
	JWT_SECRET=<32+ chars>       # Required for JWT mode
	CHECKPOINT_ENABLED=false
	NATS_ENABLED=false

When a config file is in use, edits to logging.level are applied without a
restart.

# Build Tags

	go build ./cmd/server               # HTTP ingest only
	go build -tags nats ./cmd/server    # Adds NATS JetStream ingest

# Signal Handling

On SIGINT or SIGTERM the supervisor stops every layer: the HTTP server
drains in-flight requests, the NATS router finishes its messages, the
checkpoint service writes a final checkpoint and the database is closed.
Services that miss the shutdown timeout are reported.
*/
package main
