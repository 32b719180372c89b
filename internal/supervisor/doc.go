// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package supervisor runs Cadence's long-lived services under suture v4.

Services are grouped into three child supervisors so a failing layer
restarts on its own:

	cadence
	├── data-layer
	│   ├── registry-sweeper
	│   └── checkpoint-service (checkpoint.enabled)
	├── messaging-layer
	│   └── nats-ingest (nats.enabled, build tag: nats)
	└── api-layer
	    └── http-server

Supervisor events are logged through the zerolog-backed slog adapter from
package logging, via sutureslog.

Usage:

	tree, err := supervisor.NewTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewSweeperService(engine.Registry(), ttl, interval))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

After the context is canceled, UnstoppedServiceReport lists any service
that missed the shutdown timeout.
*/
package supervisor
