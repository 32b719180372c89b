// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package api serves the Cadence HTTP API on a chi router.

Routes:

	POST /api/v1/km/batches                 ingest one batch, returns ScoreResult
	GET  /api/v1/km/anomalies               one device's history as {timestamp, score}
	GET  /api/v1/km/devices                 devices active in the registry
	GET  /api/v1/km/devices/{id}/score      evaluate a device's window without training
	GET  /api/v1/dashboard/km/anomalies     full history records, device optional
	GET  /api/v1/health                     health summary
	GET  /api/v1/health/live                liveness
	GET  /api/v1/health/ready               readiness (database ping, component checks)
	GET  /metrics                           Prometheus exposition

Every JSON response uses the models.APIResponse envelope. Engine errors map
to status codes as follows:

	detection.ErrValidation   400 VALIDATION_ERROR
	body over the size limit  413 PAYLOAD_TOO_LARGE
	detection.ErrRateLimited  429 RATE_LIMIT_EXCEEDED
	auth.ErrForbidden         403 AUTHORIZATION_ERROR
	detection.ErrStorage      500 STORAGE_ERROR
	anything else             500 INTERNAL_ERROR

A model instability is not an error; the engine returns the neutral result
and the handler responds 200.
*/
package api
