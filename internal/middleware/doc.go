// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package middleware provides HTTP middleware shared by the API router.

Components:

  - RequestID: propagates or generates X-Request-ID and stores it in the
    logging context
  - PrometheusMetrics: request counts, latency and in-flight gauge, labelled
    by chi route pattern to keep cardinality bounded
  - MaxBodyBytes: caps request bodies before the JSON decoder sees them

All three use the func(http.HandlerFunc) http.HandlerFunc shape; the api
package adapts them for chi's r.Use.
*/
package middleware
