// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cadence/internal/auth"
	"github.com/tomtom215/cadence/internal/middleware"
)

// defaultMaxBodyBytes bounds an ingest body when the server config leaves
// it unset.
const defaultMaxBodyBytes = 8 << 20

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	auth          *auth.Middleware
	maxBodyBytes  int64
}

// NewRouter creates a router. authMW may be nil when authentication is
// disabled.
func NewRouter(handler *Handler, chiMW *ChiMiddleware, authMW *auth.Middleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	if authMW == nil {
		authMW = auth.NewMiddleware(nil)
	}
	maxBody := int64(defaultMaxBodyBytes)
	if handler.config != nil && handler.config.Server.MaxBodyBytes > 0 {
		maxBody = handler.config.Server.MaxBodyBytes
	}
	return &Router{handler: handler, chiMiddleware: chiMW, auth: authMW, maxBodyBytes: maxBody}
}

// chiMiddleware adapts http.HandlerFunc middleware to chi's r.Use.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Setup builds the complete route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/km", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(router.auth.Authenticate))

		r.With(chiMiddleware(middleware.MaxBodyBytes(router.maxBodyBytes))).
			Post("/batches", router.handler.IngestBatch)
		r.Get("/anomalies", router.handler.DeviceAnomalies)
		r.Get("/devices/{id}/score", router.handler.DeviceScore)
		r.Get("/devices", router.requireDashboard(router.handler.Devices))
	})

	r.Route("/api/v1/dashboard", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Get("/km/anomalies", router.requireDashboard(router.handler.DashboardAnomalies))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}

func (router *Router) requireDashboard(next http.HandlerFunc) http.HandlerFunc {
	return router.auth.RequireScope(auth.ScopeDashboard, next)
}
