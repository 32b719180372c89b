// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

// Authorization errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("token is not valid for this device")
)

type claimsKey struct{}

// ContextWithClaims stores validated claims in ctx.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims set by Authenticate, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

// Middleware enforces token authentication. A nil manager disables it.
type Middleware struct {
	jwt *JWTManager
}

// NewMiddleware returns a middleware that validates tokens with manager, or
// passes everything through when manager is nil.
func NewMiddleware(manager *JWTManager) *Middleware {
	return &Middleware{jwt: manager}
}

// Enabled reports whether requests are authenticated.
func (m *Middleware) Enabled() bool {
	return m != nil && m.jwt != nil
}

// Authenticate requires a valid bearer token and stores its claims in the
// request context.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next(w, r)
			return
		}
		if _, ok := ClaimsFromContext(r.Context()); ok {
			next(w, r)
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			metrics.APIAuthFailures.WithLabelValues("missing_token").Inc()
			writeAuthError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "missing bearer token")
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			metrics.APIAuthFailures.WithLabelValues("invalid_token").Inc()
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			writeAuthError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid token")
			return
		}

		next(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	}
}

// RequireScope wraps Authenticate and additionally requires scope.
func (m *Middleware) RequireScope(scope string, next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		if m.Enabled() {
			claims, _ := ClaimsFromContext(r.Context())
			if claims == nil || claims.Scope != scope {
				metrics.APIAuthFailures.WithLabelValues("scope").Inc()
				writeAuthError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "token scope does not allow this request")
				return
			}
		}
		next(w, r)
	})
}

// Authorize checks that the request's token may act on deviceID. Agent
// tokens must name the device; dashboard tokens may read any device when
// write is false.
func (m *Middleware) Authorize(ctx context.Context, deviceID string, write bool) error {
	if !m.Enabled() {
		return nil
	}
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	switch {
	case claims.Scope == ScopeAgent && claims.Subject == deviceID:
		return nil
	case claims.Scope == ScopeDashboard && !write:
		return nil
	}
	metrics.APIAuthFailures.WithLabelValues("device_mismatch").Inc()
	return ErrForbidden
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="cadence"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}
