// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package auth authenticates capture agents and dashboard readers with HS256
JWTs when security.auth_mode is "jwt".

An agent token's subject is the device it may submit for:

	{"sub": "workstation-17", "scope": "agent", "iss": "cadence", "exp": ...}

Middleware.Authenticate rejects a request with 401 when the bearer token is
missing, malformed, expired or signed with anything but the configured
secret. Handlers then call Authorize with the device a request names; an
agent token for another device gets ErrForbidden, which the API maps to
403. Tokens with the "dashboard" scope may read every device but never
submit batches.

With auth_mode "none" the middleware passes every request through and
Authorize always succeeds.
*/
package auth
