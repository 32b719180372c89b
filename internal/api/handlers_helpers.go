// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/auth"
	"github.com/tomtom215/cadence/internal/detection"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/models"
)

// maxQueryLimit caps the limit query parameter.
const maxQueryLimit = 10000

// sanitizeLogValue escapes control characters so client input cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, data interface{}, start time.Time, count *int) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Count:       count,
		},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondEngineError maps detection and auth errors to the API contract.
func respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.Ctx(r.Context())

	var verr *detection.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), validationDetails(verr))
	case errors.As(err, &tooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)
	case errors.Is(err, detection.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many batches for this device", nil)
	case errors.Is(err, auth.ErrForbidden):
		respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", err.Error(), nil)
	case errors.Is(err, auth.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", err.Error(), nil)
	case errors.Is(err, detection.ErrStorage):
		log.Error().Str("error", sanitizeLogValue(err.Error())).Msg("Storage failure")
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "storage failure", nil)
	case r.Context().Err() != nil && errors.Is(err, r.Context().Err()):
		// Client went away; nobody reads the response.
		log.Debug().Err(err).Msg("Request canceled")
		respondError(w, http.StatusServiceUnavailable, "REQUEST_CANCELED", "request canceled", nil)
	default:
		log.Error().Str("error", sanitizeLogValue(err.Error())).Msg("Internal error")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
	}
}

func validationDetails(verr *detection.ValidationError) map[string]interface{} {
	return map[string]interface{}{"fields": verr.Fields}
}

// decodeJSONBody decodes the request body into v. Syntax and type errors
// become validation errors; a body over the size limit is returned as is.
func decodeJSONBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return &detection.ValidationError{Fields: []detection.FieldError{{Field: "body", Message: "request body is required"}}}
	}
	// Read fully first so a size limit error is not masked by the decoder.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &detection.ValidationError{Fields: []detection.FieldError{{Field: "body", Message: "invalid JSON: " + err.Error()}}}
	}
	return nil
}

// parseAnomalyFilter reads device_id, start, end and limit from the query.
func parseAnomalyFilter(r *http.Request) (models.AnomalyFilter, error) {
	q := r.URL.Query()
	filter := models.AnomalyFilter{DeviceID: q.Get("device_id")}

	var fields []detection.FieldError
	parseBound := func(name string) *float64 {
		raw := q.Get(name)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			fields = append(fields, detection.FieldError{Field: name, Message: name + " must be a finite number"})
			return nil
		}
		return &v
	}
	filter.Start = parseBound("start")
	filter.End = parseBound("end")

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 || limit > maxQueryLimit {
			fields = append(fields, detection.FieldError{
				Field:   "limit",
				Message: fmt.Sprintf("limit must be an integer between 0 and %d", maxQueryLimit),
			})
		} else {
			filter.Limit = limit
		}
	}

	if len(fields) > 0 {
		return filter, &detection.ValidationError{Fields: fields}
	}
	return filter, nil
}
