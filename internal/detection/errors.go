// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package detection

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Use errors.Is to classify failures returned by Engine.
var (
	// ErrValidation marks a malformed batch. Nothing was written.
	ErrValidation = errors.New("invalid batch")

	// ErrStorage marks a persistence failure. The batch was aborted.
	ErrStorage = errors.New("storage failure")

	// ErrModel marks numeric instability in the shared model. Engine.Ingest
	// recovers from it locally; it is only visible to lower-level callers.
	ErrModel = errors.New("model instability")

	// ErrRateLimited is returned when a device exceeds its batch rate.
	ErrRateLimited = errors.New("device rate limit exceeded")
)

// FieldError describes one rejected field of a batch.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field error found in a rejected batch.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// StorageError wraps a database failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
}

// Unwrap exposes both ErrStorage and the driver error.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
