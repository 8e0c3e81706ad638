package shipment

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// APIError represents an error response from the backend.
type APIError struct {
	Code       string            `json:"code,omitempty"`
	Message    string            `json:"error"`
	StatusCode int               `json:"-"`
	Fields     map[string]string `json:"fields,omitempty"`
	Cause      error             `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// WithCause attaches an underlying error.
func (e *APIError) WithCause(err error) *APIError {
	e.Cause = err
	return e
}

// Sentinel errors for the workflow and backend layers.
var (
	// ErrUnauthorized indicates the backend rejected the credentials and a
	// refresh did not help.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionExpired indicates the refresh token itself was rejected and
	// the session must be torn down.
	ErrSessionExpired = errors.New("session expired")

	// ErrRecordNotFound indicates the record id is unknown to the backend.
	ErrRecordNotFound = errors.New("shipment record not found")

	// ErrNoRecords indicates an operation that needs records got an empty set.
	ErrNoRecords = errors.New("no shipment records")

	// ErrNoSelection indicates a bulk operation was invoked with nothing
	// selected.
	ErrNoSelection = errors.New("no records selected")

	// ErrInsufficientBalance indicates the account balance does not cover the
	// purchase total.
	ErrInsufficientBalance = errors.New("insufficient account balance")

	// ErrTermsNotAccepted indicates purchase was attempted without accepting
	// the terms.
	ErrTermsNotAccepted = errors.New("terms of service not accepted")
)

// FieldErrors holds per-field validation failures, keyed by wire field name.
// It is surfaced before any remote call is attempted.
type FieldErrors map[string]string

// Error implements the error interface.
func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
