package domain

import (
	"context"
	"errors"
	"fmt"
)

// RawPayload is an untyped, arbitrarily nested mapping returned by a source.
// Its shape is owned by the upstream and varies per source.
type RawPayload map[string]any

// ErrorKind classifies why a source failed.
type ErrorKind string

const (
	KindMissingCredentials  ErrorKind = "missing_credentials"
	KindRateLimited         ErrorKind = "rate_limited"
	KindAuthError           ErrorKind = "auth_error"
	KindForbidden           ErrorKind = "forbidden"
	KindNotFound            ErrorKind = "not_found"
	KindTimeout             ErrorKind = "timeout"
	KindConnectionError     ErrorKind = "connection_error"
	KindAPIError            ErrorKind = "api_error"
	KindUnparseableResponse ErrorKind = "unparseable_response"
)

// SourceError is the only error type a Source returns.
type SourceError struct {
	Source  string
	Kind    ErrorKind
	Status  int    // upstream HTTP status, 0 when no response was received
	Message string // human readable
	Body    string // truncated upstream body, api_error only
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Source, e.Kind, e.Status, e.Message)
	}

	return fmt.Sprintf("%s: %s: %s", e.Source, e.Kind, e.Message)
}

// NewSourceError creates a SourceError without an upstream status.
func NewSourceError(source string, kind ErrorKind, format string, args ...any) *SourceError {
	return &SourceError{
		Source:  source,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf extracts the ErrorKind of err, defaulting to api_error for foreign errors.
func KindOf(err error) ErrorKind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}

	return KindAPIError
}

// Source is one strategy for obtaining profile data from an external system.
// Implementations: internal/infra/source/...
type Source interface {
	// Name returns the provenance tag recorded on profiles built from this source.
	Name() string

	// Fetch retrieves the raw payload for a normalized handle.
	// Every failure is returned as a *SourceError; implementations must not panic.
	Fetch(ctx context.Context, handle string) (RawPayload, error)
}
