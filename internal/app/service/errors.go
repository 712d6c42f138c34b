package service

import (
	"errors"
	"fmt"
	"strings"

	"profile-service/internal/domain"
)

var (
	// ErrSnapshotsDisabled is returned by Snapshot when no snapshot store is configured.
	ErrSnapshotsDisabled = errors.New("snapshot store disabled")

	// ErrSnapshotNotFound is returned by Snapshot when the handle was never stored.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// ExhaustedError is returned when every source failed.
// Attempts are in the order the sources were tried.
type ExhaustedError struct {
	Handle   string
	Attempts []*domain.SourceError
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Source, a.Kind))
	}

	return fmt.Sprintf("all sources failed for %q (%s)", e.Handle, strings.Join(parts, ", "))
}

// CommonKind reports the failure kind shared by every attempt, if any.
func (e *ExhaustedError) CommonKind() (domain.ErrorKind, bool) {
	if len(e.Attempts) == 0 {
		return "", false
	}

	kind := e.Attempts[0].Kind
	for _, a := range e.Attempts[1:] {
		if a.Kind != kind {
			return "", false
		}
	}

	return kind, true
}

// NormalizationError is returned when the winning source's payload has no
// recognizable profile shape. Raw is kept for diagnostics.
type NormalizationError struct {
	Source string
	Raw    domain.RawPayload
}

// Error implements the error interface.
func (e *NormalizationError) Error() string {
	return fmt.Sprintf("payload from %s has no recognizable profile", e.Source)
}
