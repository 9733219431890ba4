// Package errs provides the error kinds from spec.md section 7:
// ValidationError, GraphStateError, NoPathError and GeometryError, plus
// the standardized envelope the HTTP/CLI boundary renders them through.
package errs

import (
	"fmt"
	"net/http"
	"time"
)

// Kind is the error category.
type Kind string

const (
	// ValidationError is a payload-shape or grid-shape invariant violation.
	ValidationError Kind = "validation_error"
	// GraphStateError is a graph operation requested before graph creation.
	GraphStateError Kind = "graph_state_error"
	// NoPathError surfaces an A* search that found no route, at the
	// outer boundary only — the router itself returns a Route with
	// HasRoute false rather than raising this (spec.md section 9 design note).
	NoPathError Kind = "no_path_error"
	// GeometryError is a per-element mesh failure, recovered locally.
	GeometryError Kind = "geometry_error"
	// InternalError is an unexpected failure caught at the outer boundary.
	InternalError Kind = "internal_error"
)

// EgressError is the standardized error value used across the engine.
type EgressError struct {
	Kind       Kind
	Message    string
	Details    map[string]any
	Code       string
	StatusCode int
	Timestamp  time.Time
	Cause      error
}

func (e *EgressError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *EgressError) Unwrap() error { return e.Cause }

func (e *EgressError) Is(target error) bool {
	t, ok := target.(*EgressError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a structured detail and returns the same error for
// chaining.
func (e *EgressError) WithDetail(key string, value any) *EgressError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *EgressError) WithCause(err error) *EgressError {
	e.Cause = err
	return e
}

// New constructs an EgressError of the given kind with a default status
// code per statusForKind.
func New(kind Kind, message string) *EgressError {
	return &EgressError{
		Kind:       kind,
		Message:    message,
		StatusCode: statusForKind(kind),
		Timestamp:  time.Now(),
	}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *EgressError {
	return New(kind, fmt.Sprintf(format, args...))
}

func statusForKind(kind Kind) int {
	switch kind {
	case ValidationError:
		return http.StatusBadRequest
	case GraphStateError:
		return http.StatusConflict
	case NoPathError:
		return http.StatusUnprocessableEntity
	case GeometryError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// GeometryFailure records one element skipped during rasterization; it is
// collected rather than raised, per spec.md section 7.
type GeometryFailure struct {
	ElementID string
	Kind      string
	Reason    string
}

func (f GeometryFailure) Error() string {
	return fmt.Sprintf("element %s (%s): %s", f.ElementID, f.Kind, f.Reason)
}
