package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling (OCP compliance).
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates malformed command arguments or request input
	ValidationError struct {
		Message string
	}

	// StructuralError indicates a command that is not applicable at the
	// current selection or node context. The document is left unchanged.
	StructuralError struct {
		Message string
	}

	// CapacityError indicates an insertion that would exceed the document's
	// character limit. The document is left unchanged.
	CapacityError struct {
		Message string
	}

	// ReadOnlyError indicates a mutating command on a read-only session
	ReadOnlyError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *StructuralError) Error() string   { return e.Message }
func (e *CapacityError) Error() string     { return e.Message }
func (e *ReadOnlyError) Error() string     { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *StructuralError) StatusCode() int   { return http.StatusUnprocessableEntity }
func (e *CapacityError) StatusCode() int     { return http.StatusRequestEntityTooLarge }
func (e *ReadOnlyError) StatusCode() int     { return http.StatusForbidden }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrStructural    = errors.New("command not applicable")
	ErrCapacity      = errors.New("character limit exceeded")
	ErrReadOnly      = errors.New("session is read-only")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Is implementations let the typed errors match their sentinels with errors.Is()
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *StructuralError) Is(target error) bool { return target == ErrStructural }
func (e *CapacityError) Is(target error) bool   { return target == ErrCapacity }
func (e *ReadOnlyError) Is(target error) bool   { return target == ErrReadOnly }
func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }

// ConflictError represents a resource conflict with details about the existing resource
// Implements HTTPError interface for extensible error handling
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (project, rulebook)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// PersistenceError wraps a storage failure surfaced through a session's
// save state. Transient failures are retried at the normal autosave
// cadence; permanent failures stop autosave until an explicit manual save.
type PersistenceError struct {
	Message   string
	Permanent bool
	Err       error // underlying cause, may be nil
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
