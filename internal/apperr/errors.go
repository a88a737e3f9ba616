// Package apperr defines the error kinds shared by the client engines.
//
// Callers branch on kind with errors.Is / errors.As:
//
//	ErrNotFound       the store has no record; fall back to defaults
//	*SyncError        the remote call failed; local state is unchanged and the action may be retried
//	*ValidationError  input rejected before any network call
//	ErrBusy           the same action is already in flight
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound is returned when the remote store holds no record for a key.
var ErrNotFound = errors.New("not found")

// ErrBusy is returned when an identical action is already outstanding.
var ErrBusy = errors.New("action already in progress")

// ErrSync matches any *SyncError via errors.Is.
var ErrSync = errors.New("sync failed")

// SyncError reports a failed round trip to the remote store.
type SyncError struct {
	Op     string // e.g. "save profile"
	Status int    // HTTP status, 0 for transport failures
	Err    error
}

func (e *SyncError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: server returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func (e *SyncError) Is(target error) bool { return target == ErrSync }

// Temporary reports whether retrying the same request may succeed.
func (e *SyncError) Temporary() bool {
	switch e.Status {
	case 0, http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ValidationError lists the fields that blocked an action.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Reason
	}
	msg := "missing required fields: " + strings.Join(e.Fields, ", ")
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Sync wraps err as a *SyncError for op.
func Sync(op string, status int, err error) *SyncError {
	return &SyncError{Op: op, Status: status, Err: err}
}

// Invalid builds a *ValidationError carrying only a reason.
func Invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
