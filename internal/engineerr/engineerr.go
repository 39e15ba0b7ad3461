// Package engineerr defines the error taxonomy the facade maps to the
// public envelope (spec §7). Internal packages return these sentinel-
// wrapped errors; nothing below the facade leaks a raw driver error.
package engineerr

import (
	"errors"
	"fmt"
)

// Sentinel errors, wrapped with operation context via fmt.Errorf("%s: %w").
var (
	// ErrStore covers I/O, constraint violation, or serialization failure.
	// Non-recoverable for the current call.
	ErrStore = errors.New("store error")

	// ErrValidation covers a malformed query, unknown category, or
	// out-of-range parameter. No side effects occur before this is returned.
	ErrValidation = errors.New("validation error")

	// ErrNotFound covers a requested plugin id that is absent.
	ErrNotFound = errors.New("not found")

	// ErrCacheMiss is internal only; it must never reach the facade envelope.
	ErrCacheMiss = errors.New("cache miss")
)

// Store wraps err as a StoreError with operation context.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStore, err))
}

// Validation builds a ValidationError with a human-readable reason.
func Validation(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrValidation)
}

// NotFound builds a NotFound error naming the missing id.
func NotFound(op, id string) error {
	return fmt.Errorf("%s %q: %w", op, id, ErrNotFound)
}

// IndexingError is a per-record failure attached to a bulk ingest result;
// it does not abort the batch (spec §7).
type IndexingError struct {
	PluginID string
	Err      error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("plugin %q: %v", e.PluginID, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is or wraps ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsStore reports whether err is or wraps ErrStore.
func IsStore(err error) bool { return errors.Is(err, ErrStore) }

// Message renders err as the short human-readable string the facade
// envelope exposes to callers — never the raw error chain.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrStore):
		return "internal storage error"
	default:
		return err.Error()
	}
}
