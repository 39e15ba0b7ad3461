package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common database conditions, mirrored from the
// teacher's internal/storage/sqlite/errors.go pattern (_teacherref).
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// wrapDBError wraps a database error with operation context, folding
// sql.ErrNoRows into ErrNotFound for consistent handling up the stack.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
