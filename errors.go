package ogm

import (
	"errors"
	"fmt"
)

// ErrNotFound is a sentinel error returned by Find operations when no record
// matching the criteria is found in the database.
var ErrNotFound = errors.New("record not found")

// ErrConflict is the sentinel matched by every ConflictError.
var ErrConflict = errors.New("concurrent modification")

// ConflictError reports an element that changed or vanished in the store since
// the unit of work read it. The unit of work must be retried from a fresh read.
type ConflictError struct {
	// Statement is the kind of the statement that matched nothing.
	Statement string
	ID        any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s of element %v matched nothing", ErrConflict, e.Statement, e.ID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
