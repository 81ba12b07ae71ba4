// Package bderr defines the error taxonomy shared by every core subsystem.
//
// What: a small Kind enum matching the error kinds the core engine
// raises, plus a BeeError that carries the offending name (table,
// column, rid, page id) alongside the kind.
// How: built the same way tinySQL's storage package builds its
// sentinel errors — package-level errors.New values for the kinds that
// never carry extra context, and a wrapping struct for the ones that do.
// Why: callers (the exec driver, the txn manager) need to branch on kind
// without string-matching error messages.
package bderr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories the core engine raises.
type Kind string

const (
	KindIOError             Kind = "io_error"
	KindNoFreeFrame         Kind = "no_free_frame"
	KindPageNotPinned       Kind = "page_not_pinned"
	KindEvictedPagePinned   Kind = "evicted_page_pinned"
	KindWriteWriteConflict  Kind = "write_write_conflict"
	KindValidationFailure   Kind = "validation_failure"
	KindConstraintViolation Kind = "constraint_violation"
	KindSchemaError         Kind = "schema_error"
	KindParseError          Kind = "parse_error"
)

// Sentinel errors for kinds that never need extra context of their own;
// callers still usually wrap these with fmt.Errorf to attach detail.
var (
	ErrNoFreeFrame        = errors.New("buffer pool: no free frame")
	ErrWriteWriteConflict = errors.New("transaction: write-write conflict")
	ErrValidationFailure  = errors.New("transaction: commit validation failed")
)

// BeeError is the concrete error type surfaced across package boundaries.
type BeeError struct {
	Kind   Kind
	Detail string // offending table/column/rid name
	Err    error  // wrapped cause, if any
}

func (e *BeeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *BeeError) Unwrap() error { return e.Err }

// New builds a BeeError for the given kind and offending name.
func New(kind Kind, detail string) *BeeError {
	return &BeeError{Kind: kind, Detail: detail}
}

// Wrap builds a BeeError around an existing cause.
func Wrap(kind Kind, detail string, err error) *BeeError {
	return &BeeError{Kind: kind, Detail: detail, Err: err}
}

// Is lets errors.Is match on Kind without pointer identity.
func (e *BeeError) Is(target error) bool {
	other, ok := target.(*BeeError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind of err if it is (or wraps) a *BeeError.
func KindOf(err error) (Kind, bool) {
	var be *BeeError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}
