/*
errors.go - Centralized error taxonomy

PURPOSE:
  All domain error types in one place. The HTTP layer maps these to status
  codes; everything else wraps them with context via %w.

ERROR CATEGORIES:
  NotFound          referenced entity missing or not owned by the caller
  InvalidArgument   bad interval, category/direction mismatch, malformed date
  Conflict          planned operation already completed, or a row still
                    referenced by others blocking a delete
  PermissionDenied  quota exhaustion or bad credentials
  (store failures surface as plain wrapped errors and map to 500)

USAGE:
  if ledger.IsNotFound(err) { ... }

  var mismatch *ledger.CategoryMismatchError
  if errors.As(err, &mismatch) { ... }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity is missing or belongs
	// to a different user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed input detected before any
	// mutation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is returned when a planned operation was already completed
	// or a delete is blocked by rows that still reference the target.
	ErrConflict = errors.New("conflict")

	// ErrPermissionDenied is returned on quota exhaustion and bad credentials.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists. Expected behavior for sweep retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =============================================================================
// STRUCTURED ERRORS - carry additional context
// =============================================================================

// CategoryMismatchError reports a category whose direction does not match
// the event being recorded against it.
type CategoryMismatchError struct {
	CategoryID int64
	Category   Direction
	Requested  Direction
}

func (e *CategoryMismatchError) Error() string {
	return fmt.Sprintf("category %d is %s, transaction is %s", e.CategoryID, e.Category, e.Requested)
}

func (e *CategoryMismatchError) Unwrap() error { return ErrInvalidArgument }

// QuotaExceededError reports an exhausted feature quota.
type QuotaExceededError struct {
	Feature string
	Allowed int
	Used    int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota for %s exhausted (%d of %d used), upgrade the subscription to raise the limit",
		e.Feature, e.Used, e.Allowed)
}

func (e *QuotaExceededError) Unwrap() error { return ErrPermissionDenied }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsPermissionDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}
