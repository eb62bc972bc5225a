package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ledger's business-rule failures.
// Adapters map these to transport-level codes with errors.Is.
var (
	// ErrNotFound means the requested record does not exist (or exists but
	// belongs to another user, for lookups that must not leak existence).
	ErrNotFound = errors.New("record not found")

	// ErrForbidden means the record exists but belongs to another user.
	ErrForbidden = errors.New("record belongs to another user")

	// ErrInsufficientShares means a sell would drive the held shares negative.
	ErrInsufficientShares = errors.New("sell shares exceed holding shares")

	// ErrAmountMismatch means the transaction amount differs from
	// shares x net value by more than the accepted tolerance.
	ErrAmountMismatch = errors.New("amount does not match shares times net value")

	// ErrNoPosition means a mark-to-market was requested for a position
	// holding zero shares.
	ErrNoPosition = errors.New("no shares held")

	// ErrConflict means a unique key was violated (e.g. two marks for the
	// same fund and date applied concurrently).
	ErrConflict = errors.New("duplicate record")

	// ErrRetriable means the store reported a transient failure (deadlock,
	// serialization conflict, timeout). The whole operation may be retried.
	ErrRetriable = errors.New("temporary storage failure")
)

// ValidationError reports a missing or malformed input field.
// The message is surfaced verbatim to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
