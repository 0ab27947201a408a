// Package apperr defines the error taxonomy shared by the stores and the
// HTTP layer. Errors are classified by wrapping one of the sentinels below
// with fmt.Errorf("...: %w", ...) and matched with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation marks malformed input, caught at create/update time.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing row or one outside the caller's household.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a state transition that already happened or was won
	// by someone else (already completed, already claimed, not pending).
	// Callers should treat it as a benign "already done" outcome.
	ErrConflict = errors.New("conflict")

	// ErrIntegrity marks a broken transactional invariant, e.g. a completed
	// assignment with no completion row. It indicates a bug, never a user
	// mistake, and must be logged with full context.
	ErrIntegrity = errors.New("integrity violation")
)

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsIntegrity(err error) bool  { return errors.Is(err, ErrIntegrity) }
