package regeneration

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
	ErrInvalidConfig      = errors.New("invalid regeneration config")
	ErrUnknownGate        = errors.New("unknown requirement gate")
	ErrNilCallback        = errors.New("generate and evaluate callbacks are required")
)

// Attempt errors.
var (
	ErrEmptyContent      = errors.New("generation returned empty content")
	ErrContentTooShort   = errors.New("generated content below minimum length")
	ErrAllAttemptsFailed = errors.New("all generation attempts failed")
)

// GenerationFailure is returned when no attempt produced usable content.
// It wraps the error of the last attempt.
type GenerationFailure struct {
	Attempts int
	Err      error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrAllAttemptsFailed.Error(), e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *GenerationFailure) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrAllAttemptsFailed.
func (e *GenerationFailure) Is(target error) bool {
	return target == ErrAllAttemptsFailed
}
