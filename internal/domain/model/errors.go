package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared across the core. Callers classify failures
// with errors.Is and react per kind:
//
//   - ErrValidation: malformed or inconsistent input, rejected before any
//     state change.
//   - ErrNotFound: unknown score or timer id.
//   - ErrConflict: resolution race or already-terminal state; re-fetch the
//     record rather than retrying the same call.
//   - ErrUnavailable: the store could not complete within its latency
//     budget; safe to retry with backoff.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)

// WrapValidation attaches a detail message to ErrValidation.
func WrapValidation(detail string) error {
	return fmt.Errorf("%w: %s", ErrValidation, detail)
}
