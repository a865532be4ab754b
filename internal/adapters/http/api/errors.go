package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrUpgrade    = errors.New("websocket upgrade failed")
)

// NewKind tags a sentinel with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel and keeps the underlying cause visible.
func WrapKind(op string, kind, cause error) error {
	return fmt.Errorf("%s: %w: %v", op, kind, cause)
}

// Wrap tags any error with the operation that raised it.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
