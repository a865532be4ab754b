package config

import "errors"

// Sentinel error kinds for this package; callers classify with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
