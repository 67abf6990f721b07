package provider

import "errors"

// Sentinel errors for provider construction and lifecycle.
var (
	ErrNoSource       = errors.New("provider content source is required")
	ErrAlreadyRunning = errors.New("provider already running")
	ErrNotRunning     = errors.New("provider not running")
)
