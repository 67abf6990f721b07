package messaging

import "errors"

// Sentinel errors for the message system.
var (
	ErrAlreadyInitialized = errors.New("message system already initialized")
	ErrStopped            = errors.New("message system stopped")
)
