package orchestrator

import "errors"

// Sentinel errors for the orchestrator and its commands.
var (
	ErrAlreadyRunning  = errors.New("orchestrator already running")
	ErrAlreadyExecuted = errors.New("command already executed")
	ErrNotImplemented  = errors.New("command has no operation")
	ErrInvalidCommand  = errors.New("invalid command")
	ErrNoProvider      = errors.New("no provider at index")
	ErrNoMessaging     = errors.New("provider has no message system")
)
