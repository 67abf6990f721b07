package hook

import "errors"

// ErrNoAction is returned by New when no action is supplied.
var ErrNoAction = errors.New("hook action is required")
