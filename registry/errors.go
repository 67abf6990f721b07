package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors for the registry.
var (
	ErrUnknownAlias = errors.New("unknown alias")
	ErrEmptyName    = errors.New("registration name is empty")
	ErrNoArgument   = errors.New("argument missing")
)

// Kinds of registered constructors, as reported by AliasConflictError.
const (
	KindHook     = "hook"
	KindProvider = "provider"
)

// AliasConflictError reports an alias claimed by two different registered
// constructors of the same kind.
type AliasConflictError struct {
	Kind   string
	Alias  string
	First  string
	Second string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("%s alias %q registered by both %q and %q", e.Kind, e.Alias, e.First, e.Second)
}
