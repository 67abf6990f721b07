package registry

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

// Args are the constructor arguments a hook or provider is created with.
type Args struct {
	Positional []string
	Keyword    map[string]string
}

// ParseArgs splits tokens into keyword arguments ("key=value", split at the
// first '=') and positional arguments (everything else), keeping the
// positional order. A later keyword overrides an earlier one.
func ParseArgs(tokens []string) Args {
	args := Args{Keyword: make(map[string]string)}
	for _, token := range tokens {
		if key, value, ok := strings.Cut(token, "="); ok {
			args.Keyword[key] = value
			continue
		}
		args.Positional = append(args.Positional, token)
	}
	return args
}

// Merge returns a copy of a with other's positional arguments appended and
// other's keywords overriding a's.
func (a Args) Merge(other Args) Args {
	merged := Args{
		Positional: append(append([]string(nil), a.Positional...), other.Positional...),
		Keyword:    make(map[string]string, len(a.Keyword)+len(other.Keyword)),
	}
	maps.Copy(merged.Keyword, a.Keyword)
	maps.Copy(merged.Keyword, other.Keyword)
	return merged
}

// Arg returns the positional argument at i.
func (a Args) Arg(i int) (string, error) {
	if i < 0 || i >= len(a.Positional) {
		return "", fmt.Errorf("%w: position %d", ErrNoArgument, i)
	}
	return a.Positional[i], nil
}

// Int parses the positional argument at i.
func (a Args) Int(i int) (int, error) {
	s, err := a.Arg(i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("argument %d: %w", i, err)
	}
	return n, nil
}

// String returns the keyword argument key, or def when absent.
func (a Args) String(key, def string) string {
	if v, ok := a.Keyword[key]; ok {
		return v
	}
	return def
}

// IntValue parses the keyword argument key, or returns def when absent.
func (a Args) IntValue(key string, def int) (int, error) {
	v, ok := a.Keyword[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("argument %s: %w", key, err)
	}
	return n, nil
}

// Duration parses the keyword argument key with time.ParseDuration, or
// returns def when absent.
func (a Args) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := a.Keyword[key]
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("argument %s: %w", key, err)
	}
	return d, nil
}
