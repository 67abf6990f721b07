package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tailored-agentic-units/phf/registry"
)

// Usage lists the text command grammar ParseCommand accepts.
const Usage = `providers                   list providers
hooks <idx>                 list hooks of provider <idx>
provider <name> [args...]   create and add a provider
hook <name> <idx> [args...] create a hook and attach it to provider <idx>
stop <idx>                  stop provider <idx>
send <idx> <data...>        send data to the message system of provider <idx>
answer <idx> <id>           show the answer for message <id> of provider <idx>`

// ParseCommand turns one line of text into a command produced by src.
// Names and provider indexes are checked against the current registry and
// provider list, so a parsed command only fails on apply when a constructor
// rejects its arguments.
func (o *Orchestrator) ParseCommand(line string, src Source) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrInvalidCommand)
	}

	verb, rest := fields[0], fields[1:]

	var op Operation
	switch verb {
	case "providers":
		if len(rest) != 0 {
			return nil, fmt.Errorf("%w: providers takes no arguments", ErrInvalidCommand)
		}
		op = ListProviders{}

	case "hooks":
		if len(rest) != 1 {
			return nil, fmt.Errorf("%w: usage: hooks <idx>", ErrInvalidCommand)
		}
		idx, err := o.parseIndex(rest[0])
		if err != nil {
			return nil, err
		}
		op = ListHooks{Provider: idx}

	case "provider":
		if len(rest) < 1 {
			return nil, fmt.Errorf("%w: usage: provider <name> [args...]", ErrInvalidCommand)
		}
		if _, err := o.registry.LookupProvider(rest[0]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		op = NewProvider{Name: rest[0], Args: registry.ParseArgs(rest[1:])}

	case "hook":
		if len(rest) < 2 {
			return nil, fmt.Errorf("%w: usage: hook <name> <idx> [args...]", ErrInvalidCommand)
		}
		if _, err := o.registry.LookupHook(rest[0]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		idx, err := o.parseIndex(rest[1])
		if err != nil {
			return nil, err
		}
		op = NewHook{Name: rest[0], Provider: idx, Args: registry.ParseArgs(rest[2:])}

	case "stop":
		if len(rest) != 1 {
			return nil, fmt.Errorf("%w: usage: stop <idx>", ErrInvalidCommand)
		}
		idx, err := o.parseIndex(rest[0])
		if err != nil {
			return nil, err
		}
		op = StopProvider{Provider: idx}

	case "send":
		if len(rest) < 2 {
			return nil, fmt.Errorf("%w: usage: send <idx> <data...>", ErrInvalidCommand)
		}
		idx, err := o.parseMessenger(rest[0])
		if err != nil {
			return nil, err
		}
		op = SendMessage{Provider: idx, Data: parseData(rest[1:])}

	case "answer":
		if len(rest) != 2 {
			return nil, fmt.Errorf("%w: usage: answer <idx> <id>", ErrInvalidCommand)
		}
		idx, err := o.parseMessenger(rest[0])
		if err != nil {
			return nil, err
		}
		id, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: message id %q is not a number", ErrInvalidCommand, rest[1])
		}
		op = FetchAnswer{Provider: idx, ID: id}

	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, verb)
	}

	return NewCommand(op, src), nil
}

// parseIndex accepts only indexes of providers that exist now. Providers are
// never removed, so the index stays valid until the command is applied.
func (o *Orchestrator) parseIndex(s string) (int, error) {
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: provider index %q is not a number", ErrInvalidCommand, s)
	}
	if _, err := o.Provider(idx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return idx, nil
}

func (o *Orchestrator) parseMessenger(s string) (int, error) {
	idx, err := o.parseIndex(s)
	if err != nil {
		return 0, err
	}
	if _, _, err := messageSystem(o, idx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return idx, nil
}

// parseData reads a single number as int or float64. Anything else is sent
// as the text of all fields joined by spaces.
func parseData(fields []string) any {
	if len(fields) == 1 {
		if n, err := strconv.Atoi(fields[0]); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(fields[0], 64); err == nil {
			return f
		}
	}
	return strings.Join(fields, " ")
}
