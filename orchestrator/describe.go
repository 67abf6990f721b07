package orchestrator

import (
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/phf/hook"
	"github.com/tailored-agentic-units/phf/provider"
)

// Describe renders a command result value as text for input adapters.
func Describe(value any) string {
	switch v := value.(type) {
	case nil:
		return "ok"
	case []provider.Provider:
		if len(v) == 0 {
			return "no providers"
		}
		lines := make([]string, len(v))
		for i, p := range v {
			lines[i] = fmt.Sprintf("%d: %s", i, describeProvider(p))
		}
		return strings.Join(lines, "\n")
	case []*hook.Hook:
		if len(v) == 0 {
			return "no hooks"
		}
		lines := make([]string, len(v))
		for i, h := range v {
			lines[i] = fmt.Sprintf("%d: %s processed=%d", i, h.Name(), h.Processed())
		}
		return strings.Join(lines, "\n")
	case provider.Provider:
		return describeProvider(v)
	case *hook.Hook:
		return fmt.Sprintf("hook %s", v.Name())
	case Ticket:
		return fmt.Sprintf("sent to %s id=%d", v.Provider, v.ID)
	case Answer:
		if !v.Ready {
			return fmt.Sprintf("id=%d pending", v.ID)
		}
		return fmt.Sprintf("id=%d: %v", v.ID, v.Value)
	default:
		return fmt.Sprint(v)
	}
}

func describeProvider(p provider.Provider) string {
	state := "stopped"
	if p.Running() {
		state = "running"
	}
	return fmt.Sprintf("%s [%s] %s hooks=%d cycles=%d", p.Name(), p.Kind(), state, len(p.Hooks()), p.Cycles())
}
