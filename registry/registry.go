// Package registry maps names and aliases to hook and provider
// constructors. The embedding application registers every constructor
// explicitly; the orchestrator and its commands create instances by alias.
//
//	r := registry.New()
//	r.RegisterHook("double", []string{"x2"}, func(args registry.Args) (*hook.Hook, error) {
//	    return hook.New("double", doubleAction)
//	})
//	h, err := r.CreateHook("x2", registry.Args{})
package registry

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tailored-agentic-units/phf/hook"
	"github.com/tailored-agentic-units/phf/provider"
)

type HookConstructor func(args Args) (*hook.Hook, error)

type ProviderConstructor func(args Args) (provider.Provider, error)

// Info describes one registered constructor.
type Info struct {
	Name    string
	Aliases []string
}

type entry[C any] struct {
	name    string
	aliases []string
	ctor    C
}

// table indexes entries of one kind by primary name and by every alias.
type table[C any] struct {
	kind    string
	entries map[string]*entry[C]
	aliases map[string]*entry[C]
}

func newTable[C any](kind string) table[C] {
	return table[C]{
		kind:    kind,
		entries: make(map[string]*entry[C]),
		aliases: make(map[string]*entry[C]),
	}
}

// register adds ctor under name and aliases. Registering the same name again
// replaces its constructor and aliases; an alias already held by a
// different name is an AliasConflictError and leaves the table unchanged.
func (t *table[C]) register(name string, aliases []string, ctor C) error {
	if name == "" {
		return fmt.Errorf("%s: %w", t.kind, ErrEmptyName)
	}

	keys := append([]string{name}, aliases...)
	for _, key := range keys {
		if key == "" {
			return fmt.Errorf("%s %s: %w", t.kind, name, ErrEmptyName)
		}
		if held, exists := t.aliases[key]; exists && held.name != name {
			return &AliasConflictError{
				Kind:   t.kind,
				Alias:  key,
				First:  held.name,
				Second: name,
			}
		}
	}

	if previous, exists := t.entries[name]; exists {
		for _, key := range previous.aliases {
			delete(t.aliases, key)
		}
	}

	e := &entry[C]{
		name:    name,
		aliases: slices.Compact(slices.Sorted(slices.Values(aliases))),
		ctor:    ctor,
	}
	t.entries[name] = e
	for _, key := range keys {
		t.aliases[key] = e
	}
	return nil
}

func (t *table[C]) lookup(alias string) (*entry[C], error) {
	e, exists := t.aliases[alias]
	if !exists {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownAlias, t.kind, alias)
	}
	return e, nil
}

func (t *table[C]) list() []Info {
	infos := make([]Info, 0, len(t.entries))
	for _, e := range t.entries {
		infos = append(infos, Info{
			Name:    e.name,
			Aliases: slices.Clone(e.aliases),
		})
	}
	slices.SortFunc(infos, func(a, b Info) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos
}

// Registry holds hook and provider constructors. Thread-safe for concurrent
// access.
type Registry struct {
	mu        sync.RWMutex
	hooks     table[HookConstructor]
	providers table[ProviderConstructor]
}

func New() *Registry {
	return &Registry{
		hooks:     newTable[HookConstructor](KindHook),
		providers: newTable[ProviderConstructor](KindProvider),
	}
}

// RegisterHook makes ctor creatable under name and each alias.
func (r *Registry) RegisterHook(name string, aliases []string, ctor HookConstructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hooks.register(name, aliases, ctor)
}

// RegisterProvider makes ctor creatable under name and each alias.
func (r *Registry) RegisterProvider(name string, aliases []string, ctor ProviderConstructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.providers.register(name, aliases, ctor)
}

// CreateHook constructs the hook registered under alias. Unknown aliases
// fail with ErrUnknownAlias.
func (r *Registry) CreateHook(alias string, args Args) (*hook.Hook, error) {
	r.mu.RLock()
	e, err := r.hooks.lookup(alias)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	h, err := e.ctor(args)
	if err != nil {
		return nil, fmt.Errorf("create hook %s: %w", e.name, err)
	}
	return h, nil
}

// CreateProvider constructs the provider registered under alias. Unknown
// aliases fail with ErrUnknownAlias.
func (r *Registry) CreateProvider(alias string, args Args) (provider.Provider, error) {
	r.mu.RLock()
	e, err := r.providers.lookup(alias)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	p, err := e.ctor(args)
	if err != nil {
		return nil, fmt.Errorf("create provider %s: %w", e.name, err)
	}
	return p, nil
}

// Hooks lists registered hooks sorted by name.
func (r *Registry) Hooks() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks.list()
}

// Providers lists registered providers sorted by name.
func (r *Registry) Providers() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers.list()
}

// LookupHook resolves alias to the hook registered under it without
// constructing anything.
func (r *Registry) LookupHook(alias string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, err := r.hooks.lookup(alias)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: e.name, Aliases: slices.Clone(e.aliases)}, nil
}

// LookupProvider resolves alias to the provider registered under it.
func (r *Registry) LookupProvider(alias string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, err := r.providers.lookup(alias)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: e.name, Aliases: slices.Clone(e.aliases)}, nil
}
