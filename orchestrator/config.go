package orchestrator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/phf/scheduler"
)

// HookSpec declares a hook created through the registry at startup.
type HookSpec struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args,omitempty"`
}

// ProviderSpec declares a provider and the hooks attached to it, in order.
type ProviderSpec struct {
	Name  string     `yaml:"name"`
	Args  []string   `yaml:"args,omitempty"`
	Hooks []HookSpec `yaml:"hooks,omitempty"`
}

// Config holds initialization parameters for an Orchestrator.
type Config struct {
	Name      string           `yaml:"name"`
	Observer  string           `yaml:"observer"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	Providers []ProviderSpec   `yaml:"providers,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	sched := scheduler.DefaultConfig()
	sched.Name = "phf"

	return Config{
		Name:      "phf",
		Observer:  "slog",
		Scheduler: sched,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}

	c.Scheduler.Merge(&source.Scheduler)

	if len(source.Providers) > 0 {
		c.Providers = source.Providers
	}
}

// LoadConfig reads a YAML config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
