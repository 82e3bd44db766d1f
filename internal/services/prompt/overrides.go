package prompt

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Override adjusts a built-in template without a rebuild. Only literal system
// texts can be replaced; derived texts depend on request context and stay as
// compiled. A version change here invalidates existing cache entries exactly
// like a code-level bump.
type Override struct {
	Version    string `yaml:"version"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	System     string `yaml:"system"`
}

// NewRegistryWithOverrides builds the built-in set, then applies overrides
// from a YAML file mapping promptId -> Override. The file is read once at
// startup; the registry stays immutable afterwards.
func NewRegistryWithOverrides(path string) (*Registry, error) {
	r := NewRegistry()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt overrides: %w", err)
	}

	overrides := make(map[string]Override)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse prompt overrides: %w", err)
	}

	for id, ov := range overrides {
		t, ok := r.templates[id]
		if !ok {
			return nil, fmt.Errorf("prompt override for unknown template %q", id)
		}
		if ov.Version != "" {
			t.Version = ov.Version
		}
		if ov.TTLSeconds > 0 {
			t.TTL = time.Duration(ov.TTLSeconds) * time.Second
		}
		if ov.System != "" {
			if !t.System.IsLiteral() {
				return nil, fmt.Errorf("template %q has a derived system text; it cannot be overridden", id)
			}
			t.System = Literal(ov.System)
		}
	}

	return r, nil
}
