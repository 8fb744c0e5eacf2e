// Package template loads and serves named generation parameter templates.
//
// A template file is a JSON object mapping template names to parameter
// objects, e.g.
//
//	{
//	  "portrait": {"width": 768, "height": 1024, "presetStyle": "CINEMATIC"},
//	  "sketch":   {"photoReal": false, "alchemy": false}
//	}
//
// The registry is built once at startup and is read-only afterwards, so it
// is safe to share across concurrently running jobs.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
)

// Params is one template's parameter set, keyed by generation field name.
type Params map[string]any

// Registry maps template names to their baseline parameter sets.
type Registry struct {
	templates map[string]Params
}

// Load reads a template registry from a JSON file.
//
// In strict mode a missing or malformed file is returned as an error. In
// lenient mode it degrades to an empty registry with a logged warning, so a
// broken template file never blocks template-less generation.
func Load(path string, strict bool) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return degrade(path, strict, err)
	}

	var templates map[string]Params
	if err := json.Unmarshal(data, &templates); err != nil {
		return degrade(path, strict, fmt.Errorf("parse templates: %w", err))
	}

	log.Debug().Str("file", path).Int("templates", len(templates)).Msg("Template registry loaded")
	return &Registry{templates: templates}, nil
}

// Empty returns a registry with no templates.
func Empty() *Registry {
	return &Registry{templates: map[string]Params{}}
}

// degrade applies the configured failure policy for an unloadable file.
func degrade(path string, strict bool, err error) (*Registry, error) {
	if strict {
		return nil, fmt.Errorf("load templates from %s: %w", path, err)
	}
	log.Warn().Err(err).Str("file", path).Msg("Failed to load templates, continuing with empty registry")
	return Empty(), nil
}

// Get returns a copy of the named template's parameters.
// The copy keeps callers from mutating registry state through the returned map.
func (r *Registry) Get(name string) (Params, bool) {
	tpl, ok := r.templates[name]
	if !ok {
		return nil, false
	}
	out := make(Params, len(tpl))
	for k, v := range tpl {
		out[k] = v
	}
	return out, true
}

// Names returns all template names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded templates.
func (r *Registry) Len() int {
	return len(r.templates)
}
