package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Renderer turns a named template plus placeholder values into a prompt
type Renderer interface {
	Render(key string, data map[string]string) (string, error)
}

// EmbeddedRenderer renders templates from an embedded prompt file
type EmbeddedRenderer struct {
	File string
}

// Default returns a renderer over the embedded section templates
func Default() *EmbeddedRenderer {
	return &EmbeddedRenderer{File: SectionsFile}
}

// Render looks up key and fills its placeholders
func (r *EmbeddedRenderer) Render(key string, data map[string]string) (string, error) {
	file := r.File
	if file == "" {
		file = SectionsFile
	}
	template, err := Get(file, key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(Format(template, data)), nil
}

// MapRenderer renders templates held in memory, falling back to another
// renderer for keys it does not define.
type MapRenderer struct {
	Templates map[string]string
	Fallback  Renderer
}

// Render looks up key locally, then in Fallback
func (r *MapRenderer) Render(key string, data map[string]string) (string, error) {
	if template, ok := r.Templates[key]; ok {
		return strings.TrimSpace(Format(template, data)), nil
	}
	if r.Fallback != nil {
		return r.Fallback.Render(key, data)
	}
	return "", fmt.Errorf("prompt key %q not found", key)
}

// LoadOverrides reads a YAML or JSON file of key -> template and layers it over
// the embedded templates. A top-level "prompts" mapping is also accepted.
func LoadOverrides(path string) (*MapRenderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt overrides %s: %w", path, err)
	}

	// YAML is a superset of JSON, so one decoder covers both extensions
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse prompt overrides %s: %w", filepath.Base(path), err)
	}
	if nested, ok := doc["prompts"].(map[string]any); ok {
		doc = nested
	}

	templates := make(map[string]string, len(doc))
	for key, value := range doc {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("prompt override %q must be a string", key)
		}
		templates[key] = s
	}

	return &MapRenderer{Templates: templates, Fallback: Default()}, nil
}
