package experience

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/cv-tailor/internal/schemas"
	"github.com/jonathan/cv-tailor/internal/types"
)

// LoadProfile reads a profile document from path. Files ending in .json are parsed as
// JSON, everything else as YAML. The document is checked against the profile schema,
// decoded, struct-validated and normalized.
func LoadProfile(path string) (*types.Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			Message: fmt.Sprintf("failed to read file %s", path),
			Cause:   err,
		}
	}
	return ParseProfile(content, formatFor(path))
}

// Format is the serialization of a profile document
type Format string

// Supported profile formats
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// ParseProfile decodes profile content of the given format
func ParseProfile(content []byte, format Format) (*types.Profile, error) {
	var doc any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(content, &doc); err != nil {
			return nil, &LoadError{Message: "failed to unmarshal JSON", Cause: err}
		}
	default:
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, &LoadError{Message: "failed to unmarshal YAML", Cause: err}
		}
	}
	if doc == nil {
		return nil, &LoadError{Message: "profile document is empty"}
	}
	doc = plainScalars(doc)

	if err := schemas.ValidateProfile(doc); err != nil {
		return nil, &ValidationError{Message: "schema validation failed", Cause: err}
	}

	// Re-encode through YAML so both formats share the scalar-or-list decoding
	// and numeric years or dates land in string fields.
	normalized, err := yaml.Marshal(doc)
	if err != nil {
		return nil, &LoadError{Message: "failed to re-encode profile", Cause: err}
	}
	var profile types.Profile
	if err := yaml.Unmarshal(normalized, &profile); err != nil {
		return nil, &LoadError{Message: "failed to decode profile", Cause: err}
	}

	if err := validator.New().Struct(&profile); err != nil {
		return nil, &ValidationError{Message: describe(err), Cause: err}
	}

	if err := NormalizeProfile(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// plainScalars replaces YAML timestamps with their date text so they validate and
// decode as strings
func plainScalars(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = plainScalars(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = plainScalars(item)
		}
		return val
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	default:
		return v
	}
}

// describe turns validator field errors into "'Namespace' failed 'tag'" messages
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("'%s' failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
