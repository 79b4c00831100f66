package validation

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// ValidateArchetypes checks a parsed archetype value against the allowed taxonomy.
// raw is whatever the model's JSON produced: anything other than a list fails at once.
// Count mismatch, duplicates and every bad element are each reported in one pass.
func ValidateArchetypes(raw any, allowed []string, expected int) types.ValidationResult {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		return result(NameArchetype, []types.Violation{{
			Claim:  "Archetypes must be a list",
			Source: types.SourceArchetype,
		}}, "")
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}
	choices := "[" + strings.Join(allowed, ", ") + "]"

	var violations []types.Violation
	if len(items) != expected {
		violations = append(violations, types.Violation{
			Claim:  fmt.Sprintf("Expected exactly %d archetypes, got %d", expected, len(items)),
			Source: types.SourceArchetype,
		})
	}

	seen := make(map[string]int, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			violations = append(violations, types.Violation{
				Claim:    fmt.Sprintf("Invalid archetype %v at index %d: must be a string, got %T", item, i, item),
				Source:   types.SourceArchetype,
				Expected: "Choose only from: " + choices,
			})
			continue
		}
		if _, ok := allowedSet[s]; !ok {
			violations = append(violations, types.Violation{
				Claim:    fmt.Sprintf("Invalid archetype '%s' at index %d", s, i),
				Source:   types.SourceArchetype,
				Expected: "Choose only from: " + choices,
			})
			continue
		}
		if first, dup := seen[s]; dup {
			violations = append(violations, types.Violation{
				Claim:    fmt.Sprintf("Duplicate archetype '%s' at index %d (first at %d)", s, i, first),
				Source:   types.SourceArchetype,
				Expected: "Each archetype at most once",
			})
			continue
		}
		seen[s] = i
	}

	var msgs []string
	for _, v := range violations {
		msgs = append(msgs, v.Message())
	}
	return result(NameArchetype, violations, feedbackFrom(FailedPrefix, msgs))
}

// ValidateArchetypeList is ValidateArchetypes for an already typed list
func ValidateArchetypeList(archetypes []string, allowed []string, expected int) types.ValidationResult {
	if archetypes == nil {
		archetypes = []string{}
	}
	return ValidateArchetypes(archetypes, allowed, expected)
}
