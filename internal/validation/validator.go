// Package validation checks generated CV sections against structural rules and the candidate profile.
package validation

import (
	"regexp"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// Validator names, reported in ValidationResult.Validator
const (
	NameArchetype     = "archetype"
	NameFormat        = "format"
	NameFactCheck     = "fact_check"
	NameHallucination = "hallucination"
	NameLength        = "length"
)

// maxFeedbackViolations caps how many violations are rendered into retry feedback
const maxFeedbackViolations = 5

// FailedPrefix starts every synthesized feedback string
const FailedPrefix = "VALIDATION FAILED: "

// Validator checks one section's text. Implementations are pure and safe for concurrent use.
type Validator interface {
	Name() string
	Validate(section, text string) types.ValidationResult
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	boldHeaderRe = regexp.MustCompile(`\*\*[^*]+\*\*`)
)

// normalize case-folds s and collapses whitespace runs to single spaces
func normalize(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// containsEither reports whether a contains b or b contains a
func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// matchesAny reports whether needle matches some non-empty candidate in either direction
func matchesAny(needle string, candidates []string) bool {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if containsEither(needle, c) {
			return true
		}
	}
	return false
}

// splitBoldBlocks splits text so that every block after the first starts at a **…** header.
// The leading block holds whatever precedes the first header and may be empty.
func splitBoldBlocks(text string) []string {
	locs := boldHeaderRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	blocks := make([]string, 0, len(locs)+1)
	blocks = append(blocks, text[:locs[0][0]])
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, text[loc[0]:end])
	}
	return blocks
}

// feedbackFrom renders the first maxFeedbackViolations messages after prefix
func feedbackFrom(prefix string, messages []string) string {
	if len(messages) == 0 {
		return ""
	}
	if len(messages) > maxFeedbackViolations {
		messages = messages[:maxFeedbackViolations]
	}
	return prefix + strings.Join(messages, "; ")
}

// result builds a ValidationResult whose Passed flag follows the violation list
func result(name string, violations []types.Violation, feedback string) types.ValidationResult {
	if violations == nil {
		violations = []types.Violation{}
	}
	return types.ValidationResult{
		Validator:  name,
		Passed:     len(violations) == 0,
		Violations: violations,
		Feedback:   feedback,
	}
}

// dedupe returns the non-empty values of in, in first-seen order
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
