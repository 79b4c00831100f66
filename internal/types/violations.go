// Package types provides type definitions for structured data used throughout the cv-tailor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Violation source categories
const (
	SourceArchetype     = "archetype"
	SourceFormat        = "format"
	SourceLength        = "length"
	SourceProjectName   = "project name"
	SourceCertification = "certification name"
	SourceExperience    = "experience"
	SourceSkill         = "skill"
	SourceTool          = "tool"
)

// Violation represents a single validation failure
type Violation struct {
	Claim    string `json:"claim"`              // offending text fragment
	Source   string `json:"source"`             // validator category that raised it
	Expected string `json:"expected,omitempty"` // what would satisfy the rule
}

// Message renders the violation for corrective feedback
func (v Violation) Message() string {
	if v.Expected == "" {
		return v.Claim
	}
	return v.Claim + " (" + v.Expected + ")"
}

// ValidationResult is the outcome of one validator over one piece of text
type ValidationResult struct {
	Validator  string      `json:"validator,omitempty"`
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
	Feedback   string      `json:"feedback,omitempty"`
}

// Pass returns a passing result for the named validator
func Pass(validator string) ValidationResult {
	return ValidationResult{Validator: validator, Passed: true, Violations: []Violation{}}
}

// Messages returns the rendered message of every violation in order
func (r ValidationResult) Messages() []string {
	messages := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		messages = append(messages, v.Message())
	}
	return messages
}
