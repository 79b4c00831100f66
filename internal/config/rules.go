package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Per-section defaults used when a rule is present but leaves the limit unset
const (
	DefaultMaxBulletsPerProject  = 10
	DefaultRuleMaxBulletsPerRole = 5
)

// SectionRule holds the structural thresholds of one section. Zero values mean unset.
type SectionRule struct {
	MinLines          int      `yaml:"min_lines,omitempty"`
	MaxLines          int      `yaml:"max_lines,omitempty"`
	ForbiddenPatterns []string `yaml:"forbidden_patterns,omitempty"`

	DegreeLinePattern   string `yaml:"degree_line_pattern,omitempty"`
	CategoryLinePattern string `yaml:"category_line_pattern,omitempty"`
	BulletPattern       string `yaml:"bullet_pattern,omitempty"`

	MinProjects          int `yaml:"min_projects,omitempty"`
	MaxBulletsPerProject int `yaml:"max_bullets_per_project,omitempty"`
	MaxBulletsPerRole    int `yaml:"max_bullets_per_role,omitempty"`

	MinWords      int `yaml:"min_words,omitempty"`
	MaxWords      int `yaml:"max_words,omitempty"`
	MinParagraphs int `yaml:"min_paragraphs,omitempty"`
}

// BulletsPerProject returns the configured per-project limit or its default
func (r SectionRule) BulletsPerProject() int {
	if r.MaxBulletsPerProject > 0 {
		return r.MaxBulletsPerProject
	}
	return DefaultMaxBulletsPerProject
}

// BulletsPerRole returns the configured per-role limit or its default
func (r SectionRule) BulletsPerRole() int {
	if r.MaxBulletsPerRole > 0 {
		return r.MaxBulletsPerRole
	}
	return DefaultRuleMaxBulletsPerRole
}

// Rules is the validation rule set keyed by section name
type Rules struct {
	MaxRetries *int                   `yaml:"max_retries,omitempty"`
	Sections   map[string]SectionRule `yaml:",inline"`
}

// For returns the rule of a section and whether one is configured
func (r *Rules) For(section string) (SectionRule, bool) {
	if r == nil || r.Sections == nil {
		return SectionRule{}, false
	}
	rule, ok := r.Sections[section]
	return rule, ok
}

// EmptyRules returns a rule set with no constraints
func EmptyRules() *Rules {
	return &Rules{Sections: map[string]SectionRule{}}
}

// LoadRules reads validation rules from a YAML file. It never fails hard:
// a missing or malformed file yields empty rules together with the reason,
// which callers log as a warning.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return EmptyRules(), fmt.Errorf("no validation rules path configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return EmptyRules(), fmt.Errorf("failed to read validation rules %s: %w", path, err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return EmptyRules(), fmt.Errorf("failed to parse validation rules %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes a YAML rule document
func ParseRules(data []byte) (*Rules, error) {
	rules := EmptyRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, err
	}
	if rules.Sections == nil {
		rules.Sections = map[string]SectionRule{}
	}
	return rules, nil
}
