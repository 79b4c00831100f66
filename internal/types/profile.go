// Package types provides type definitions for structured data used throughout the cv-tailor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the candidate's structured record. It is read-only input for the whole pipeline.
type Profile struct {
	Basics                 Basics                 `json:"basics" yaml:"basics"`
	SkillsBuckets          map[string]SkillBucket `json:"skills_buckets,omitempty" yaml:"skills_buckets,omitempty"`
	Skills                 map[string][]string    `json:"skills,omitempty" yaml:"skills,omitempty"`
	SoftSkills             []string               `json:"soft_skills,omitempty" yaml:"soft_skills,omitempty"`
	Languages              []Language             `json:"languages,omitempty" yaml:"languages,omitempty" validate:"dive"`
	Projects               []Project              `json:"projects,omitempty" yaml:"projects,omitempty" validate:"dive"`
	Experience             []ExperienceRole       `json:"experience,omitempty" yaml:"experience,omitempty" validate:"dive"`
	Education              []EducationEntry       `json:"education,omitempty" yaml:"education,omitempty" validate:"dive"`
	Certifications         []Certification        `json:"certifications,omitempty" yaml:"certifications,omitempty" validate:"dive"`
	CoverLetterPreferences CoverLetterPreferences `json:"cover_letter_preferences,omitempty" yaml:"cover_letter_preferences,omitempty"`
}

// Basics holds identity fields
type Basics struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Email   string `json:"email,omitempty" yaml:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// SkillBucket is one named bucket of the skills taxonomy
type SkillBucket struct {
	Items []string `json:"items" yaml:"items"`
}

// Language is a language-proficiency entry
type Language struct {
	Language string `json:"language" yaml:"language" validate:"required"`
	Fluency  string `json:"fluency,omitempty" yaml:"fluency,omitempty"`
}

// Project is a portfolio project
type Project struct {
	Name        string   `json:"name" yaml:"name" validate:"required"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty" yaml:"highlights,omitempty"`
}

// ExperienceRole is one position held at a company
type ExperienceRole struct {
	Company    string   `json:"company" yaml:"company" validate:"required"`
	Position   string   `json:"position" yaml:"position" validate:"required"`
	Location   string   `json:"location,omitempty" yaml:"location,omitempty"`
	StartDate  string   `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate    string   `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Highlights []string `json:"highlights,omitempty" yaml:"highlights,omitempty"`
}

// EducationEntry is one degree or program
type EducationEntry struct {
	Institution string   `json:"institution" yaml:"institution" validate:"required"`
	Area        string   `json:"area,omitempty" yaml:"area,omitempty"`
	StudyType   string   `json:"studyType,omitempty" yaml:"studyType,omitempty"`
	StartDate   string   `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Courses     []string `json:"courses,omitempty" yaml:"courses,omitempty"`
}

// Certification is a professional certificate
type Certification struct {
	Name   string `json:"name" yaml:"name" validate:"required"`
	Issuer string `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	Year   string `json:"year,omitempty" yaml:"year,omitempty"`
}

// CoverLetterPreferences holds cover letter steering inputs
type CoverLetterPreferences struct {
	CareerGoals StringList `json:"career_goals,omitempty" yaml:"career_goals,omitempty"`
}

// StringList decodes from either a single YAML scalar or a sequence of scalars.
type StringList []string

// UnmarshalYAML accepts both `key: value` and `key: [a, b]`.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if strings.TrimSpace(node.Value) == "" {
			*s = nil
			return nil
		}
		*s = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*s = items
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// String joins the list with ", "
func (s StringList) String() string {
	return strings.Join(s, ", ")
}

// FlattenSkills returns the sorted, de-duplicated union of all skill bucket items
func (p *Profile) FlattenSkills() []string {
	seen := make(map[string]struct{})
	for _, bucket := range p.SkillsBuckets {
		for _, item := range bucket.Items {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			seen[item] = struct{}{}
		}
	}

	flat := make([]string, 0, len(seen))
	for item := range seen {
		flat = append(flat, item)
	}
	sort.Strings(flat)
	return flat
}

// ProjectNames returns the names of all profile projects in profile order
func (p *Profile) ProjectNames() []string {
	names := make([]string, 0, len(p.Projects))
	for _, project := range p.Projects {
		names = append(names, project.Name)
	}
	return names
}
