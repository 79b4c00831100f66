// Package types provides type definitions for structured data used throughout the cv-tailor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Section names
const (
	SectionSummary        = "professional_summary"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionProjects       = "projects"
	SectionExperience     = "experience"
	SectionCertifications = "certifications"
	SectionCoverLetter    = "cover_letter"
)

// AllSections lists every section in document order
var AllSections = []string{
	SectionSummary,
	SectionEducation,
	SectionSkills,
	SectionProjects,
	SectionExperience,
	SectionCertifications,
	SectionCoverLetter,
}

// IsSection reports whether name is a known section
func IsSection(name string) bool {
	for _, s := range AllSections {
		if s == name {
			return true
		}
	}
	return false
}

// DefaultArchetypes is the closed role-category taxonomy
var DefaultArchetypes = []string{
	"data_analytics",
	"software_engineering",
	"embedded_systems",
	"mechanical_engineering",
	"project_management",
	"research_ml",
	"cloud_devops",
	"manufacturing_quality",
	"supply_chain",
	"consulting_enablement",
	"digital_transformation",
}

// ArchetypeCount is how many archetypes a run selects
const ArchetypeCount = 3

// Attempt is one generate-then-validate pass for a section
type Attempt struct {
	Index    int                `json:"index"`
	Feedback string             `json:"feedback,omitempty"` // feedback the attempt was generated with
	Raw      string             `json:"raw"`
	Text     string             `json:"text"`
	Results  []ValidationResult `json:"results,omitempty"`
	Passed   bool               `json:"passed"`
}

// SectionOutcome is the accepted text of a section plus the attempts that produced it
type SectionOutcome struct {
	Section  string    `json:"section"`
	Text     string    `json:"text"`
	Passed   bool      `json:"passed"`
	Attempts []Attempt `json:"attempts"`
}

// PipelineResult maps each section to its accepted text
type PipelineResult struct {
	Summary        string   `json:"summary"`
	Education      string   `json:"education"`
	Skills         string   `json:"skills"`
	Certifications string   `json:"certifications"`
	Projects       string   `json:"projects"`
	Experience     string   `json:"experience"`
	CoverLetter    string   `json:"cover_letter"`
	Archetypes     []string `json:"archetypes"`

	// Outcomes holds per-section attempt history, keyed by section name
	Outcomes map[string]*SectionOutcome `json:"outcomes,omitempty"`
}

// Sections returns section name -> text for every section in document order
func (r *PipelineResult) Sections() map[string]string {
	return map[string]string{
		SectionSummary:        r.Summary,
		SectionEducation:      r.Education,
		SectionSkills:         r.Skills,
		SectionProjects:       r.Projects,
		SectionExperience:     r.Experience,
		SectionCertifications: r.Certifications,
		SectionCoverLetter:    r.CoverLetter,
	}
}

// Step is one observability event emitted at a pipeline transition
type Step struct {
	Name            string         `json:"name"`
	Prompt          string         `json:"prompt,omitempty"`
	RawOutput       string         `json:"raw_output,omitempty"`
	ProcessedOutput string         `json:"processed_output,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}
