package pipeline

import "fmt"

// Stage names reported in StageError
const (
	StageSetup          = "setup"
	StageArchetypes     = "archetypes"
	StageSummary        = "professional_summary"
	StageSkills         = "skills"
	StageProjects       = "projects"
	StageExperience     = "experience"
	StageCoverLetter    = "cover_letter"
	StageEducation      = "education"
	StageCertifications = "certifications"
)

// StageError reports a sequential stage that could not complete. Validation failures
// never produce one; only generator or setup errors do.
type StageError struct {
	Stage string
	Cause error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("pipeline stage %s failed", e.Stage)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}
