package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents a pipeline run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Candidate   string     `json:"candidate"`
	JobExcerpt  string     `json:"job_excerpt"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Artifact steps
const (
	StepJobDescription = "job_description"
	StepJobMetadata    = "job_metadata"
	StepArchetypes     = "archetypes"
	StepOutcomes       = "section_outcomes"
	StepViolations     = "violations"

	// SectionStepPrefix prefixes the step of every section text artifact
	SectionStepPrefix = "section_"
)

// Artifact categories
const (
	CategoryInput      = "input"
	CategorySections   = "sections"
	CategoryValidation = "validation"
)

// jobExcerptChars bounds the job text kept on the run row
const jobExcerptChars = 500
