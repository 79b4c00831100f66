package db

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/jonathan/cv-tailor/internal/types"
)

// SectionStep returns the artifact step holding a section's text
func SectionStep(section string) string {
	return SectionStepPrefix + section
}

// SectionViolations lists the violations of every section's accepted attempt
type SectionViolations struct {
	Section    string            `json:"section"`
	Passed     bool              `json:"passed"`
	Attempts   int               `json:"attempts"`
	Violations []types.Violation `json:"violations,omitempty"`
}

// SaveResult stores every section as a text artifact, and the archetypes, outcomes and
// outstanding violations as JSON artifacts. It saves as much as it can and returns the
// joined errors.
func (db *DB) SaveResult(ctx context.Context, runID uuid.UUID, result *types.PipelineResult) error {
	if result == nil {
		return nil
	}

	var errs []error
	sections := result.Sections()
	for _, name := range sortedKeys(sections) {
		if err := db.SaveTextArtifact(ctx, runID, SectionStep(name), CategorySections, sections[name]); err != nil {
			errs = append(errs, err)
		}
	}

	if err := db.SaveArtifact(ctx, runID, StepArchetypes, CategorySections, result.Archetypes); err != nil {
		errs = append(errs, err)
	}
	if err := db.SaveArtifact(ctx, runID, StepOutcomes, CategoryValidation, result.Outcomes); err != nil {
		errs = append(errs, err)
	}
	if err := db.SaveArtifact(ctx, runID, StepViolations, CategoryValidation, CollectViolations(result)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CollectViolations summarizes the accepted attempt of each section, sorted by section
func CollectViolations(result *types.PipelineResult) []SectionViolations {
	out := make([]SectionViolations, 0, len(result.Outcomes))
	for _, name := range sortedKeys(result.Outcomes) {
		outcome := result.Outcomes[name]
		if outcome == nil {
			continue
		}
		entry := SectionViolations{
			Section:  name,
			Passed:   outcome.Passed,
			Attempts: len(outcome.Attempts),
		}
		if n := len(outcome.Attempts); n > 0 {
			for _, res := range outcome.Attempts[n-1].Results {
				entry.Violations = append(entry.Violations, res.Violations...)
			}
		}
		out = append(out, entry)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
