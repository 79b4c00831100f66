package pipeline

import (
	"context"

	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/generation"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/repair"
	"github.com/jonathan/cv-tailor/internal/selection"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
)

// SectionValidators returns the validators gating each generated section
func SectionValidators(profile *types.Profile, rules *config.Rules) map[string][]validation.Validator {
	format := validation.NewFormatValidator(rules)
	factCheck := validation.NewFactChecker(profile)
	hallucination := validation.NewHallucinationDetector(profile)
	length := validation.NewLengthValidator(validation.WordRange(CoverLetterMinWords, CoverLetterMaxWords))

	return map[string][]validation.Validator{
		types.SectionSummary:        {format},
		types.SectionEducation:      {format, factCheck},
		types.SectionCertifications: {format, factCheck},
		types.SectionSkills:         {format, hallucination},
		types.SectionProjects:       {format, factCheck, hallucination},
		types.SectionExperience:     {format, factCheck, hallucination},
		types.SectionCoverLetter:    {length, format},
	}
}

// checks binds validators to one section
func checks(section string, validators ...validation.Validator) []repair.Check {
	out := make([]repair.Check, 0, len(validators))
	for _, v := range validators {
		v := v
		out = append(out, func(text string) types.ValidationResult {
			return v.Validate(section, text)
		})
	}
	return out
}

// retry runs a section generator through the retry controller
func (r *runner) retry(
	ctx context.Context,
	section string,
	generate func(context.Context, generation.Input, string) (string, error),
) (*types.SectionOutcome, error) {
	gen := func(ctx context.Context, feedback string) (string, error) {
		return generate(ctx, r.input, feedback)
	}
	outcome, err := repair.Run(ctx, section, gen, checks(section, r.validators[section]...), r.opts.MaxRetries, r.opts.Sink)
	if err != nil {
		return nil, err
	}
	if !outcome.Passed {
		r.log.Warn().
			Str("section", section).
			Int("attempts", len(outcome.Attempts)).
			Msg("accepting last attempt after validation retries were exhausted")
	}
	return outcome, nil
}

func (r *runner) education(ctx context.Context) error {
	if len(r.opts.Profile.Education) == 0 {
		r.store(types.SectionEducation, "", nil)
		return nil
	}
	outcome, err := r.retry(ctx, types.SectionEducation, r.gen.Education)
	if err != nil {
		return err
	}
	for _, note := range r.factCheck.EducationAdvisories(outcome.Text) {
		r.log.Info().Str("section", types.SectionEducation).Msg(note)
	}
	r.store(types.SectionEducation, generation.NormalizeSpacing(outcome.Text), outcome)
	return nil
}

func (r *runner) certifications(ctx context.Context) error {
	if len(r.opts.Profile.Certifications) == 0 {
		r.store(types.SectionCertifications, "", nil)
		return nil
	}
	outcome, err := r.retry(ctx, types.SectionCertifications, r.gen.Certifications)
	if err != nil {
		return err
	}
	r.store(types.SectionCertifications, generation.NormalizeSpacing(outcome.Text), outcome)
	return nil
}

func (r *runner) summary(ctx context.Context) error {
	outcome, err := r.retry(ctx, types.SectionSummary, r.gen.ProfessionalSummary)
	if err != nil {
		return err
	}
	r.store(types.SectionSummary, generation.NormalizeSpacing(outcome.Text), outcome)
	return nil
}

// skills validates only the generated technical part; soft skills come from a single
// call and languages straight from the profile. Each part is skipped when the profile
// has nothing for it.
func (r *runner) skills(ctx context.Context) error {
	var (
		tech    string
		outcome *types.SectionOutcome
	)
	if len(r.opts.Profile.FlattenSkills()) > 0 {
		var err error
		outcome, err = r.retry(ctx, types.SectionSkills, r.gen.TechSkills)
		if err != nil {
			return err
		}
		tech = outcome.Text
	}

	soft, err := r.gen.SoftSkills(ctx, r.input)
	if err != nil {
		return err
	}

	combined := generation.CombineSkills(tech, soft, generation.Languages(r.opts.Profile))
	r.store(types.SectionSkills, generation.NormalizeSpacing(combined), outcome)
	return nil
}

func (r *runner) projects(ctx context.Context) error {
	if len(r.opts.Profile.Projects) == 0 {
		r.store(types.SectionProjects, "", nil)
		return nil
	}

	candidates := selection.FilterProjects(r.opts.Profile.Projects, r.opts.JobDescription, r.opts.PoolSize, r.opts.Sink)
	r.log.Info().
		Int("total_projects", len(r.opts.Profile.Projects)).
		Int("candidates", len(candidates)).
		Msg("pre-filtered projects")
	if len(candidates) == 0 {
		r.store(types.SectionProjects, "", nil)
		return nil
	}

	generate := func(ctx context.Context, in generation.Input, feedback string) (string, error) {
		return r.gen.Projects(ctx, in, candidates, feedback)
	}
	outcome, err := r.retry(ctx, types.SectionProjects, generate)
	if err != nil {
		return err
	}
	r.store(types.SectionProjects, generation.NormalizeSpacing(outcome.Text), outcome)
	return nil
}

// experience clamps bullets per role after acceptance, whether or not validation passed
func (r *runner) experience(ctx context.Context) error {
	outcome, err := r.retry(ctx, types.SectionExperience, r.gen.Experience)
	if err != nil {
		return err
	}

	clamped := generation.EnforceBulletLimit(outcome.Text, r.opts.MaxBulletsPerRole)
	if clamped != outcome.Text {
		observability.Emit(r.opts.Sink, types.Step{
			Name:            "Experience Bullet Limit",
			RawOutput:       outcome.Text,
			ProcessedOutput: clamped,
		})
	}
	r.store(types.SectionExperience, generation.NormalizeSpacing(clamped), outcome)
	return nil
}

func (r *runner) coverLetter(ctx context.Context) error {
	outcome, err := r.retry(ctx, types.SectionCoverLetter, r.gen.CoverLetter)
	if err != nil {
		return err
	}
	r.store(types.SectionCoverLetter, outcome.Text, outcome)
	return nil
}
