// Package pipeline orchestrates archetype analysis and the generation of every CV section.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/generation"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/repair"
	"github.com/jonathan/cv-tailor/internal/selection"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
)

// Cover letter word bounds
const (
	CoverLetterMinWords = 180
	CoverLetterMaxWords = 350
)

// parallelLimit bounds the concurrent education and certification tasks
const parallelLimit = 2

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Profile        *types.Profile
	JobDescription string
	MaxRetries     int
	UseParallel    bool
	Rules          *config.Rules

	// Archetypes is the allowed taxonomy; nil means types.DefaultArchetypes
	Archetypes     []string
	ArchetypeCount int

	PoolSize          int
	MaxProjects       int
	MaxBulletsPerRole int

	Generator *generation.Generator
	Sink      observability.Sink
	Logger    *zerolog.Logger
}

// runner carries the per-run state shared by the stages
type runner struct {
	opts  RunOptions
	log   zerolog.Logger
	gen   *generation.Generator
	input generation.Input

	validators map[string][]validation.Validator
	factCheck  *validation.FactChecker

	mu     sync.Mutex
	result *types.PipelineResult
}

// Run executes the whole pipeline and returns the accepted text of every section.
// Generator errors in sequential stages abort the run with a *StageError; the education
// and certification tasks fail independently and leave their section empty.
func Run(ctx context.Context, opts RunOptions) (*types.PipelineResult, error) {
	if opts.Profile == nil {
		return nil, &StageError{Stage: StageSetup, Cause: errors.New("profile is required")}
	}
	if opts.Generator == nil {
		return nil, &StageError{Stage: StageSetup, Cause: errors.New("generator is required")}
	}

	r := newRunner(applyDefaults(opts))
	r.log.Info().Int("max_retries", r.opts.MaxRetries).Bool("parallel", r.opts.UseParallel).Msg("starting pipeline")

	archetypes, err := r.identifyArchetypes(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageArchetypes, Cause: err}
	}
	r.input.Archetypes = archetypes
	r.result.Archetypes = archetypes
	r.log.Info().Strs("archetypes", archetypes).Msg("identified archetypes")

	r.runParallelStage(ctx)

	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{StageSummary, r.summary},
		{StageSkills, r.skills},
		{StageProjects, r.projects},
		{StageExperience, r.experience},
		{StageCoverLetter, r.coverLetter},
	}
	for _, stage := range stages {
		r.log.Info().Str("stage", stage.name).Msg("generating section")
		if err := stage.run(ctx); err != nil {
			r.log.Error().Err(err).Str("stage", stage.name).Msg("stage failed")
			return nil, &StageError{Stage: stage.name, Cause: err}
		}
	}

	r.log.Info().Msg("pipeline complete")
	return r.result, nil
}

func applyDefaults(opts RunOptions) RunOptions {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Archetypes == nil {
		opts.Archetypes = types.DefaultArchetypes
	}
	if opts.ArchetypeCount <= 0 {
		opts.ArchetypeCount = types.ArchetypeCount
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = selection.DefaultPoolSize
	}
	if opts.MaxProjects <= 0 {
		opts.MaxProjects = generation.DefaultMaxProjects
	}
	if opts.MaxBulletsPerRole <= 0 {
		opts.MaxBulletsPerRole = generation.DefaultMaxBulletsPerRole
	}
	if opts.Rules == nil {
		opts.Rules = config.EmptyRules()
	}
	return opts
}

func newRunner(opts RunOptions) *runner {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	gen := *opts.Generator
	gen.MaxProjects = opts.MaxProjects
	gen.MaxBulletsPerRole = opts.MaxBulletsPerRole
	if gen.Sink == nil {
		gen.Sink = opts.Sink
	}

	return &runner{
		opts: opts,
		log:  log,
		gen:  &gen,
		input: generation.Input{
			Profile:        opts.Profile,
			JobDescription: opts.JobDescription,
		},
		validators: SectionValidators(opts.Profile, opts.Rules),
		factCheck:  validation.NewFactChecker(opts.Profile),
		result: &types.PipelineResult{
			Archetypes: []string{},
			Outcomes:   make(map[string]*types.SectionOutcome),
		},
	}
}

// identifyArchetypes retries archetype analysis with validator feedback and accepts
// the last list once retries are exhausted.
func (r *runner) identifyArchetypes(ctx context.Context) ([]string, error) {
	allowed, count := r.opts.Archetypes, r.opts.ArchetypeCount

	generate := func(ctx context.Context, feedback string) (any, error) {
		return r.gen.IdentifyArchetypes(ctx, r.opts.JobDescription, allowed, count, feedback)
	}
	check := func(v any) types.ValidationResult {
		return validation.ValidateArchetypes(v, allowed, count)
	}

	iterations, err := repair.Loop(ctx, StageArchetypes, generate,
		[]func(any) types.ValidationResult{check}, r.opts.MaxRetries, r.opts.Sink)
	if err != nil {
		return nil, err
	}

	last := iterations[len(iterations)-1]
	if !last.Passed {
		r.log.Warn().Strs("errors", resultMessages(last.Results)).Msg("accepting archetypes that failed validation")
	}
	return generation.ArchetypeStrings(last.Value), nil
}

// runParallelStage generates education and certifications, concurrently unless disabled.
// A failing task is logged and leaves its section empty; it never cancels its sibling.
func (r *runner) runParallelStage(ctx context.Context) {
	tasks := []struct {
		section string
		run     func(context.Context) error
	}{
		{StageEducation, r.education},
		{StageCertifications, r.certifications},
	}

	isolate := func(section string, run func(context.Context) error) {
		if err := run(ctx); err != nil {
			r.log.Warn().Err(err).Str("section", section).Msg("section generation failed, leaving it empty")
		}
	}

	if !r.opts.UseParallel {
		for _, t := range tasks {
			isolate(t.section, t.run)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(parallelLimit)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			isolate(t.section, t.run)
			return nil
		})
	}
	_ = g.Wait()
}

// store records an accepted section under the result lock
func (r *runner) store(section, text string, outcome *types.SectionOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch section {
	case types.SectionSummary:
		r.result.Summary = text
	case types.SectionEducation:
		r.result.Education = text
	case types.SectionCertifications:
		r.result.Certifications = text
	case types.SectionSkills:
		r.result.Skills = text
	case types.SectionProjects:
		r.result.Projects = text
	case types.SectionExperience:
		r.result.Experience = text
	case types.SectionCoverLetter:
		r.result.CoverLetter = text
	}
	if outcome != nil {
		r.result.Outcomes[section] = outcome
	}

	observability.Emit(r.opts.Sink, types.Step{
		Name:            "Section " + section,
		ProcessedOutput: text,
	})
}

func resultMessages(results []types.ValidationResult) []string {
	var msgs []string
	for _, res := range results {
		msgs = append(msgs, res.Messages()...)
	}
	return msgs
}
