package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/generation"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator answers each label from a script; the last answer repeats
type scriptedGenerator struct {
	mu      sync.Mutex
	script  map[string][]string
	errs    map[string]error
	calls   map[string]int
	prompts map[string][]string
}

func newScripted(script map[string][]string) *scriptedGenerator {
	return &scriptedGenerator{
		script:  script,
		errs:    map[string]error{},
		calls:   map[string]int{},
		prompts: map[string][]string{},
	}
}

func (s *scriptedGenerator) Generate(_ context.Context, prompt, label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls[label]
	s.calls[label]++
	s.prompts[label] = append(s.prompts[label], prompt)
	if err := s.errs[label]; err != nil {
		return "", err
	}
	answers := s.script[label]
	if len(answers) == 0 {
		return "", nil
	}
	if i >= len(answers) {
		i = len(answers) - 1
	}
	return answers[i], nil
}

func (s *scriptedGenerator) count(label string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[label]
}

func (s *scriptedGenerator) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func coverLetterText() string {
	para := strings.TrimSpace(strings.Repeat("Data engineering work delivered measurable value. ", 10))
	return para + "\n\n" + para + "\n\n" + para
}

func defaultScript() map[string][]string {
	return map[string][]string{
		generation.LabelArchetypes:     {`{"archetypes": ["data_analytics", "software_engineering", "cloud_devops"]}`},
		generation.LabelEducation:      {"**BSc Computer Science** — Example University, 2016 – 2020\n- Relevant Coursework: Databases"},
		generation.LabelCertifications: {"- AWS Certified Cloud Practitioner — Amazon (2023)"},
		generation.LabelSummary:        {"Data Engineer with five years of pipeline experience.\nFocused on reliable analytics."},
		generation.LabelSkills:         {"**Programming:** Python, SQL"},
		generation.LabelSoftSkills:     {"**Soft Skills:** Communication"},
		generation.LabelProjects:       {"**Lane Detector**\n- Built a detector in Python"},
		generation.LabelExperience:     {"**Data Engineer**, Acme Corp, Berlin\n2020 – 2024\n- Built ETL pipelines\n- Cut costs"},
		generation.LabelCoverLetter:    {coverLetterText()},
	}
}

func testProfile() *types.Profile {
	return &types.Profile{
		Basics: types.Basics{Name: "Jane Doe", Label: "Data Engineer"},
		SkillsBuckets: map[string]types.SkillBucket{
			"programming": {Items: []string{"Python", "SQL"}},
		},
		SoftSkills: []string{"Communication"},
		Languages:  []types.Language{{Language: "English", Fluency: "Native"}},
		Projects: []types.Project{
			{Name: "Lane Detector", Description: "Built a lane detector in Python"},
		},
		Experience: []types.ExperienceRole{
			{Company: "Acme Corp", Position: "Data Engineer", Location: "Berlin"},
		},
		Education: []types.EducationEntry{
			{Institution: "Example University", Area: "Computer Science", Courses: []string{"Databases"}},
		},
		Certifications: []types.Certification{
			{Name: "AWS Certified Cloud Practitioner", Issuer: "Amazon", Year: "2023"},
		},
	}
}

func options(gen *scriptedGenerator, profile *types.Profile) RunOptions {
	return RunOptions{
		Profile:        profile,
		JobDescription: "Data engineer role: Python, SQL, pipelines and cloud.",
		MaxRetries:     2,
		UseParallel:    true,
		Generator:      generation.New(gen, nil, nil),
	}
}

func TestRun_HappyPath(t *testing.T) {
	gen := newScripted(defaultScript())

	res, err := Run(context.Background(), options(gen, testProfile()))
	require.NoError(t, err)

	assert.Equal(t, []string{"data_analytics", "software_engineering", "cloud_devops"}, res.Archetypes)
	assert.Contains(t, res.Education, "**BSc Computer Science**")
	assert.Equal(t, "- AWS Certified Cloud Practitioner — Amazon (2023)", res.Certifications)
	assert.Equal(t, "Data Engineer with five years of pipeline experience.\n\nFocused on reliable analytics.", res.Summary)
	assert.Equal(t, "**Programming:** Python, SQL\n\n**Soft Skills:** Communication\n\n**Languages:** English (Native)", res.Skills)
	assert.Equal(t, "**Lane Detector**\n\n- Built a detector in Python", res.Projects)
	assert.Contains(t, res.Experience, "**Data Engineer**, Acme Corp, Berlin")
	assert.Equal(t, coverLetterText(), res.CoverLetter)

	// one call per generated section plus the soft skills selection
	assert.Equal(t, 9, gen.total())
	for _, section := range []string{
		types.SectionSummary, types.SectionEducation, types.SectionSkills, types.SectionProjects,
		types.SectionExperience, types.SectionCertifications, types.SectionCoverLetter,
	} {
		require.Contains(t, res.Outcomes, section)
		assert.True(t, res.Outcomes[section].Passed, section)
	}
}

func TestRun_EmptyProjectsAndCertificationsMakeNoCalls(t *testing.T) {
	gen := newScripted(defaultScript())
	profile := testProfile()
	profile.Projects = nil
	profile.Certifications = nil

	var steps []types.Step
	opts := options(gen, profile)
	opts.Sink = func(s types.Step) { steps = append(steps, s) }
	opts.UseParallel = false

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Empty(t, res.Projects)
	assert.Empty(t, res.Certifications)
	assert.Zero(t, gen.count(generation.LabelProjects))
	assert.Zero(t, gen.count(generation.LabelCertifications))
	for _, s := range steps {
		assert.NotEqual(t, "Project Pre-filter", s.Name)
	}
}

func TestRun_EmptySkillVocabularySkipsTechSkills(t *testing.T) {
	script := defaultScript()
	script[generation.LabelSkills] = []string{"**Cloud:** Kubernetes, Terraform"}
	gen := newScripted(script)
	profile := testProfile()
	profile.SkillsBuckets = nil
	profile.Skills = nil

	res, err := Run(context.Background(), options(gen, profile))
	require.NoError(t, err)

	assert.Zero(t, gen.count(generation.LabelSkills))
	assert.Equal(t, "**Soft Skills:** Communication\n\n**Languages:** English (Native)", res.Skills)
	assert.NotContains(t, res.Skills, "Kubernetes")
	assert.NotContains(t, res.Outcomes, types.SectionSkills)
}

func TestRun_Idempotent(t *testing.T) {
	first, err := Run(context.Background(), options(newScripted(defaultScript()), testProfile()))
	require.NoError(t, err)
	second, err := Run(context.Background(), options(newScripted(defaultScript()), testProfile()))
	require.NoError(t, err)

	assert.Equal(t, first.Sections(), second.Sections())
	assert.Equal(t, first.Archetypes, second.Archetypes)
}

func TestRun_ParallelFailureIsIsolated(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		gen := newScripted(defaultScript())
		gen.errs[generation.LabelCertifications] = &llm.ServiceError{Kind: llm.ServiceUnavailable, Label: generation.LabelCertifications}

		opts := options(gen, testProfile())
		opts.UseParallel = parallel
		res, err := Run(context.Background(), opts)
		require.NoError(t, err)

		assert.Empty(t, res.Certifications)
		assert.NotEmpty(t, res.Education)
		assert.NotEmpty(t, res.CoverLetter)
	}
}

func TestRun_SequentialServiceErrorAborts(t *testing.T) {
	gen := newScripted(defaultScript())
	cause := &llm.ServiceError{Kind: llm.ServiceUnavailable, Label: generation.LabelSummary, Cause: errors.New("connection refused")}
	gen.errs[generation.LabelSummary] = cause

	res, err := Run(context.Background(), options(gen, testProfile()))
	require.Error(t, err)
	assert.Nil(t, res)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageSummary, stageErr.Stage)
	assert.ErrorIs(t, err, llm.ErrServiceUnavailable)
	assert.Zero(t, gen.count(generation.LabelCoverLetter))
}

func TestRun_ArchetypeFeedbackIsInjected(t *testing.T) {
	script := defaultScript()
	script[generation.LabelArchetypes] = []string{
		`{"archetypes": ["data_analytics", "astronaut"]}`,
		`{"archetypes": ["data_analytics", "research_ml", "cloud_devops"]}`,
	}
	gen := newScripted(script)

	res, err := Run(context.Background(), options(gen, testProfile()))
	require.NoError(t, err)

	assert.Equal(t, []string{"data_analytics", "research_ml", "cloud_devops"}, res.Archetypes)
	require.Equal(t, 2, gen.count(generation.LabelArchetypes))
	assert.Contains(t, gen.prompts[generation.LabelArchetypes][1], "Invalid archetype 'astronaut' at index 1")
}

func TestRun_ArchetypesAcceptedAfterExhaustion(t *testing.T) {
	script := defaultScript()
	script[generation.LabelArchetypes] = []string{`{"archetypes": ["data_analytics", 7]}`}
	gen := newScripted(script)

	opts := options(gen, testProfile())
	opts.MaxRetries = 1
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, gen.count(generation.LabelArchetypes))
	assert.Equal(t, []string{"data_analytics"}, res.Archetypes)
}

func TestRun_ExperienceRetriedThenClamped(t *testing.T) {
	script := defaultScript()
	script[generation.LabelExperience] = []string{
		"**Data Engineer**, Acme Corp, Berlin\n- a\n- b\n- c\n- d\n- e\n- f\n- g",
	}
	gen := newScripted(script)

	opts := options(gen, testProfile())
	opts.Rules = &config.Rules{Sections: map[string]config.SectionRule{
		types.SectionExperience: {MaxBulletsPerRole: 5},
	}}
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, gen.count(generation.LabelExperience))
	outcome := res.Outcomes[types.SectionExperience]
	require.NotNil(t, outcome)
	assert.False(t, outcome.Passed)
	assert.Contains(t, outcome.Attempts[1].Feedback, "Experience role has 7 bullets; max 5 per role")

	assert.Equal(t, 5, strings.Count(res.Experience, "\n- ")+boolToInt(strings.HasPrefix(res.Experience, "- ")))
	assert.NotContains(t, res.Experience, "- f")
}

func TestRun_RequiresProfileAndGenerator(t *testing.T) {
	_, err := Run(context.Background(), RunOptions{})
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageSetup, stageErr.Stage)

	_, err = Run(context.Background(), RunOptions{Profile: testProfile()})
	require.True(t, errors.As(err, &stageErr))
	assert.Contains(t, err.Error(), "generator is required")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestSectionValidators(t *testing.T) {
	validators := SectionValidators(testProfile(), config.EmptyRules())
	for _, section := range types.AllSections {
		assert.NotEmpty(t, validators[section], section)
	}
	assert.Len(t, validators[types.SectionExperience], 3)
	assert.Equal(t, "length", validators[types.SectionCoverLetter][0].Name())
}
