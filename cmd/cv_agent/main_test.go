package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/generation"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/types"
)

const testProfileYAML = `
basics:
  name: Jane Doe
  label: Data Engineer
skills_buckets:
  programming:
    items: [Python, SQL]
soft_skills: [Communication]
languages:
  - language: English
    fluency: Native
projects:
  - name: Lane Detector
    description: Built a lane detector in Python with OpenCV
  - name: Recipe Blog
    description: Static site for recipes
experience:
  - company: Acme Corp
    position: Data Engineer
    location: Berlin
education:
  - institution: Example University
    area: Computer Science
`

// labelGenerator answers every call with the fixed text of its label
type labelGenerator struct {
	mu      sync.Mutex
	answers map[string]string
	calls   map[string]int
}

func (g *labelGenerator) Generate(_ context.Context, _, label string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[label]++
	return g.answers[label], nil
}

func newLabelGenerator() *labelGenerator {
	para := strings.TrimSpace(strings.Repeat("Data engineering work delivered measurable value. ", 10))
	return &labelGenerator{
		calls: map[string]int{},
		answers: map[string]string{
			generation.LabelArchetypes:  `{"archetypes": ["data_analytics", "software_engineering", "cloud_devops"]}`,
			generation.LabelEducation:   "**BSc Computer Science** — Example University",
			generation.LabelSummary:     "Data Engineer with five years of pipeline experience.",
			generation.LabelSkills:      "**Programming:** Python, SQL",
			generation.LabelSoftSkills:  "**Soft Skills:** Communication",
			generation.LabelProjects:    "**Lane Detector**\n- Built a detector in Python",
			generation.LabelExperience:  "**Data Engineer**, Acme Corp, Berlin\n- Built ETL pipelines",
			generation.LabelCoverLetter: para + "\n\n" + para + "\n\n" + para,
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func stubGenerator(t *testing.T, gen llm.TextGenerator) {
	t.Helper()
	original := newTextGenerator
	newTextGenerator = func(context.Context, config.Config, zerolog.Logger) (llm.TextGenerator, func() error, error) {
		return gen, func() error { return nil }, nil
	}
	t.Cleanup(func() { newTextGenerator = original })
}

func TestRun_MissingInputs(t *testing.T) {
	_, _, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--profile must be provided")

	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", testProfileYAML)
	_, _, err = execute(t, "run", "--profile", profile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either --job or --job-url must be provided")
}

func TestRun_EndToEndJSON(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	gen := newLabelGenerator()
	stubGenerator(t, gen)

	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", testProfileYAML)
	job := writeFile(t, dir, "job.txt", "Data engineer: Python, SQL, OpenCV pipelines.")

	stdout, _, err := execute(t, "run", "--profile", profile, "--job", job,
		"--rules", filepath.Join(dir, "missing.yaml"), "--log-level", "error")
	require.NoError(t, err)

	var result types.PipelineResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, []string{"data_analytics", "software_engineering", "cloud_devops"}, result.Archetypes)
	assert.Equal(t, "**Lane Detector**\n\n- Built a detector in Python", result.Projects)
	assert.Empty(t, result.Certifications)
	assert.Zero(t, gen.calls[generation.LabelCertifications])
}

func TestRun_MarkdownToFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	stubGenerator(t, newLabelGenerator())

	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", testProfileYAML)
	job := writeFile(t, dir, "job.txt", "Data engineer: Python and SQL.")
	out := filepath.Join(dir, "out", "cv.md")

	_, _, err := execute(t, "run", "-p", profile, "-j", job, "-o", out, "--format", "markdown",
		"--rules", filepath.Join(dir, "missing.yaml"), "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	md := string(data)
	assert.True(t, strings.HasPrefix(md, "<!-- archetypes: data_analytics, software_engineering, cloud_devops -->"))
	assert.Contains(t, md, "## Professional Summary\n\nData Engineer with five years of pipeline experience.")
	assert.NotContains(t, md, "## Certifications")
	assert.Less(t, strings.Index(md, "## Skills"), strings.Index(md, "## Cover Letter"))
}

func TestResolveRunConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", testProfileYAML)
	job := writeFile(t, dir, "job.txt", "Data engineer")
	cfgPath := writeFile(t, dir, "config.json",
		`{"profile": "`+profile+`", "job": "`+job+`", "max_retries": 4, "pool_size": 5, "format": "markdown"}`)

	f := &runFlags{}
	cmd := &cobra.Command{Use: "run"}
	bindRunFlags(cmd, f)
	require.NoError(t, cmd.ParseFlags([]string{"--config", cfgPath, "--pool-size", "3"}))

	cfg, explicit, err := resolveRunConfig(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.PoolSize)
	assert.Equal(t, "markdown", cfg.Format)
	assert.Equal(t, config.DefaultMaxProjects, cfg.MaxProjects)
	require.NotNil(t, explicit)
	assert.Equal(t, 4, *explicit)
}

func TestResolveRunConfig_RetriesUnsetWithoutFlagOrFile(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", testProfileYAML)
	job := writeFile(t, dir, "job.txt", "Data engineer")

	f := &runFlags{}
	cmd := &cobra.Command{Use: "run"}
	bindRunFlags(cmd, f)
	require.NoError(t, cmd.ParseFlags([]string{"--profile", profile, "--job", job}))

	cfg, explicit, err := resolveRunConfig(cmd, f)
	require.NoError(t, err)
	assert.Nil(t, explicit)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, config.DefaultPoolSize, cfg.PoolSize)
}

func TestResolveRunConfig_ExclusiveJobSources(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", testProfileYAML)
	job := writeFile(t, dir, "job.txt", "Data engineer")

	f := &runFlags{}
	cmd := &cobra.Command{Use: "run"}
	bindRunFlags(cmd, f)
	require.NoError(t, cmd.ParseFlags([]string{"-p", profile, "-j", job, "--job-url", "https://example.com/job"}))

	_, _, err := resolveRunConfig(cmd, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestEffectiveRetries(t *testing.T) {
	three, one := 3, 1
	assert.Equal(t, 3, effectiveRetries(&three, &config.Rules{MaxRetries: &one}))
	assert.Equal(t, 1, effectiveRetries(nil, &config.Rules{MaxRetries: &one}))
	assert.Equal(t, config.DefaultMaxRetries, effectiveRetries(nil, config.EmptyRules()))
	assert.Equal(t, config.DefaultMaxRetries, effectiveRetries(nil, nil))
}

func TestPrefilter_JSON(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", testProfileYAML)
	job := writeFile(t, dir, "job.txt", "Computer vision engineer: Python, OpenCV, lane detection.")

	stdout, _, err := execute(t, "prefilter", "-p", profile, "-j", job, "--json", "--pool-size", "1")
	require.NoError(t, err)

	var rows []struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Lane Detector", rows[0].Name)
	assert.Positive(t, rows[0].Score)
}

func TestValidate_ExperienceBulletLimit(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", testProfileYAML)
	rules := writeFile(t, dir, "rules.yaml", "experience:\n  max_bullets_per_role: 5\n")
	text := writeFile(t, dir, "experience.md",
		"**Data Engineer**, Acme Corp, Berlin\n- a\n- b\n- c\n- d\n- e\n- f")

	stdout, _, err := execute(t, "validate", "-s", types.SectionExperience, "-t", text, "-p", profile, "--rules", rules)
	require.ErrorIs(t, err, errValidationFailed)
	assert.Contains(t, stdout, "Experience role has 6 bullets; max 5 per role")
	assert.Contains(t, stdout, `"passed": false`)
}

func TestValidate_ArchetypesFromStdin(t *testing.T) {
	root := newRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(`{"archetypes": ["data_analytics", "software_engineering", "cloud_devops"]}`))
	root.SetArgs([]string{"validate", "--section", "archetypes"})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), `"passed": true`)
}

func TestValidate_UnknownSection(t *testing.T) {
	_, _, err := execute(t, "validate", "-s", "hobbies")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown section "hobbies"`)
}

func TestRenderResult_UnknownFormat(t *testing.T) {
	_, err := renderResult(&types.PipelineResult{}, "latex")
	assert.EqualError(t, err, `unknown output format "latex"`)
}
