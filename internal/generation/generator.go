// Package generation builds section prompts from the profile and job description and
// calls the text generation service for each CV section.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/prompts"
	"github.com/jonathan/cv-tailor/internal/types"
)

// Job description excerpt lengths, in runes, per prompt
const (
	excerptArchetypes     = 1500
	excerptSummary        = 800
	excerptEducation      = 800
	excerptCertifications = 800
	excerptSoftSkills     = 800
	excerptSkills         = 1000
	excerptProjects       = 1000
	excerptExperience     = 600
	excerptCoverLetter    = 800
)

// Labels passed to the text generator; they name the call in logs and steps
const (
	LabelArchetypes     = "Archetype Analysis"
	LabelSummary        = "Professional Summary"
	LabelEducation      = "Smart Education Section"
	LabelCertifications = "Smart Certifications Section"
	LabelSoftSkills     = "Smart Soft Skills"
	LabelSkills         = "Smart Skills Section"
	LabelProjects       = "Smart Projects Section"
	LabelExperience     = "Experience Section"
	LabelCoverLetter    = "Cover Letter"
)

// Defaults for the limits rendered into prompts
const (
	DefaultMaxProjects       = 3
	DefaultMaxBulletsPerRole = 5
)

// Input is what every section prompt is built from
type Input struct {
	Profile        *types.Profile
	JobDescription string
	Archetypes     []string
}

// Generator renders section prompts and calls the text generator
type Generator struct {
	Client            llm.TextGenerator
	Prompts           prompts.Renderer
	Sink              observability.Sink
	MaxProjects       int
	MaxBulletsPerRole int
}

// New creates a generator over the embedded prompt templates when renderer is nil
func New(client llm.TextGenerator, renderer prompts.Renderer, sink observability.Sink) *Generator {
	if renderer == nil {
		renderer = prompts.Default()
	}
	return &Generator{
		Client:            client,
		Prompts:           renderer,
		Sink:              sink,
		MaxProjects:       DefaultMaxProjects,
		MaxBulletsPerRole: DefaultMaxBulletsPerRole,
	}
}

// IdentifyArchetypes asks for count archetypes out of allowed. It returns the "archetypes"
// value of the model's JSON unchecked; unparseable output yields an empty list.
func (g *Generator) IdentifyArchetypes(ctx context.Context, jd string, allowed []string, count int, feedback string) (any, error) {
	prompt, err := g.render(prompts.KeyArchetypes, map[string]string{
		"Count":      strconv.Itoa(count),
		"Archetypes": jsonList(allowed),
		"JDExcerpt":  Truncate(jd, excerptArchetypes),
	}, feedback)
	if err != nil {
		return nil, err
	}

	raw, err := g.call(ctx, prompt, LabelArchetypes)
	if err != nil {
		return nil, err
	}

	var value any = []any{}
	obj, ok := ExtractJSONObject(raw)
	if ok {
		if v, present := obj["archetypes"]; present && v != nil {
			value = v
		}
	}

	observability.Emit(g.Sink, types.Step{
		Name:            "Archetype Parsing",
		ProcessedOutput: fmt.Sprintf("%v", value),
		Extra:           map[string]any{"parsed_json": ok},
	})
	return value, nil
}

// ArchetypeStrings keeps the string elements of a parsed archetype value
func ArchetypeStrings(value any) []string {
	out := []string{}
	switch v := value.(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// ProfessionalSummary generates the three to four line profile
func (g *Generator) ProfessionalSummary(ctx context.Context, in Input, feedback string) (string, error) {
	label := "Professional"
	if in.Profile.Basics.Label != "" {
		label = in.Profile.Basics.Label
	}
	prompt, err := g.render(prompts.KeySummary, map[string]string{
		"CurrentRole":       label,
		"Archetypes":        jsonList(in.Archetypes),
		"JDExcerpt":         Truncate(in.JobDescription, excerptSummary),
		"BackgroundSummary": in.Profile.Basics.Summary,
	}, feedback)
	if err != nil {
		return "", err
	}
	return g.call(ctx, prompt, LabelSummary)
}

// Education generates the education section; no entries means no call
func (g *Generator) Education(ctx context.Context, in Input, feedback string) (string, error) {
	if len(in.Profile.Education) == 0 {
		return "", nil
	}
	data, err := yamlDump(in.Profile.Education)
	if err != nil {
		return "", err
	}
	prompt, err := g.render(prompts.KeyEducation, map[string]string{
		"Archetypes":    jsonList(in.Archetypes),
		"JDExcerpt":     Truncate(in.JobDescription, excerptEducation),
		"EducationYAML": data,
	}, feedback)
	if err != nil {
		return "", err
	}
	return g.call(ctx, prompt, LabelEducation)
}

// Certifications generates the certifications section; no entries means no call
func (g *Generator) Certifications(ctx context.Context, in Input, feedback string) (string, error) {
	if len(in.Profile.Certifications) == 0 {
		return "", nil
	}
	data, err := yamlDump(in.Profile.Certifications)
	if err != nil {
		return "", err
	}
	prompt, err := g.render(prompts.KeyCertifications, map[string]string{
		"Archetypes":         jsonList(in.Archetypes),
		"JDExcerpt":          Truncate(in.JobDescription, excerptCertifications),
		"CertificationsYAML": data,
	}, feedback)
	if err != nil {
		return "", err
	}
	return g.call(ctx, prompt, LabelCertifications)
}

// TechSkills generates the categorized technical skill lines. Anything that is not a
// category line is dropped, as are skills echoing their own category.
func (g *Generator) TechSkills(ctx context.Context, in Input, feedback string) (string, error) {
	prompt, err := g.render(prompts.KeySkills, map[string]string{
		"Archetypes":    jsonList(in.Archetypes),
		"JDExcerpt":     Truncate(in.JobDescription, excerptSkills),
		"AllSkillsJSON": jsonList(in.Profile.FlattenSkills()),
	}, feedback)
	if err != nil {
		return "", err
	}

	raw, err := g.call(ctx, prompt, LabelSkills)
	if err != nil {
		return "", err
	}
	cleaned := FilterCategoryEcho(CleanSkillsOutput(raw))
	observability.Emit(g.Sink, types.Step{
		Name:            "Skills Post-process",
		RawOutput:       raw,
		ProcessedOutput: cleaned,
	})
	return cleaned, nil
}

// SoftSkills selects soft skills from the profile pool in a single call
func (g *Generator) SoftSkills(ctx context.Context, in Input) (string, error) {
	if len(in.Profile.SoftSkills) == 0 {
		return "", nil
	}
	prompt, err := g.render(prompts.KeySoftSkills, map[string]string{
		"JDExcerpt":      Truncate(in.JobDescription, excerptSoftSkills),
		"SoftSkillsJSON": jsonList(in.Profile.SoftSkills),
	}, "")
	if err != nil {
		return "", err
	}
	return g.call(ctx, prompt, LabelSoftSkills)
}

// Languages renders the profile's languages without calling the model
func Languages(profile *types.Profile) string {
	if profile == nil || len(profile.Languages) == 0 {
		return ""
	}
	entries := make([]string, 0, len(profile.Languages))
	for _, l := range profile.Languages {
		if l.Language == "" {
			continue
		}
		if l.Fluency != "" {
			entries = append(entries, fmt.Sprintf("%s (%s)", l.Language, l.Fluency))
		} else {
			entries = append(entries, l.Language)
		}
	}
	if len(entries) == 0 {
		return ""
	}
	return "**Languages:** " + strings.Join(entries, ", ")
}

// CombineSkills joins the non-empty skill parts with blank lines
func CombineSkills(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

// Projects generates the projects section from pre-filtered candidates; none means no call
func (g *Generator) Projects(ctx context.Context, in Input, candidates []types.Project, feedback string) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}
	data, err := yamlDump(candidates)
	if err != nil {
		return "", err
	}
	prompt, err := g.render(prompts.KeyProjects, map[string]string{
		"MaxProjects":           strconv.Itoa(positiveOr(g.MaxProjects, DefaultMaxProjects)),
		"JDExcerpt":             Truncate(in.JobDescription, excerptProjects),
		"CandidateProjectsYAML": data,
	}, feedback)
	if err != nil {
		return "", err
	}
	return g.call(ctx, prompt, LabelProjects)
}

// Experience generates the experience section. The bullet limit is stated in the prompt;
// callers clamp the accepted text with EnforceBulletLimit.
func (g *Generator) Experience(ctx context.Context, in Input, feedback string) (string, error) {
	data, err := yamlDump(in.Profile.Experience)
	if err != nil {
		return "", err
	}
	prompt, err := g.render(prompts.KeyExperience, map[string]string{
		"Archetypes":     jsonList(in.Archetypes),
		"JDExcerpt":      Truncate(in.JobDescription, excerptExperience),
		"ExperienceYAML": data,
		"MaxBullets":     strconv.Itoa(positiveOr(g.MaxBulletsPerRole, DefaultMaxBulletsPerRole)),
	}, feedback)
	if err != nil {
		return "", err
	}
	return g.call(ctx, prompt, LabelExperience)
}

// CoverLetter generates the cover letter body
func (g *Generator) CoverLetter(ctx context.Context, in Input, feedback string) (string, error) {
	basics := in.Profile.Basics
	prompt, err := g.render(prompts.KeyCoverLetter, map[string]string{
		"JDExcerpt":      Truncate(in.JobDescription, excerptCoverLetter),
		"Archetypes":     jsonList(in.Archetypes),
		"CandidateName":  basics.Name,
		"CandidateLabel": basics.Label,
		"CareerGoals":    in.Profile.CoverLetterPreferences.CareerGoals.String(),
	}, feedback)
	if err != nil {
		return "", err
	}
	return g.call(ctx, prompt, LabelCoverLetter)
}

// render fills a template and appends feedback after a blank line
func (g *Generator) render(key string, data map[string]string, feedback string) (string, error) {
	prompt, err := g.Prompts.Render(key, data)
	if err != nil {
		return "", &PromptError{Key: key, Cause: err}
	}
	if feedback != "" {
		prompt += "\n\n" + feedback
	}
	return prompt, nil
}

// call sends prompt to the text generator and records the exchange as a step
func (g *Generator) call(ctx context.Context, prompt, label string) (string, error) {
	out, err := g.Client.Generate(ctx, prompt, label)
	if err != nil {
		return "", err
	}
	observability.Emit(g.Sink, types.Step{Name: label, Prompt: prompt, RawOutput: out})
	return out, nil
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func yamlDump(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize prompt input: %w", err)
	}
	return string(data), nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
