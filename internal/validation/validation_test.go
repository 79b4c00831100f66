package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() *config.Rules {
	return &config.Rules{Sections: map[string]config.SectionRule{
		types.SectionSummary: {
			MinLines:          1,
			MaxLines:          3,
			ForbiddenPatterns: []string{`\bI am\b`, `\bmy\b`},
		},
		types.SectionEducation: {
			DegreeLinePattern: `^\*\*[^*]+\*\*\s*[—–-]\s*.+`,
		},
		types.SectionSkills: {
			CategoryLinePattern: `\*\*[^*]+:\*\*|\*\*[^*]+\*\*:`,
		},
		types.SectionProjects: {
			MinProjects:          1,
			MaxBulletsPerProject: 3,
		},
		types.SectionExperience: {
			MaxBulletsPerRole: 5,
		},
		types.SectionCertifications: {
			BulletPattern: `^- .+ [—–-] .+\(.+\)$`,
		},
		types.SectionCoverLetter: {
			MinWords:      5,
			MaxWords:      40,
			MinParagraphs: 2,
		},
	}}
}

func testProfile() *types.Profile {
	return &types.Profile{
		Basics: types.Basics{Name: "Jane Doe"},
		SkillsBuckets: map[string]types.SkillBucket{
			"programming": {Items: []string{"Python", "SQL"}},
			"tools":       {Items: []string{"Docker"}},
		},
		SoftSkills: []string{"Communication"},
		Projects: []types.Project{
			{Name: "Lane Detector", Description: "Built a lane detector in Python", Highlights: []string{"Trained with TensorFlow"}},
		},
		Experience: []types.ExperienceRole{
			{Company: "Acme Corp", Position: "Data Engineer"},
		},
		Certifications: []types.Certification{
			{Name: "AWS Certified Cloud Practitioner", Issuer: "Amazon", Year: "2023"},
		},
	}
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "data engineer", normalize("  Data \t Engineer "))
	assert.True(t, matchesAny("aws certified", []string{"", "aws certified cloud practitioner"}))
	assert.False(t, matchesAny("gcp", []string{""}))
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "", "b", "a"}))

	blocks := splitBoldBlocks("intro\n**One**\n- x\n**Two**\n- y")
	require.Len(t, blocks, 3)
	assert.Equal(t, "intro\n", blocks[0])
	assert.True(t, strings.HasPrefix(blocks[1], "**One**"))
	assert.True(t, strings.HasPrefix(blocks[2], "**Two**"))

	msgs := []string{"1", "2", "3", "4", "5", "6"}
	assert.Equal(t, "P: 1; 2; 3; 4; 5", feedbackFrom("P: ", msgs))
	assert.Empty(t, feedbackFrom("P: ", nil))
}

func TestValidateArchetypes(t *testing.T) {
	allowed := types.DefaultArchetypes

	t.Run("valid list", func(t *testing.T) {
		res := ValidateArchetypes([]any{"data_analytics", "research_ml", "cloud_devops"}, allowed, 3)
		assert.True(t, res.Passed)
		assert.Empty(t, res.Violations)
		assert.Empty(t, res.Feedback)
		assert.Equal(t, NameArchetype, res.Validator)
	})

	t.Run("not a list", func(t *testing.T) {
		res := ValidateArchetypes(map[string]any{"a": 1}, allowed, 3)
		require.False(t, res.Passed)
		require.Len(t, res.Violations, 1)
		assert.Equal(t, "Archetypes must be a list", res.Violations[0].Claim)
	})

	t.Run("count and invalid reported together", func(t *testing.T) {
		res := ValidateArchetypes([]string{"data_analytics", "astronaut"}, allowed, 3)
		require.False(t, res.Passed)
		require.Len(t, res.Violations, 2)
		assert.Equal(t, "Expected exactly 3 archetypes, got 2", res.Violations[0].Claim)
		assert.Equal(t, "Invalid archetype 'astronaut' at index 1", res.Violations[1].Claim)
		assert.Contains(t, res.Violations[1].Expected, "data_analytics")
		assert.True(t, strings.HasPrefix(res.Feedback, FailedPrefix))
	})

	t.Run("non-string element", func(t *testing.T) {
		res := ValidateArchetypes([]any{"data_analytics", 7, "research_ml"}, allowed, 3)
		require.Len(t, res.Violations, 1)
		assert.Equal(t, "Invalid archetype 7 at index 1: must be a string, got int", res.Violations[0].Claim)
		assert.Equal(t, "Choose only from: ["+strings.Join(allowed, ", ")+"]", res.Violations[0].Expected)
	})

	t.Run("duplicates", func(t *testing.T) {
		res := ValidateArchetypeList([]string{"research_ml", "research_ml", "cloud_devops"}, allowed, 3)
		require.Len(t, res.Violations, 1)
		assert.Contains(t, res.Violations[0].Claim, "Duplicate archetype 'research_ml'")
	})

	t.Run("nil typed list counts as empty", func(t *testing.T) {
		res := ValidateArchetypeList(nil, allowed, 3)
		require.Len(t, res.Violations, 1)
		assert.Equal(t, "Expected exactly 3 archetypes, got 0", res.Violations[0].Claim)
	})
}

func TestFormatValidator(t *testing.T) {
	v := NewFormatValidator(testRules())
	assert.Equal(t, NameFormat, v.Name())

	tests := []struct {
		name     string
		section  string
		text     string
		wantMsgs []string
	}{
		{"empty text passes", types.SectionSummary, "   ", nil},
		{"unknown section passes", "hobbies", "anything", nil},
		{"summary ok", types.SectionSummary, "Data engineer with five years of pipeline work.", nil},
		{"summary too long", types.SectionSummary, "a\nb\nc\nd", []string{"Summary should have at most 3 lines, got 4"}},
		{"summary first person", types.SectionSummary, "I am a data engineer.", []string{`Forbidden pattern found: \bI am\b`}},
		{"education ok", types.SectionEducation, "**BSc Physics** — Example University, 2016 – 2020", nil},
		{"education missing degree line", types.SectionEducation, "Example University 2020",
			[]string{"Education must include degree lines in format: **Degree** — Institution, Dates"}},
		{"skills ok", types.SectionSkills, "**Programming:** Python, SQL", nil},
		{"skills bad category", types.SectionSkills, "**Programming** Python, SQL",
			[]string{"Skills should use **Category:** skill, skill format"}},
		{"skills without bold passes", types.SectionSkills, "Python, SQL", nil},
		{"projects ok", types.SectionProjects, "**Lane Detector**\n- Built it\n- Shipped it", nil},
		{"projects merged block", types.SectionProjects, "**Lane Detector**\n- a\n- b\n- c\n- d",
			[]string{"A single project block has 4 bullets; max 3 per project. Possible merged projects."}},
		{"projects none", types.SectionProjects, "- a\n- b",
			[]string{"Projects should have at least 1 distinct project blocks (each starting with **Project Name**), found 0"}},
		{"certifications ok", types.SectionCertifications, "- AWS Certified Cloud Practitioner — Amazon (2023)", nil},
		{"cover letter ok", types.SectionCoverLetter, "Dear team, I write to apply.\n\nThank you for reading.", nil},
		{"cover letter one paragraph", types.SectionCoverLetter, "Dear team, I write to apply for the role.",
			[]string{"Cover letter should have at least 2 paragraphs, got 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.section, tt.text)
			var got []string
			for _, viol := range res.Violations {
				got = append(got, viol.Claim)
				assert.Equal(t, types.SourceFormat, viol.Source)
			}
			assert.Equal(t, tt.wantMsgs, got)
			assert.Equal(t, len(tt.wantMsgs) == 0, res.Passed)
		})
	}
}

func TestFormatValidator_ExperienceBulletLimit(t *testing.T) {
	v := NewFormatValidator(testRules())
	text := "**Data Engineer**, Acme Corp, Berlin\n- a\n- b\n- c\n- d\n- e\n- f\n\n**Intern**, Acme Corp, Berlin\n- g"

	res := v.Validate(types.SectionExperience, text)
	require.False(t, res.Passed)
	require.Len(t, res.Violations, 1)
	assert.Contains(t, res.Violations[0].Claim, "6 bullets")
}

func TestFormatValidator_CertificationLines(t *testing.T) {
	v := NewFormatValidator(testRules())
	res := v.Validate(types.SectionCertifications, "- AWS Certified Cloud Practitioner — Amazon (2023)\n- Scrum Master")
	require.Len(t, res.Violations, 1)
	assert.Contains(t, res.Violations[0].Claim, "got '- Scrum Master'")
}

func TestFormatValidator_NilRules(t *testing.T) {
	v := NewFormatValidator(nil)
	assert.True(t, v.Validate(types.SectionSummary, "I am").Passed)
}

func TestFormatValidator_InvalidPatternDisablesCheck(t *testing.T) {
	rules := &config.Rules{Sections: map[string]config.SectionRule{
		types.SectionCertifications: {BulletPattern: `([`},
	}}
	v := NewFormatValidator(rules)
	assert.True(t, v.Validate(types.SectionCertifications, "- anything").Passed)

	errs := CheckRules(rules)
	require.Len(t, errs, 1)
	var ruleErr *RuleError
	require.True(t, errors.As(errs[0], &ruleErr))
	assert.Equal(t, types.SectionCertifications, ruleErr.Section)
	assert.Equal(t, "bullet_pattern", ruleErr.Field)
	assert.Contains(t, ruleErr.Error(), "rule error: invalid certifications.bullet_pattern")
	assert.NotNil(t, errors.Unwrap(ruleErr))

	assert.Empty(t, CheckRules(testRules()))
	assert.Empty(t, CheckRules(nil))
}

func TestFactChecker_Certifications(t *testing.T) {
	fc := NewFactChecker(testProfile())
	assert.Equal(t, NameFactCheck, fc.Name())

	ok := fc.Validate(types.SectionCertifications, "- AWS Certified Cloud Practitioner — Amazon (2023)")
	assert.True(t, ok.Passed)

	bad := fc.Validate(types.SectionCertifications, "- Google Data Analytics — Google (2022)")
	require.False(t, bad.Passed)
	require.Len(t, bad.Violations, 1)
	assert.Equal(t, "Google Data Analytics", bad.Violations[0].Claim)
	assert.Equal(t, types.SourceCertification, bad.Violations[0].Source)
	assert.True(t, strings.HasPrefix(bad.Feedback, FailedPrefix))
}

func TestFactChecker_Projects(t *testing.T) {
	fc := NewFactChecker(testProfile())

	assert.True(t, fc.Validate(types.SectionProjects, "**Lane Detector**\n- Built it").Passed)

	res := fc.Validate(types.SectionProjects, "**Lane Detector**\n- a\n\n**Rocket Launcher**\n- b")
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "Rocket Launcher", res.Violations[0].Claim)
	assert.Equal(t, types.SourceProjectName, res.Violations[0].Source)
}

func TestFactChecker_Experience(t *testing.T) {
	fc := NewFactChecker(testProfile())

	t.Run("faithful", func(t *testing.T) {
		res := fc.Validate(types.SectionExperience, "**Data Engineer**, Acme Corp, Berlin\n- Built pipelines")
		assert.True(t, res.Passed)
	})

	t.Run("missing and fabricated company", func(t *testing.T) {
		res := fc.Validate(types.SectionExperience, "**Data Engineer**, Globex, Berlin\n- Built pipelines")
		require.False(t, res.Passed)
		var claims []string
		for _, v := range res.Violations {
			claims = append(claims, v.Claim)
		}
		assert.Contains(t, claims, "Company 'Acme Corp' missing")
		assert.Contains(t, claims, "Company 'Globex' not in profile")
	})

	t.Run("altered position", func(t *testing.T) {
		res := fc.Validate(types.SectionExperience, "**Analyst**, Acme Corp, Berlin\n- Built pipelines")
		require.Len(t, res.Violations, 1)
		assert.Equal(t, "Position 'Data Engineer' missing or altered", res.Violations[0].Claim)
	})
}

func TestFactChecker_OtherSectionsPass(t *testing.T) {
	fc := NewFactChecker(testProfile())
	assert.True(t, fc.Validate(types.SectionSummary, "Invented Company Ltd").Passed)
	assert.True(t, NewFactChecker(nil).Validate(types.SectionProjects, "**X**").Passed)
}

func TestFactChecker_EducationAdvisories(t *testing.T) {
	p := testProfile()
	p.Education = []types.EducationEntry{
		{Institution: "Example University, Berlin", Courses: []string{"Robotics"}},
	}
	fc := NewFactChecker(p)

	assert.Empty(t, fc.EducationAdvisories("**MSc** — Example University, 2020\nRobotics"))

	notes := fc.EducationAdvisories("**MSc** — EU, 2020")
	assert.Equal(t, []string{
		"Institution 'Example University, Berlin' not found",
		"Course 'Robotics' not listed",
	}, notes)
}

func TestHallucinationDetector_Skills(t *testing.T) {
	h := NewHallucinationDetector(testProfile())
	assert.Equal(t, NameHallucination, h.Name())

	assert.True(t, h.Validate(types.SectionSkills, "**Programming:** Python, SQL\n**Tools:** Docker, Communication").Passed)

	res := h.Validate(types.SectionSkills, "**Programming:** Python, SQL, Rust")
	require.False(t, res.Passed)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "Skill not in profile: 'Rust'", res.Violations[0].Claim)
	assert.Equal(t, types.SourceSkill, res.Violations[0].Source)
	assert.Equal(t, HallucinationPrefix+"Skill not in profile: 'Rust'", res.Feedback)
}

func TestHallucinationDetector_Projects(t *testing.T) {
	h := NewHallucinationDetector(testProfile())

	ok := h.Validate(types.SectionProjects, "**Lane Detector**\n- Trained a detector with TensorFlow and Python")
	assert.True(t, ok.Passed)

	res := h.Validate(types.SectionProjects, "**Lane Detector**\n- Automated labelling with PyAutoGUI and Python")
	require.False(t, res.Passed)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "Tool/tech not in profile: 'PyAutoGUI'", res.Violations[0].Claim)
	assert.Equal(t, types.SourceTool, res.Violations[0].Source)
}

func TestHallucinationDetector_Experience(t *testing.T) {
	p := testProfile()
	h := NewHallucinationDetector(p)

	res := h.Validate(types.SectionExperience, "**Data Engineer**, Acme Corp\n- Built dashboards in Power BI")
	require.False(t, res.Passed)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "Tool not in profile: 'Power BI'", res.Violations[0].Claim)

	p.SkillsBuckets["bi"] = types.SkillBucket{Items: []string{"Power BI"}}
	assert.True(t, NewHallucinationDetector(p).Validate(types.SectionExperience,
		"**Data Engineer**, Acme Corp\n- Built dashboards in Power BI").Passed)
}

func TestHallucinationDetector_PassThrough(t *testing.T) {
	h := NewHallucinationDetector(testProfile())
	assert.True(t, h.Validate(types.SectionSkills, "").Passed)
	assert.True(t, h.Validate(types.SectionSummary, "Expert in Abaqus").Passed)
	assert.True(t, NewHallucinationDetector(nil).Validate(types.SectionSkills, "**X:** Y").Passed)
}

func TestExtractMentions(t *testing.T) {
	got := extractMentions("Used Python and python with power  bi, then Python again")
	assert.Equal(t, []string{"Used", "Python", "python", "power  bi"}, got)
}

func TestLengthValidator(t *testing.T) {
	v := NewLengthValidator(WordRange(3, 5))
	assert.Equal(t, NameLength, v.Name())

	assert.True(t, v.Validate("summary", "one two three").Passed)

	short := v.Validate("summary", "one two")
	require.Len(t, short.Violations, 1)
	assert.Equal(t, "summary: expected at least 3 words, got 2", short.Violations[0].Claim)
	assert.Equal(t, types.SourceLength, short.Violations[0].Source)

	long := v.Validate("summary", "a b c d e f")
	require.Len(t, long.Violations, 1)
	assert.Equal(t, "summary: expected at most 5 words, got 6", long.Violations[0].Claim)
}

func TestLengthValidator_Sentences(t *testing.T) {
	minS, maxS := 2, 3
	v := NewLengthValidator(Bounds{MinSentences: &minS, MaxSentences: &maxS})

	assert.True(t, v.Validate("cover_letter", "One. Two!").Passed)

	res := v.Validate("cover_letter", "Only one")
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "cover_letter: expected at least 2 sentences, got 1", res.Violations[0].Claim)

	res = v.Validate("cover_letter", "A. B? C! D.")
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "cover_letter: expected at most 3 sentences, got 4", res.Violations[0].Claim)

	assert.True(t, NewLengthValidator(Bounds{}).Validate("x", "").Passed)
}

func TestCountSentences(t *testing.T) {
	assert.Equal(t, 0, CountSentences(""))
	assert.Equal(t, 0, CountSentences("..."))
	assert.Equal(t, 3, CountSentences("One. Two? Three!"))
	assert.Equal(t, 1, CountSentences("no terminator"))
}
