package validation

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/types"
)

var bulletLineRe = regexp.MustCompile(`(?m)^- `)

// FormatValidator checks each section against its structural grammar.
// A section without a configured rule, or with empty text, always passes.
type FormatValidator struct {
	Rules *config.Rules

	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

// NewFormatValidator creates a format validator over rules (nil means no constraints)
func NewFormatValidator(rules *config.Rules) *FormatValidator {
	if rules == nil {
		rules = config.EmptyRules()
	}
	return &FormatValidator{Rules: rules}
}

// Name implements Validator
func (f *FormatValidator) Name() string { return NameFormat }

// Validate implements Validator
func (f *FormatValidator) Validate(section, text string) types.ValidationResult {
	rule, ok := f.Rules.For(section)
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return types.Pass(NameFormat)
	}

	var msgs []string
	switch section {
	case types.SectionSummary:
		msgs = f.checkSummary(text, rule)
	case types.SectionEducation:
		msgs = f.checkEducation(text, rule)
	case types.SectionSkills:
		msgs = f.checkSkills(text, rule)
	case types.SectionProjects:
		msgs = checkProjects(text, rule)
	case types.SectionExperience:
		msgs = checkExperience(text, rule)
	case types.SectionCertifications:
		msgs = f.checkCertifications(text, rule)
	case types.SectionCoverLetter:
		msgs = checkCoverLetter(text, rule)
	default:
		return types.Pass(NameFormat)
	}

	violations := make([]types.Violation, 0, len(msgs))
	for _, m := range msgs {
		violations = append(violations, types.Violation{Claim: m, Source: types.SourceFormat})
	}
	return result(NameFormat, violations, "")
}

func (f *FormatValidator) checkSummary(text string, r config.SectionRule) []string {
	var errs []string
	lines := nonEmptyLines(text)

	if r.MinLines > 0 && len(lines) < r.MinLines {
		errs = append(errs, fmt.Sprintf("Summary should have at least %d lines, got %d", r.MinLines, len(lines)))
	}
	if r.MaxLines > 0 && len(lines) > r.MaxLines {
		errs = append(errs, fmt.Sprintf("Summary should have at most %d lines, got %d", r.MaxLines, len(lines)))
	}

	for _, pat := range r.ForbiddenPatterns {
		re := f.pattern("(?i)" + pat)
		if re != nil && re.MatchString(text) {
			errs = append(errs, fmt.Sprintf("Forbidden pattern found: %s", pat))
		}
	}
	return errs
}

// checkEducation requires at least one bold degree header, and every bold header line
// to follow the degree line pattern.
func (f *FormatValidator) checkEducation(text string, r config.SectionRule) []string {
	if text == "" || r.DegreeLinePattern == "" {
		return nil
	}
	re := f.pattern(r.DegreeLinePattern)
	if re == nil {
		return nil
	}

	const expected = "Education must include degree lines in format: **Degree** — Institution, Dates"
	var errs []string
	headers := 0
	for _, line := range nonEmptyLines(text) {
		if !strings.HasPrefix(line, "**") {
			continue
		}
		headers++
		if !re.MatchString(line) {
			errs = append(errs, fmt.Sprintf("%s; got '%s'", expected, line))
		}
	}
	if headers == 0 {
		errs = append(errs, expected)
	}
	return errs
}

func (f *FormatValidator) checkSkills(text string, r config.SectionRule) []string {
	if text == "" || r.CategoryLinePattern == "" {
		return nil
	}
	re := f.pattern(r.CategoryLinePattern)
	if re == nil {
		return nil
	}
	if !re.MatchString(text) && strings.Contains(text, "**") {
		return []string{"Skills should use **Category:** skill, skill format"}
	}
	return nil
}

func checkProjects(text string, r config.SectionRule) []string {
	if text == "" {
		return nil
	}
	var errs []string
	blocks := splitBoldBlocks(text)

	headers := 0
	for _, b := range blocks {
		if strings.HasPrefix(strings.TrimSpace(b), "**") {
			headers++
		}
	}
	if r.MinProjects > 0 && headers < r.MinProjects {
		errs = append(errs, fmt.Sprintf(
			"Projects should have at least %d distinct project blocks (each starting with **Project Name**), found %d",
			r.MinProjects, headers))
	}

	limit := r.BulletsPerProject()
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if !strings.HasPrefix(b, "**") {
			continue
		}
		if n := len(bulletLineRe.FindAllStringIndex(b, -1)); n > limit {
			errs = append(errs, fmt.Sprintf(
				"A single project block has %d bullets; max %d per project. Possible merged projects.", n, limit))
		}
	}
	return errs
}

// checkExperience counts consecutive bullets; any non-bullet line closes the current run
func checkExperience(text string, r config.SectionRule) []string {
	if text == "" {
		return nil
	}
	limit := r.BulletsPerRole()
	var errs []string

	flush := func(n int) {
		if n > limit {
			errs = append(errs, fmt.Sprintf("Experience role has %d bullets; max %d per role", n, limit))
		}
	}

	run := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- "):
			run++
		case line != "" && !strings.HasPrefix(line, "-"):
			flush(run)
			run = 0
		}
	}
	flush(run)
	return errs
}

func (f *FormatValidator) checkCertifications(text string, r config.SectionRule) []string {
	if text == "" || r.BulletPattern == "" {
		return nil
	}
	re := f.pattern(r.BulletPattern)
	if re == nil {
		return nil
	}

	var errs []string
	for _, line := range nonEmptyLines(text) {
		if strings.HasPrefix(line, "- ") && !re.MatchString(line) {
			errs = append(errs, fmt.Sprintf("Certifications should use format: - Name — Issuer (Year); got '%s'", line))
		}
	}
	return errs
}

func checkCoverLetter(text string, r config.SectionRule) []string {
	if text == "" {
		return nil
	}
	var errs []string

	words := len(strings.Fields(text))
	if r.MinWords > 0 && words < r.MinWords {
		errs = append(errs, fmt.Sprintf("Cover letter should have at least %d words, got %d", r.MinWords, words))
	}
	if r.MaxWords > 0 && words > r.MaxWords {
		errs = append(errs, fmt.Sprintf("Cover letter should have at most %d words, got %d", r.MaxWords, words))
	}

	paragraphs := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}
	if r.MinParagraphs > 0 && paragraphs < r.MinParagraphs {
		errs = append(errs, fmt.Sprintf("Cover letter should have at least %d paragraphs, got %d", r.MinParagraphs, paragraphs))
	}
	return errs
}

// pattern compiles and caches a configured pattern; invalid patterns disable their check.
// CheckRules reports them up front.
func (f *FormatValidator) pattern(expr string) *regexp.Regexp {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.compiled == nil {
		f.compiled = make(map[string]*regexp.Regexp)
	}
	if re, ok := f.compiled[expr]; ok {
		return re
	}
	re, err := regexp.Compile(multiline(expr))
	if err != nil {
		re = nil
	}
	f.compiled[expr] = re
	return re
}

// multiline makes ^ and $ in configured patterns match at line boundaries
func multiline(expr string) string {
	if strings.HasPrefix(expr, "(?i)") {
		return "(?im)" + strings.TrimPrefix(expr, "(?i)")
	}
	return "(?m)" + expr
}

// CheckRules compiles every pattern in rules and returns one RuleError per invalid pattern
func CheckRules(rules *config.Rules) []error {
	if rules == nil {
		return nil
	}
	var errs []error
	check := func(section, field, expr string) {
		if expr == "" {
			return
		}
		if _, err := regexp.Compile(multiline(expr)); err != nil {
			errs = append(errs, &RuleError{Section: section, Field: field, Pattern: expr, Cause: err})
		}
	}

	for _, section := range types.AllSections {
		rule, ok := rules.For(section)
		if !ok {
			continue
		}
		for _, p := range rule.ForbiddenPatterns {
			check(section, "forbidden_patterns", p)
		}
		check(section, "degree_line_pattern", rule.DegreeLinePattern)
		check(section, "category_line_pattern", rule.CategoryLinePattern)
		check(section, "bullet_pattern", rule.BulletPattern)
	}
	return errs
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
