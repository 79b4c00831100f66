package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

var (
	certLineRe   = regexp.MustCompile(`-\s*([^—–-]+?)\s*[—–-]\s*[^(]+\([^)]+\)`)
	boldNameRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	roleHeaderRe = regexp.MustCompile(`\*\*([^*]+)\*\*\s*,\s*([^,]+)`)
)

// positions shorter than this are too generic to require verbatim
const minPositionSize = 4

// FactChecker verifies that entity names in generated text trace back to the profile
type FactChecker struct {
	Profile *types.Profile
}

// NewFactChecker creates a fact checker over profile
func NewFactChecker(profile *types.Profile) *FactChecker {
	return &FactChecker{Profile: profile}
}

// Name implements Validator
func (f *FactChecker) Name() string { return NameFactCheck }

// Validate implements Validator. Sections other than certifications, projects and
// experience pass; education is advisory only (see EducationAdvisories).
func (f *FactChecker) Validate(section, text string) types.ValidationResult {
	if f.Profile == nil {
		return types.Pass(NameFactCheck)
	}

	var violations []types.Violation
	switch section {
	case types.SectionCertifications:
		violations = f.checkCertifications(text)
	case types.SectionProjects:
		violations = f.checkProjects(text)
	case types.SectionExperience:
		violations = f.checkExperience(text)
	}

	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message())
	}
	return result(NameFactCheck, violations, feedbackFrom(FailedPrefix, msgs))
}

func (f *FactChecker) checkCertifications(text string) []types.Violation {
	var known []string
	for _, c := range f.Profile.Certifications {
		known = append(known, normalize(c.Name))
	}
	known = dedupe(known)
	if len(known) == 0 {
		return nil
	}

	var violations []types.Violation
	for _, m := range certLineRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if matchesAny(normalize(name), known) {
			continue
		}
		violations = append(violations, types.Violation{
			Claim:    name,
			Source:   types.SourceCertification,
			Expected: "Must match a certification from profile",
		})
	}
	return violations
}

func (f *FactChecker) checkProjects(text string) []types.Violation {
	var known []string
	for _, p := range f.Profile.Projects {
		known = append(known, normalize(p.Name))
	}
	known = dedupe(known)
	if len(known) == 0 {
		return nil
	}

	var violations []types.Violation
	for _, m := range boldNameRe.FindAllStringSubmatch(text, -1) {
		if matchesAny(normalize(m[1]), known) {
			continue
		}
		violations = append(violations, types.Violation{
			Claim:    m[1],
			Source:   types.SourceProjectName,
			Expected: "Must match a project from profile",
		})
	}
	return violations
}

// checkExperience runs both directions: profile entities missing from the text, and
// companies in the text that the profile does not have.
func (f *FactChecker) checkExperience(text string) []types.Violation {
	textNorm := normalize(text)

	companies := uniqueEntities(f.Profile.Experience, func(r types.ExperienceRole) string { return r.Company })
	positions := uniqueEntities(f.Profile.Experience, func(r types.ExperienceRole) string { return r.Position })

	var violations []types.Violation
	for _, company := range companies {
		if !appearsIn(company.norm, textNorm) {
			violations = append(violations, types.Violation{
				Claim:    fmt.Sprintf("Company '%s' missing", company.display),
				Source:   types.SourceExperience,
				Expected: "All companies from profile must appear exactly",
			})
		}
	}
	for _, pos := range positions {
		if len(pos.norm) < minPositionSize {
			continue
		}
		if !appearsIn(pos.norm, textNorm) {
			violations = append(violations, types.Violation{
				Claim:    fmt.Sprintf("Position '%s' missing or altered", pos.display),
				Source:   types.SourceExperience,
				Expected: "Use exact position titles from profile",
			})
		}
	}

	companyNorms := make([]string, 0, len(companies))
	for _, c := range companies {
		companyNorms = append(companyNorms, c.norm)
	}

	for _, block := range splitBoldBlocks(text) {
		block = strings.TrimSpace(block)
		if !strings.HasPrefix(block, "**") {
			continue
		}
		firstLine, _, _ := strings.Cut(block, "\n")
		m := roleHeaderRe.FindStringSubmatch(firstLine)
		if m == nil {
			continue
		}
		claimed := strings.TrimSpace(m[2])
		if norm := normalize(claimed); norm != "" && !matchesAny(norm, companyNorms) {
			violations = append(violations, types.Violation{
				Claim:    fmt.Sprintf("Company '%s' not in profile", claimed),
				Source:   types.SourceExperience,
				Expected: "Use ONLY companies from profile",
			})
		}
	}
	return violations
}

type entity struct {
	display string
	norm    string
}

// uniqueEntities collects non-empty names in profile order, de-duplicated on their normalized form
func uniqueEntities(roles []types.ExperienceRole, field func(types.ExperienceRole) string) []entity {
	seen := make(map[string]struct{}, len(roles))
	var out []entity
	for _, r := range roles {
		display := strings.TrimSpace(field(r))
		norm := normalize(display)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, entity{display: display, norm: norm})
	}
	return out
}

// appearsIn accepts a verbatim occurrence or an occurrence of the first word
func appearsIn(entity, textNorm string) bool {
	if strings.Contains(textNorm, entity) {
		return true
	}
	fields := strings.Fields(entity)
	return len(fields) > 0 && strings.Contains(textNorm, fields[0])
}

// EducationAdvisories lists profile institutions and courses that do not appear in text.
// Abbreviations are common here, so these are reported for logging and never fail validation.
func (f *FactChecker) EducationAdvisories(text string) []string {
	if f.Profile == nil {
		return nil
	}
	textNorm := normalize(text)

	var notes []string
	for _, e := range f.Profile.Education {
		inst := normalize(e.Institution)
		if inst == "" {
			continue
		}
		head, _, _ := strings.Cut(inst, ",")
		if !strings.Contains(textNorm, inst) && !strings.Contains(textNorm, strings.TrimSpace(head)) {
			notes = append(notes, fmt.Sprintf("Institution '%s' not found", e.Institution))
		}
	}
	for _, e := range f.Profile.Education {
		for _, c := range e.Courses {
			if course := normalize(c); course != "" && !strings.Contains(textNorm, course) {
				notes = append(notes, fmt.Sprintf("Course '%s' not listed", c))
			}
		}
	}
	return notes
}
