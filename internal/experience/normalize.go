package experience

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// NormalizeProfile applies all normalization steps to a loaded profile
func NormalizeProfile(p *types.Profile) error {
	trimBasics(&p.Basics)
	NormalizeSkills(p)
	p.SoftSkills = dedupeStrings(p.SoftSkills)

	for i := range p.Projects {
		p.Projects[i].Name = strings.TrimSpace(p.Projects[i].Name)
		p.Projects[i].Description = strings.TrimSpace(p.Projects[i].Description)
		p.Projects[i].Highlights = dedupeStrings(p.Projects[i].Highlights)
	}
	for i := range p.Experience {
		role := &p.Experience[i]
		role.Company = strings.TrimSpace(role.Company)
		role.Position = strings.TrimSpace(role.Position)
		role.Location = strings.TrimSpace(role.Location)
		role.Highlights = dedupeStrings(role.Highlights)
	}
	for i := range p.Education {
		p.Education[i].Institution = strings.TrimSpace(p.Education[i].Institution)
		p.Education[i].Courses = dedupeStrings(p.Education[i].Courses)
	}
	for i := range p.Certifications {
		p.Certifications[i].Name = strings.TrimSpace(p.Certifications[i].Name)
		p.Certifications[i].Issuer = strings.TrimSpace(p.Certifications[i].Issuer)
	}

	return ValidateProjectNames(p)
}

func trimBasics(b *types.Basics) {
	b.Name = strings.TrimSpace(b.Name)
	b.Label = strings.TrimSpace(b.Label)
	b.Email = strings.TrimSpace(b.Email)
	b.Phone = strings.TrimSpace(b.Phone)
	b.Summary = strings.TrimSpace(b.Summary)
}

// NormalizeSkills trims and de-duplicates skill names inside every bucket and every
// flat skill list. Duplicates compare case-insensitively; the first spelling wins.
func NormalizeSkills(p *types.Profile) {
	for name, bucket := range p.SkillsBuckets {
		bucket.Items = dedupeStrings(bucket.Items)
		p.SkillsBuckets[name] = bucket
	}
	for name, items := range p.Skills {
		p.Skills[name] = dedupeStrings(items)
	}
}

// ValidateProjectNames rejects profiles where two projects share a name. Project
// selection and fact-checking identify projects by name.
func ValidateProjectNames(p *types.Profile) error {
	seen := make(map[string]struct{}, len(p.Projects))
	for _, project := range p.Projects {
		key := strings.ToLower(project.Name)
		if _, exists := seen[key]; exists {
			return &NormalizationError{
				Message: fmt.Sprintf("duplicate project name '%s'", project.Name),
			}
		}
		seen[key] = struct{}{}
	}
	return nil
}

// normalizeSkillName trims and collapses inner whitespace
func normalizeSkillName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func dedupeStrings(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = normalizeSkillName(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
