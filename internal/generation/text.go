package generation

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	jsonObjectRe     = regexp.MustCompile(`(?s)\{.*\}`)
	skillHeaderRe    = regexp.MustCompile(`^(\*\*[^*]+?\*\*:|\*\*[^*]+?:\*\*)\s*(.*)$`)
	newlineRunRe     = regexp.MustCompile(`\n+`)
	categoryStripper = strings.NewReplacer("*", "", ":", "")
)

// ExtractJSONObject parses the outermost {...} span of text.
// It returns false when there is no such span or it is not valid JSON.
func ExtractJSONObject(text string) (map[string]any, bool) {
	span := jsonObjectRe.FindString(text)
	if span == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// CleanSkillsOutput keeps only bold skill category lines, in either
// **Category:** or **Category**: form.
func CleanSkillsOutput(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if skillHeaderRe.MatchString(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// FilterCategoryEcho removes skills whose name is contained in their own category name
// (e.g. "Python" under "**Python Ecosystem:**"). A category left empty is dropped.
func FilterCategoryEcho(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		m := skillHeaderRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			if strings.TrimSpace(line) != "" {
				out = append(out, line)
			}
			continue
		}

		header, rest := m[1], m[2]
		category := strings.ToLower(strings.TrimSpace(categoryStripper.Replace(header)))

		var skills []string
		for _, s := range strings.Split(rest, ",") {
			s = strings.TrimSpace(s)
			if s == "" || strings.Contains(category, strings.ToLower(s)) {
				continue
			}
			skills = append(skills, s)
		}
		if len(skills) > 0 {
			out = append(out, header+" "+strings.Join(skills, ", "))
		}
	}
	return strings.Join(out, "\n")
}

// EnforceBulletLimit keeps at most maxBullets bullets under each header line.
// Blank lines are dropped and a single blank line separates blocks.
func EnforceBulletLimit(text string, maxBullets int) string {
	var cleaned []string
	count := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
			if count < maxBullets {
				cleaned = append(cleaned, line)
				count++
			}
			continue
		}
		if len(cleaned) > 0 {
			cleaned = append(cleaned, "")
		}
		cleaned = append(cleaned, line)
		count = 0
	}
	return strings.Join(cleaned, "\n")
}

// NormalizeSpacing turns every run of newlines into exactly one blank line and trims the result
func NormalizeSpacing(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(newlineRunRe.ReplaceAllString(text, "\n\n"))
}

// Truncate returns at most n runes of s
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
