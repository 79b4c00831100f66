// Package ingestion turns a job description file or URL into cleaned plain text.
package ingestion

import (
	"regexp"
	"strings"
)

var (
	innerSpaceRe  = regexp.MustCompile(`[ \t\x{00A0}]+`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
	bulletGlyphRe = regexp.MustCompile(`^[•·▪◦●]\s*`)
)

// CleanText normalizes line endings, collapses whitespace inside lines, rewrites bullet
// glyphs to "- ", and keeps at most one blank line between blocks. Markdown headings
// and indented bullets keep their structure.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := blankLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	indent := line[:len(line)-len(trimmed)]
	if bulletGlyphRe.MatchString(trimmed) {
		trimmed = "- " + bulletGlyphRe.ReplaceAllString(trimmed, "")
	}
	return strings.ReplaceAll(indent, "\t", "  ") + innerSpaceRe.ReplaceAllString(trimmed, " ")
}
