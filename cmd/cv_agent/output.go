package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// Output formats
const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

var sectionTitles = map[string]string{
	types.SectionSummary:        "Professional Summary",
	types.SectionEducation:      "Education",
	types.SectionSkills:         "Skills",
	types.SectionProjects:       "Projects",
	types.SectionExperience:     "Experience",
	types.SectionCertifications: "Certifications",
	types.SectionCoverLetter:    "Cover Letter",
}

// renderResult formats a pipeline result as JSON or markdown
func renderResult(result *types.PipelineResult, format string) ([]byte, error) {
	switch format {
	case formatMarkdown:
		return []byte(renderMarkdown(result)), nil
	case formatJSON, "":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// renderMarkdown writes non-empty sections in document order under level-2 headings
func renderMarkdown(result *types.PipelineResult) string {
	var sb strings.Builder
	if len(result.Archetypes) > 0 {
		sb.WriteString(fmt.Sprintf("<!-- archetypes: %s -->\n\n", strings.Join(result.Archetypes, ", ")))
	}
	sections := result.Sections()
	for _, name := range types.AllSections {
		text := strings.TrimSpace(sections[name])
		if text == "" {
			continue
		}
		sb.WriteString("## " + sectionTitles[name] + "\n\n")
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// writeResult writes the rendered result to path, or to w when path is empty
func writeResult(w io.Writer, path, format string, result *types.PipelineResult) error {
	data, err := renderResult(result, format)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = w.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output %s: %w", path, err)
	}
	return nil
}
