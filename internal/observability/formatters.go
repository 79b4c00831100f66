// Package observability provides step sinks and formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/jonathan/cv-tailor/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Sink adapts the printer into a step sink that prints a box per step
func (p *Printer) Sink() Sink {
	return p.PrintStep
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintStep outputs a compact view of one pipeline step
func (p *Printer) PrintStep(step types.Step) {
	var sb strings.Builder

	if step.Prompt != "" {
		sb.WriteString(fmt.Sprintf("Prompt:    %d chars\n", len(step.Prompt)))
	}
	if step.RawOutput != "" {
		sb.WriteString(fmt.Sprintf("Raw:       %d chars\n", len(step.RawOutput)))
	}
	if step.ProcessedOutput != "" {
		sb.WriteString(fmt.Sprintf("Processed: %s\n", firstLine(step.ProcessedOutput)))
	}

	keys := make([]string, 0, len(step.Extra))
	for k := range step.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("%s: %v\n", k, step.Extra[k]))
	}

	p.printBox("STEP: "+step.Name, strings.TrimRight(sb.String(), "\n"))
}

// PrintArchetypes outputs the accepted archetype list
func (p *Printer) PrintArchetypes(archetypes []string) {
	if len(archetypes) == 0 {
		p.printBox("ARCHETYPES", "(none identified)")
		return
	}
	p.printBox("ARCHETYPES", strings.Join(archetypes, "\n"))
}

// PrintOutcome outputs the attempt history of a section
func (p *Printer) PrintOutcome(outcome *types.SectionOutcome) {
	if outcome == nil {
		return
	}

	var sb strings.Builder
	status := "✅ accepted"
	if !outcome.Passed {
		status = "⚠ accepted best effort"
	}
	sb.WriteString(fmt.Sprintf("Status:   %s\n", status))
	sb.WriteString(fmt.Sprintf("Attempts: %d\n", len(outcome.Attempts)))

	for _, attempt := range outcome.Attempts {
		failed := 0
		for _, r := range attempt.Results {
			if !r.Passed {
				failed++
			}
		}
		sb.WriteString(fmt.Sprintf("\n#%d: %d/%d validators failed\n", attempt.Index, failed, len(attempt.Results)))

		shown := 0
		for _, r := range attempt.Results {
			for _, v := range r.Violations {
				if shown >= maxItemsToShow {
					break
				}
				sb.WriteString(fmt.Sprintf("  ⚠ [%s] %s\n", v.Source, v.Claim))
				shown++
			}
		}
	}

	p.printBox("SECTION: "+outcome.Section, strings.TrimRight(sb.String(), "\n"))
}

// PrintViolations outputs the violations of a single validation pass.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintViolations(results []types.ValidationResult) {
	total := 0
	for _, r := range results {
		total += len(r.Violations)
	}

	if total == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO VIOLATIONS FOUND")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d violations:\n", total))

	for _, r := range results {
		for _, v := range r.Violations {
			sb.WriteString(fmt.Sprintf("\n⚠ %s (%s)\n", v.Source, r.Validator))
			sb.WriteString(fmt.Sprintf("  %s\n", v.Claim))
			if v.Expected != "" {
				sb.WriteString(fmt.Sprintf("  → %s\n", v.Expected))
			}
		}
	}

	p.printBox("VALIDATION VIOLATIONS", strings.TrimRight(sb.String(), "\n"))
}

// PrintResult outputs the size of every generated section
func (p *Printer) PrintResult(result *types.PipelineResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sections := result.Sections()
	for _, name := range types.AllSections {
		text := sections[name]
		sb.WriteString(fmt.Sprintf("%-22s %5d words\n", name, len(strings.Fields(text))))
	}
	sb.WriteString(fmt.Sprintf("\nArchetypes: %s", strings.Join(result.Archetypes, ", ")))

	p.printBox("GENERATED SECTIONS", sb.String())
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx] + " …"
	}
	return s
}
