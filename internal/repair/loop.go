package repair

import (
	"context"
	"strings"

	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/types"
)

// FailedPrefix starts every synthesized retry feedback
const FailedPrefix = "VALIDATION FAILED: "

// GenerateFunc produces one candidate text. feedback is empty on the first attempt and
// afterwards holds the corrective feedback of the previous attempt only.
type GenerateFunc func(ctx context.Context, feedback string) (string, error)

// Check validates a candidate text
type Check func(text string) types.ValidationResult

// Iteration is one pass of Loop
type Iteration[T any] struct {
	Index    int
	Feedback string
	Value    T
	Results  []types.ValidationResult
	Passed   bool
}

// Loop generates a value, checks it, and retries with synthesized feedback until every check
// passes or maxRetries retries are used up. The last iteration is the accepted one.
// A negative maxRetries is treated as zero.
func Loop[T any](
	ctx context.Context,
	name string,
	generate func(ctx context.Context, feedback string) (T, error),
	checks []func(T) types.ValidationResult,
	maxRetries int,
	sink observability.Sink,
) ([]Iteration[T], error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	iterations := make([]Iteration[T], 0, maxRetries+1)
	feedback := ""
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return iterations, &GenerationError{Section: name, Attempt: attempt, Cause: err}
		}

		value, err := generate(ctx, feedback)
		if err != nil {
			return iterations, &GenerationError{Section: name, Attempt: attempt, Cause: err}
		}

		results := make([]types.ValidationResult, 0, len(checks))
		passed := true
		for _, check := range checks {
			res := check(value)
			results = append(results, res)
			if !res.Passed {
				passed = false
			}
		}

		iterations = append(iterations, Iteration[T]{
			Index:    attempt,
			Feedback: feedback,
			Value:    value,
			Results:  results,
			Passed:   passed,
		})

		if passed {
			emitAttempt(sink, name, attempt, maxRetries, true, "")
			break
		}

		feedback = SynthesizeFeedback(results)
		emitAttempt(sink, name, attempt, maxRetries, false, feedback)
	}
	return iterations, nil
}

// Run drives a text section through Loop. Each output is trimmed and escape-normalized
// before validation. The outcome's text is the first passing attempt, else the last one.
func Run(
	ctx context.Context,
	section string,
	generate GenerateFunc,
	checks []Check,
	maxRetries int,
	sink observability.Sink,
) (*types.SectionOutcome, error) {
	type candidate struct {
		raw  string
		text string
	}

	gen := func(ctx context.Context, feedback string) (candidate, error) {
		raw, err := generate(ctx, feedback)
		if err != nil {
			return candidate{}, err
		}
		return candidate{raw: raw, text: llm.FixUnicodeEscapes(strings.TrimSpace(raw))}, nil
	}

	wrapped := make([]func(candidate) types.ValidationResult, 0, len(checks))
	for _, c := range checks {
		c := c
		wrapped = append(wrapped, func(cand candidate) types.ValidationResult { return c(cand.text) })
	}

	iterations, err := Loop(ctx, section, gen, wrapped, maxRetries, sink)
	if err != nil {
		return nil, err
	}

	outcome := &types.SectionOutcome{
		Section:  section,
		Attempts: make([]types.Attempt, 0, len(iterations)),
	}
	for _, it := range iterations {
		outcome.Attempts = append(outcome.Attempts, types.Attempt{
			Index:    it.Index,
			Feedback: it.Feedback,
			Raw:      it.Value.raw,
			Text:     it.Value.text,
			Results:  it.Results,
			Passed:   it.Passed,
		})
	}
	if n := len(iterations); n > 0 {
		last := iterations[n-1]
		outcome.Text = last.Value.text
		outcome.Passed = last.Passed
	}
	return outcome, nil
}

// SynthesizeFeedback joins the corrective parts of every failing result. A result
// contributes its own feedback (minus a leading FailedPrefix) when it has one,
// otherwise its violation messages.
func SynthesizeFeedback(results []types.ValidationResult) string {
	var parts []string
	for _, res := range results {
		if res.Passed {
			continue
		}
		if res.Feedback != "" {
			parts = append(parts, strings.TrimPrefix(res.Feedback, FailedPrefix))
			continue
		}
		for _, msg := range res.Messages() {
			if msg != "" {
				parts = append(parts, msg)
			}
		}
	}
	return FailedPrefix + strings.Join(parts, "; ")
}

func emitAttempt(sink observability.Sink, name string, attempt, maxRetries int, passed bool, feedback string) {
	extra := map[string]any{
		"attempt":     attempt + 1,
		"max_retries": maxRetries,
		"passed":      passed,
	}
	if feedback != "" {
		extra["feedback"] = feedback
	}
	observability.Emit(sink, types.Step{Name: "Validate " + name, Extra: extra})
}
