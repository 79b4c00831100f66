// Package repair drives the generate, validate and retry-with-feedback cycle for a section.
package repair

import "fmt"

// GenerationError reports a generator failure during one attempt
type GenerationError struct {
	Section string
	Attempt int
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("repair generation error: %s attempt %d: %v", e.Section, e.Attempt, e.Cause)
	}
	return fmt.Sprintf("repair generation error: %s attempt %d", e.Section, e.Attempt)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
