// Package observability provides step sinks and formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jonathan/cv-tailor/internal/types"
)

// Sink receives a step event at each meaningful pipeline transition.
// A nil Sink is valid and discards everything.
type Sink func(step types.Step)

// Emit delivers step to sink if one is configured
func Emit(sink Sink, step types.Step) {
	if sink != nil {
		sink(step)
	}
}

// Multi fans a step out to every non-nil sink in order
func Multi(sinks ...Sink) Sink {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(step types.Step) {
		for _, s := range active {
			s(step)
		}
	}
}

// NewLogSink writes steps to a zerolog logger. The step header is logged at info,
// prompts and outputs at debug so they only appear with --log-level debug.
func NewLogSink(log zerolog.Logger) Sink {
	return func(step types.Step) {
		log.Info().Str("step", step.Name).Msg("pipeline step")

		if !log.Debug().Enabled() {
			return
		}
		event := log.Debug().Str("step", step.Name)
		if step.Prompt != "" {
			event = event.Int("prompt_len", len(step.Prompt)).Str("prompt", step.Prompt)
		}
		if step.RawOutput != "" {
			event = event.Str("raw_output", step.RawOutput)
		}
		if step.ProcessedOutput != "" {
			event = event.Str("processed_output", step.ProcessedOutput)
		}
		for k, v := range step.Extra {
			event = event.Str(k, fmt.Sprint(v))
		}
		event.Msg("step detail")
	}
}
