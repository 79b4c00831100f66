package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/types"
)

// RecordStep stores one observability step of a run under sequence number seq
func (db *DB) RecordStep(ctx context.Context, runID uuid.UUID, seq int, step types.Step) error {
	var extra []byte
	if len(step.Extra) > 0 {
		var err error
		if extra, err = json.Marshal(step.Extra); err != nil {
			return fmt.Errorf("failed to marshal step extra: %w", err)
		}
	}

	_, err := db.q.Exec(ctx,
		`INSERT INTO run_steps (run_id, seq, name, prompt, raw_output, processed, extra)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		runID, seq, step.Name, step.Prompt, step.RawOutput, step.ProcessedOutput, extra,
	)
	if err != nil {
		return fmt.Errorf("failed to record step %s: %w", step.Name, err)
	}
	return nil
}

// StepSink returns a sink that records every step of a run. Write failures are logged
// and never reach the pipeline.
func (db *DB) StepSink(ctx context.Context, runID uuid.UUID, log zerolog.Logger) observability.Sink {
	var seq atomic.Int64
	return func(step types.Step) {
		n := int(seq.Add(1))
		if err := db.RecordStep(ctx, runID, n, step); err != nil {
			log.Warn().Err(err).Str("step", step.Name).Msg("failed to persist step")
		}
	}
}
