// Package logger builds the zerolog loggers used across the CLI and pipeline.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction
type Config struct {
	Level      string `json:"level,omitempty" yaml:"level"`             // debug, info, warn, error
	Format     string `json:"format,omitempty" yaml:"format"`           // json or pretty
	TimeFormat string `json:"time_format,omitempty" yaml:"time_format"` // timestamp layout
}

// DefaultConfig returns pretty, info-level console logging
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "pretty",
		TimeFormat: time.Kitchen,
	}
}

// New creates a logger writing to out (stderr when nil).
// Unknown levels fall back to info.
func New(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "pretty" {
		timeFormat := cfg.TimeFormat
		if timeFormat == "" {
			timeFormat = time.Kitchen
		}
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: timeFormat,
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
