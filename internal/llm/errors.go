package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a text generation failure
type ErrorKind string

const (
	// ServiceUnavailable means the generator could not be reached or configured
	ServiceUnavailable ErrorKind = "ServiceUnavailable"
	// GenerationError means the generator was reached but the call failed
	GenerationError ErrorKind = "GenerationError"
)

// Sentinels for errors.Is checks against a *ServiceError
var (
	ErrServiceUnavailable = errors.New("text generation service unavailable")
	ErrGeneration         = errors.New("text generation failed")
)

// ServiceError represents a failed call to the text generator
type ServiceError struct {
	Kind  ErrorKind
	Label string
	Cause error
}

func (e *ServiceError) Error() string {
	msg := "text generation failed"
	if e.Kind == ServiceUnavailable {
		msg = "text generation service unavailable"
	}
	if e.Label != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Label)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's kind
func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrServiceUnavailable:
		return e.Kind == ServiceUnavailable
	case ErrGeneration:
		return e.Kind == GenerationError
	}
	return false
}
