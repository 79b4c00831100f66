package generation

import "fmt"

// PromptError reports a prompt template that could not be rendered
type PromptError struct {
	Key   string
	Cause error
}

func (e *PromptError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("prompt error: %s: %v", e.Key, e.Cause)
	}
	return fmt.Sprintf("prompt error: %s", e.Key)
}

func (e *PromptError) Unwrap() error {
	return e.Cause
}
