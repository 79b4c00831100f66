package validation

import "fmt"

// RuleError reports a configured pattern that does not compile
type RuleError struct {
	Section string
	Field   string
	Pattern string
	Cause   error
}

func (e *RuleError) Error() string {
	msg := fmt.Sprintf("invalid %s.%s pattern %q", e.Section, e.Field, e.Pattern)
	if e.Cause != nil {
		return fmt.Sprintf("rule error: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("rule error: %s", msg)
}

func (e *RuleError) Unwrap() error {
	return e.Cause
}
