package validation

import (
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// Bounds are optional word and sentence limits; nil fields are not checked
type Bounds struct {
	MinWords     *int
	MaxWords     *int
	MinSentences *int
	MaxSentences *int
}

// WordRange returns bounds on word count only
func WordRange(minWords, maxWords int) Bounds {
	return Bounds{MinWords: &minWords, MaxWords: &maxWords}
}

// LengthValidator checks word and sentence counts
type LengthValidator struct {
	Bounds Bounds
}

// NewLengthValidator creates a length validator
func NewLengthValidator(bounds Bounds) *LengthValidator {
	return &LengthValidator{Bounds: bounds}
}

// Name implements Validator
func (l *LengthValidator) Name() string { return NameLength }

// Validate implements Validator
func (l *LengthValidator) Validate(section, text string) types.ValidationResult {
	text = strings.TrimSpace(text)
	b := l.Bounds
	var msgs []string

	if b.MinWords != nil || b.MaxWords != nil {
		words := len(strings.Fields(text))
		if b.MinWords != nil && words < *b.MinWords {
			msgs = append(msgs, fmt.Sprintf("%s: expected at least %d words, got %d", section, *b.MinWords, words))
		}
		if b.MaxWords != nil && words > *b.MaxWords {
			msgs = append(msgs, fmt.Sprintf("%s: expected at most %d words, got %d", section, *b.MaxWords, words))
		}
	}

	if b.MinSentences != nil || b.MaxSentences != nil {
		sentences := CountSentences(text)
		if b.MinSentences != nil && sentences < *b.MinSentences {
			msgs = append(msgs, fmt.Sprintf("%s: expected at least %d sentences, got %d", section, *b.MinSentences, sentences))
		}
		if b.MaxSentences != nil && sentences > *b.MaxSentences {
			msgs = append(msgs, fmt.Sprintf("%s: expected at most %d sentences, got %d", section, *b.MaxSentences, sentences))
		}
	}

	violations := make([]types.Violation, 0, len(msgs))
	for _, m := range msgs {
		violations = append(violations, types.Violation{Claim: m, Source: types.SourceLength})
	}
	return result(NameLength, violations, "")
}

// CountSentences counts non-empty segments between '.', '!' and '?'
func CountSentences(text string) int {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	n := 0
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}
