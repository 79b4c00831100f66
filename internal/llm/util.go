// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"regexp"
	"strconv"
	"strings"
)

// bannedPrefixes mark conversational filler lines
var bannedPrefixes = []string{
	"Here is", "Here are", "Below is", "Sure,", "Certainly",
	"Note:", "I selected", "I've selected", "Based on",
	"These", "This demonstrates", "Let me know",
	"In this version", "The following", "Here's",
	"Note that ",
}

// bannedPatterns mark trailing sections models append uninvited (matched case-insensitively)
var bannedPatterns = []string{
	"---", "### Follow Up Question", "### Additional", "### Follow-up",
	"### Followup", "### Next Steps", "### Note:",
}

var (
	codeFenceRe      = regexp.MustCompile("```[a-zA-Z]*")
	horizontalRuleRe = regexp.MustCompile(`^---+\s*$`)
	hexEscapeRe      = regexp.MustCompile(`\\x([0-9A-Fa-f]{2})`)
	unicodeEscapeRe  = regexp.MustCompile(`\\u([0-9A-Fa-f]{4})`)
)

// FixUnicodeEscapes turns literal \xNN and \uNNNN sequences into the characters they name
func FixUnicodeEscapes(text string) string {
	if text == "" {
		return text
	}
	decode := func(match string) string {
		code, err := strconv.ParseUint(match[2:], 16, 32)
		if err != nil {
			return match
		}
		return string(rune(code))
	}
	text = hexEscapeRe.ReplaceAllStringFunc(text, decode)
	return unicodeEscapeRe.ReplaceAllStringFunc(text, decode)
}

// CleanAIOutput removes code fences, conversational filler and banned trailer lines
func CleanAIOutput(text string) string {
	text = FixUnicodeEscapes(text)
	text = codeFenceRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "```", "")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if isBannedLine(line) {
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isBannedLine(line string) bool {
	lower := strings.ToLower(line)
	for _, pattern := range bannedPatterns {
		if strings.HasPrefix(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	if horizontalRuleRe.MatchString(line) {
		return true
	}
	trimmed := strings.TrimSpace(line)
	for _, prefix := range bannedPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}
