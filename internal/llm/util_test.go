package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock_MarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"archetypes\": [\"data_analytics\"]}\n```",
			expected: `{"archetypes": ["data_analytics"]}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "code block with language",
			input:    "```javascript\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "plain JSON",
			input:    `{"key": "value"}`,
			expected: `{"key": "value"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestFixUnicodeEscapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"hex escape", `Caf\xe9`, "Café"},
		{"unicode escape", `2019 \u2013 2023`, "2019 \u2013 2023"},
		{"no escapes", "plain text", "plain text"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FixUnicodeEscapes(tt.input))
		})
	}
}

func TestCleanAIOutput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips code fences",
			input:    "```markdown\n- Built a pipeline\n```",
			expected: "- Built a pipeline",
		},
		{
			name:     "drops conversational preamble",
			input:    "Here is your summary:\nData engineer with 5 years of experience.",
			expected: "Data engineer with 5 years of experience.",
		},
		{
			name:     "drops indented filler",
			input:    "- Led migration\n   Let me know if you need changes",
			expected: "- Led migration",
		},
		{
			name:     "drops banned trailer heading case-insensitively",
			input:    "- Led migration\n### NEXT STEPS\n- Apply soon",
			expected: "- Led migration\n- Apply soon",
		},
		{
			name:     "drops horizontal rule",
			input:    "Paragraph one.\n----\nParagraph two.",
			expected: "Paragraph one.\nParagraph two.",
		},
		{
			name:     "keeps normal content",
			input:    "**Acme Corp**, Data Engineer\n- Shipped ETL",
			expected: "**Acme Corp**, Data Engineer\n- Shipped ETL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanAIOutput(tt.input))
		})
	}
}
