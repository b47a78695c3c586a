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
			input:    "```json\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
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
			name:     "generic block starting with array",
			input:    "```\n[1, 2]\n```",
			expected: `[1, 2]`,
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

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare array",
			input:    `[{"id": "a", "type": "Requirement"}]`,
			expected: `[{"id": "a", "type": "Requirement"}]`,
		},
		{
			name:     "json fence with prose",
			input:    "Here you go:\n```json\n[{\"id\": \"a\"}]\n```\nHope this helps.",
			expected: `[{"id": "a"}]`,
		},
		{
			name:     "generic fence",
			input:    "```\n[1, 2, 3]\n```",
			expected: `[1, 2, 3]`,
		},
		{
			name:     "leading and trailing prose",
			input:    "Classification: [{\"id\": \"x\"}, {\"id\": \"y\"}] done.",
			expected: `[{"id": "x"}, {"id": "y"}]`,
		},
		{
			name:     "greedy across nested arrays",
			input:    `[[1], [2]] and [3]`,
			expected: `[[1], [2]] and [3]`,
		},
		{
			name:     "no array",
			input:    `{"id": "a"}`,
			expected: "",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractJSONArray(tt.input))
		})
	}
}

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "markdown fence",
			input:    "```markdown\n## 1. Executive Summary\nText\n```",
			expected: "## 1. Executive Summary\nText",
		},
		{
			name:     "plain fence",
			input:    "```\n## Title\n```\n",
			expected: "## Title",
		},
		{
			name:     "fences in the middle",
			input:    "## A\n```\ncode\n```\n## B",
			expected: "## A\ncode\n## B",
		},
		{
			name:     "no fence",
			input:    "  ## Title  ",
			expected: "## Title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripMarkdownFences(tt.input))
		})
	}
}
