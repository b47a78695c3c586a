// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"regexp"
	"strings"
)

var (
	jsonArrayRe     = regexp.MustCompile(`\[[\s\S]*\]`)
	markdownFenceRe = regexp.MustCompile("```markdown\\n?")
	plainFenceRe    = regexp.MustCompile("```\\n?")
)

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.ContainsAny(firstLine, "{[") {
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

// ExtractJSONArray returns the outermost JSON array embedded in a response,
// or "" when there is none. Fenced blocks anywhere in the text are unwrapped
// first, then everything from the first '[' to the last ']' is taken.
func ExtractJSONArray(text string) string {
	if _, after, ok := strings.Cut(text, "```json"); ok {
		text, _, _ = strings.Cut(after, "```")
	} else if _, after, ok := strings.Cut(text, "```"); ok {
		text, _, _ = strings.Cut(after, "```")
	}

	return jsonArrayRe.FindString(text)
}

// StripMarkdownFences removes every ```markdown and ``` marker and trims the result
func StripMarkdownFences(text string) string {
	text = markdownFenceRe.ReplaceAllString(text, "")
	text = plainFenceRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
