// Package ingestion normalizes extracted text into tagged source blocks.
package ingestion

import (
	"regexp"
	"strings"

	"github.com/jonathan/brd-generator/internal/types"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize collapses whitespace, trims, and tags every text with source.
// It never drops entries; relevance decisions belong to the filter.
func Normalize(texts []string, source types.Source) []types.SourceBlock {
	blocks := make([]types.SourceBlock, 0, len(texts))
	for _, text := range texts {
		blocks = append(blocks, types.SourceBlock{
			Source: source,
			Text:   NormalizeText(text),
		})
	}
	return blocks
}

// NormalizeText replaces every whitespace run with a single space and trims the result
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
