// Package chunking splits normalized source blocks into idea-level chunks.
package chunking

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/brd-generator/internal/types"
)

// MaxSentencesPerChunk bounds how many sentences one chunk may hold.
const MaxSentencesPerChunk = 3

var paragraphBreakRe = regexp.MustCompile(`\n\n+`)

// Chunk splits every block into paragraphs and sentence groups.
// Each block gets a fresh parent id; chunk ids come from ids in emission order.
func Chunk(blocks []types.SourceBlock, ids *IDSource) []types.Chunk {
	if ids == nil {
		ids = NewIDSource(nil)
	}

	var chunks []types.Chunk
	for _, block := range blocks {
		parentID := ids.NextParent(block.Source)

		for _, para := range SplitParagraphs(block.Text) {
			sentences := SplitSentences(para)

			if len(sentences) <= MaxSentencesPerChunk {
				chunks = append(chunks, newChunk(ids, parentID, block.Source, para))
				continue
			}

			for i := 0; i < len(sentences); i += MaxSentencesPerChunk {
				end := min(i+MaxSentencesPerChunk, len(sentences))
				group := strings.TrimSpace(strings.Join(sentences[i:end], " "))
				if group == "" {
					continue
				}
				chunks = append(chunks, newChunk(ids, parentID, block.Source, group))
			}
		}
	}
	return chunks
}

func newChunk(ids *IDSource, parentID string, source types.Source, text string) types.Chunk {
	return types.Chunk{
		ParentID: parentID,
		ChunkID:  ids.NextChunk(parentID),
		Source:   source,
		Text:     text,
	}
}

// SplitParagraphs splits text on blank lines, trims each paragraph and drops empty ones.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, p := range paragraphBreakRe.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// SplitSentences splits a paragraph after every '.', '!' or '?' that is
// followed by whitespace. Abbreviations are not special-cased.
// The whitespace between sentences is consumed; empty pieces are dropped.
func SplitSentences(paragraph string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(paragraph); {
		r, size := utf8.DecodeRuneInString(paragraph[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		end := i
		for i < len(paragraph) {
			next, nextSize := utf8.DecodeRuneInString(paragraph[i:])
			if !unicode.IsSpace(next) {
				break
			}
			i += nextSize
		}
		if i > end {
			if s := paragraph[start:end]; s != "" {
				sentences = append(sentences, s)
			}
			start = i
		}
	}

	if start < len(paragraph) {
		sentences = append(sentences, paragraph[start:])
	}
	return sentences
}
