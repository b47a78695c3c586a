// Package filtering drops chunks that carry no business signal.
package filtering

import (
	"strings"

	"github.com/jonathan/brd-generator/internal/types"
)

const (
	// MinWords is the smallest word count a chunk may have and still be kept.
	MinWords = 10
	// LongChunkWords is the word count above which a chunk is kept without a business keyword.
	LongChunkWords = 30
)

// DefaultBusinessKeywords mark a chunk as business-relevant.
var DefaultBusinessKeywords = []string{
	"project", "requirement", "meeting", "decision", "timeline", "deadline",
	"budget", "stakeholder", "objective", "goal", "deliverable", "scope",
	"proposal", "approval", "schedule", "forecast", "plan", "strategy",
	"implementation", "development", "design", "feature", "functionality",
	"client", "customer", "vendor", "contract", "agreement", "policy",
}

// DefaultNoiseKeywords mark a chunk as social chatter.
var DefaultNoiseKeywords = []string{
	"test successful", "thanks", "thank you", "congrats", "happy birthday",
	"lunch", "dinner", "party", "vacation", "holiday", "joke", "lol",
}

// Filter holds the keyword sets used by Apply. Keywords must be lower-case;
// matching is plain substring matching on the lower-cased chunk text.
type Filter struct {
	BusinessKeywords []string
	NoiseKeywords    []string
}

// DefaultFilter returns a Filter with the built-in keyword sets.
func DefaultFilter() *Filter {
	return &Filter{
		BusinessKeywords: append([]string(nil), DefaultBusinessKeywords...),
		NoiseKeywords:    append([]string(nil), DefaultNoiseKeywords...),
	}
}

// Apply partitions chunks into kept and dropped, preserving input order in both.
func (f *Filter) Apply(chunks []types.Chunk) ([]types.Chunk, []types.DroppedChunk) {
	kept := make([]types.Chunk, 0, len(chunks))
	var dropped []types.DroppedChunk

	for _, c := range chunks {
		reason, keep := f.evaluate(c)
		if keep {
			kept = append(kept, c)
			continue
		}
		dropped = append(dropped, types.DroppedChunk{Reason: reason, Chunk: c})
	}
	return kept, dropped
}

// evaluate applies the rules in order; the first matching rule decides.
func (f *Filter) evaluate(c types.Chunk) (types.DropReason, bool) {
	words := c.WordCount()
	if words < MinWords {
		return types.ReasonTooShort, false
	}

	text := strings.ToLower(c.Text)
	if containsAny(text, f.NoiseKeywords) {
		return types.ReasonNoiseKeyword, false
	}

	if containsAny(text, f.BusinessKeywords) || words > LongChunkWords {
		return "", true
	}
	return types.ReasonNoBusinessSignal, false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Stats counts dropped chunks per reason.
func Stats(dropped []types.DroppedChunk) map[types.DropReason]int {
	counts := make(map[types.DropReason]int)
	for _, d := range dropped {
		counts[d.Reason]++
	}
	return counts
}
