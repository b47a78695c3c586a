package classification

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/brd-generator/internal/llm"
	"github.com/jonathan/brd-generator/internal/types"
)

// errNoArray is returned when a response holds no JSON array.
var errNoArray = errors.New("no JSON array found in response")

// record is one element of the classifier's JSON answer
type record struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Summary string `json:"summary"`
}

// parseRecords extracts the embedded JSON array from a response.
// Elements that are not objects with a string id are skipped.
func parseRecords(text string) ([]record, error) {
	arrayText := llm.ExtractJSONArray(llm.CleanJSONBlock(text))
	if arrayText == "" {
		return nil, errNoArray
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(arrayText), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse classification array: %w", err)
	}

	records := make([]record, 0, len(raw))
	for _, item := range raw {
		var r record
		if err := json.Unmarshal(item, &r); err != nil || r.ID == "" {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// reconcile matches records to the batch by chunk id, never by position.
// The first record for an id wins; chunks without a record fall back to NotRelevant.
func reconcile(batch types.Batch, records []record) ([]types.ClassifiedChunk, int) {
	byID := make(map[string]record, len(records))
	for _, r := range records {
		if _, seen := byID[r.ID]; !seen {
			byID[r.ID] = r
		}
	}

	out := make([]types.ClassifiedChunk, 0, len(batch))
	unmatched := 0
	for _, c := range batch {
		r, ok := byID[c.ChunkID]
		if !ok {
			unmatched++
			out = append(out, types.Unclassified(c))
			continue
		}
		chunkType, known := types.LookupChunkType(r.Type)
		summary := r.Summary
		if !known {
			// an unrecognized label degrades to NotRelevant, so its summary is dropped
			summary = ""
		}
		out = append(out, types.ClassifiedChunk{
			Chunk:   c,
			Type:    chunkType,
			Summary: summary,
		})
	}
	return out, unmatched
}

// fallback marks every chunk of the batch NotRelevant with an empty summary.
func fallback(batch types.Batch) []types.ClassifiedChunk {
	out := make([]types.ClassifiedChunk, 0, len(batch))
	for _, c := range batch {
		out = append(out, types.Unclassified(c))
	}
	return out
}
