// Package types provides type definitions for structured data used throughout the BRD generator.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// Source identifies where a block of text came from
type Source string

// Source constants for the supported communication channels
const (
	SourceEmail   Source = "email"
	SourceMeeting Source = "meeting"
	SourceCSV     Source = "csv"
	SourcePDF     Source = "pdf"
)

// ParseSource converts a string to a Source, rejecting unknown values
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceEmail, SourceMeeting, SourceCSV, SourcePDF:
		return src, nil
	default:
		return "", fmt.Errorf("unknown source %q", s)
	}
}

// SourceBlock is one normalized unit of extracted text tagged with its origin.
type SourceBlock struct {
	Source Source `json:"source"`
	Text   string `json:"text"`
}

// Chunk is the smallest unit of text passed to classification and synthesis.
// All chunks derived from one SourceBlock share a ParentID.
type Chunk struct {
	ParentID string `json:"parent_id"`
	ChunkID  string `json:"chunk_id"`
	Source   Source `json:"source"`
	Text     string `json:"text"`
}

// PromptText returns the text contributed to a generation prompt
func (c Chunk) PromptText() string {
	return c.Text
}

// WordCount returns the number of whitespace-separated words in the chunk
func (c Chunk) WordCount() int {
	return len(strings.Fields(c.Text))
}

// Batch is an ordered group of chunks sent to the classifier in one request.
type Batch []Chunk

// SplitBatches groups chunks into consecutive batches of at most size.
// A non-positive size yields a single batch.
func SplitBatches(chunks []Chunk, size int) []Batch {
	if len(chunks) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(chunks)
	}

	batches := make([]Batch, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		batches = append(batches, Batch(chunks[start:end]))
	}
	return batches
}
