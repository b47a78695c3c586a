// Package schemas embeds the JSON Schemas for the pipeline's on-disk artifacts.
package schemas

import (
	"embed"
	"fmt"
)

//go:embed *.schema.json
var files embed.FS

// Artifact names a schema file without its .schema.json suffix
const (
	SourceBlocks     = "source_blocks"
	Chunks           = "chunks"
	ClassifiedChunks = "classified_chunks"
)

// Get returns the raw schema for an artifact
func Get(artifact string) ([]byte, error) {
	data, err := files.ReadFile(artifact + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", artifact, err)
	}
	return data, nil
}
