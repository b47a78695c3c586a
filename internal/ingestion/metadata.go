package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/brd-generator/internal/types"
)

// NewMetadata describes a dataset built from blocks, stamped with the current time.
// Sources lists the distinct block sources in first-seen order.
func NewMetadata(fileName string, blocks []types.SourceBlock) *types.Dataset {
	now := time.Now().UTC()

	texts := make([]string, 0, len(blocks))
	sources := []types.Source{}
	seen := make(map[types.Source]bool)
	for _, b := range blocks {
		texts = append(texts, b.Text)
		if !seen[b.Source] {
			seen[b.Source] = true
			sources = append(sources, b.Source)
		}
	}

	return &types.Dataset{
		DatasetID:  fmt.Sprintf("ds_%d", now.UnixMilli()),
		FileName:   fileName,
		Sources:    sources,
		Timestamp:  now.Format(time.RFC3339),
		Hash:       computeHash(strings.Join(texts, "\n")),
		BlockCount: len(blocks),
	}
}

// computeHash computes SHA256 hash of content and returns hex string
func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
