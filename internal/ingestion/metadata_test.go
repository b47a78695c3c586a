package ingestion

import (
	"strings"
	"testing"
	"time"

	"github.com/jonathan/brd-generator/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestComputeHash(t *testing.T) {
	hash1 := computeHash("test content")
	hash2 := computeHash("different content")

	// Hash should be 64 hex characters (SHA256)
	assert.Len(t, hash1, 64)
	assert.NotEqual(t, hash1, hash2)
	assert.Equal(t, hash1, computeHash("test content"))
}

func TestNewMetadata(t *testing.T) {
	blocks := []types.SourceBlock{
		{Source: types.SourceEmail, Text: "first"},
		{Source: types.SourceMeeting, Text: "second"},
		{Source: types.SourceEmail, Text: "third"},
	}

	metadata := NewMetadata("export.csv", blocks)

	assert.Equal(t, "export.csv", metadata.FileName)
	assert.Equal(t, []types.Source{types.SourceEmail, types.SourceMeeting}, metadata.Sources)
	assert.Equal(t, 3, metadata.BlockCount)
	assert.True(t, strings.HasPrefix(metadata.DatasetID, "ds_"))
	assert.Equal(t, computeHash("first\nsecond\nthird"), metadata.Hash)

	_, err := time.Parse(time.RFC3339, metadata.Timestamp)
	assert.NoError(t, err)
}

func TestNewMetadata_Empty(t *testing.T) {
	metadata := NewMetadata("", nil)

	assert.Equal(t, 0, metadata.BlockCount)
	assert.Empty(t, metadata.Sources)
	assert.Equal(t, computeHash(""), metadata.Hash)
}
