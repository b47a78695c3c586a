// Package db persists projects and their generated documents.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/brd-generator/internal/types"
)

// ErrProjectNotFound is returned by Rename and Delete when no project matches.
var ErrProjectNotFound = errors.New("project not found")

// Store is implemented by the PostgreSQL and SQLite backends.
// Projects and documents are scoped by an owner key.
type Store interface {
	EnsureSchema(ctx context.Context) error
	SaveProject(ctx context.Context, p *types.Project) error
	// GetProject returns nil, nil when the project does not exist
	GetProject(ctx context.Context, ownerKey, id string) (*types.Project, error)
	ListProjects(ctx context.Context, ownerKey string) ([]*types.Project, error)
	RenameProject(ctx context.Context, ownerKey, id, name string) error
	// DeleteProject also deletes the project's document
	DeleteProject(ctx context.Context, ownerKey, id string) error
	CountProjects(ctx context.Context, ownerKey string) (int, error)
	SaveDocument(ctx context.Context, ownerKey, documentID, content string) error
	// GetDocument returns nil, nil when no document is stored
	GetDocument(ctx context.Context, ownerKey, documentID string) (*string, error)
	Close() error
}

// projectPayload is the part of a project stored as one JSON column
type projectPayload struct {
	Dataset     *types.Dataset          `json:"dataset,omitempty"`
	TotalChunks int                     `json:"total_chunks"`
	Chunks      []types.Chunk           `json:"chunks"`
	Dropped     []types.DroppedChunk    `json:"dropped,omitempty"`
	Classified  []types.ClassifiedChunk `json:"classified,omitempty"`
}

func encodePayload(p *types.Project) ([]byte, error) {
	data, err := json.Marshal(projectPayload{
		Dataset:     p.Dataset,
		TotalChunks: p.TotalChunks,
		Chunks:      p.Chunks,
		Dropped:     p.Dropped,
		Classified:  p.Classified,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project payload: %w", err)
	}
	return data, nil
}

func decodePayload(data []byte, p *types.Project) error {
	var payload projectPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal project payload: %w", err)
	}
	p.Dataset = payload.Dataset
	p.TotalChunks = payload.TotalChunks
	p.Chunks = payload.Chunks
	p.Dropped = payload.Dropped
	p.Classified = payload.Classified
	return nil
}

// NextProjectName returns "Project N" where N is one more than the owner's project count
func NextProjectName(ctx context.Context, s Store, ownerKey string) (string, error) {
	n, err := s.CountProjects(ctx, ownerKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Project %d", n+1), nil
}
