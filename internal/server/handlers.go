package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/brd-generator/internal/classification"
	"github.com/jonathan/brd-generator/internal/db"
	"github.com/jonathan/brd-generator/internal/filtering"
	"github.com/jonathan/brd-generator/internal/pipeline"
	"github.com/jonathan/brd-generator/internal/server/middleware"
	"github.com/jonathan/brd-generator/internal/types"
	"github.com/jonathan/brd-generator/internal/validation"
)

// ProjectSummary is a project without its chunks
type ProjectSummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Stage       types.Stage    `json:"stage"`
	Dataset     *types.Dataset `json:"dataset,omitempty"`
	TotalChunks int            `json:"total_chunks"`
	Kept        int            `json:"kept"`
	Dropped     int            `json:"dropped"`
	Classified  int            `json:"classified"`
	HasBRD      bool           `json:"has_brd"`
	Truncated   bool           `json:"truncated,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func summarize(p *types.Project) ProjectSummary {
	return ProjectSummary{
		ID:          p.ID,
		Name:        p.Name,
		Stage:       p.Stage,
		Dataset:     p.Dataset,
		TotalChunks: p.TotalChunks,
		Kept:        len(p.Chunks),
		Dropped:     len(p.Dropped),
		Classified:  len(p.Classified),
		HasBRD:      p.HasDocument(),
		Truncated:   p.Truncated,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// UploadResponse is returned after a file is ingested
type UploadResponse struct {
	ProjectID   string                   `json:"projectId"`
	Name        string                   `json:"name"`
	ChunksCount int                      `json:"chunksCount"`
	TotalChunks int                      `json:"totalChunks"`
	DropStats   map[types.DropReason]int `json:"dropStats,omitempty"`
	Message     string                   `json:"message"`
}

// ChunksResponse lists a project's chunks at every stage
type ChunksResponse struct {
	ProjectID  string                  `json:"projectId"`
	Chunks     []types.Chunk           `json:"chunks"`
	Dropped    []types.DroppedChunk    `json:"dropped"`
	Classified []types.ClassifiedChunk `json:"classified"`
}

// ClassifyResponse reports a classification run
type ClassifyResponse struct {
	ProjectID       string                  `json:"projectId"`
	Batches         int                     `json:"batches"`
	DegradedBatches int                     `json:"degradedBatches"`
	Unmatched       int                     `json:"unmatched"`
	Counts          map[types.ChunkType]int `json:"counts"`
}

// BRDStats describes the input of a generated document
type BRDStats struct {
	TotalChunks int `json:"totalChunks"`
	Samples     int `json:"samples,omitempty"`
}

// BRDResponse carries a generated or edited document
type BRDResponse struct {
	ProjectID string    `json:"projectId"`
	BRD       string    `json:"brd"`
	Truncated bool      `json:"truncated,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
	Stats     *BRDStats `json:"stats,omitempty"`

	// Violations lists structure check findings; they never fail a request
	Violations []types.Violation `json:"violations,omitempty"`
}

// RenameRequest is the body of PATCH /api/projects/{id}/rename
type RenameRequest struct {
	Name string `json:"name"`
}

// EditRequest is the body of POST /api/projects/{id}/edit-brd
type EditRequest struct {
	ChangeDescription string `json:"changeDescription"`
	Selection         string `json:"selection,omitempty"`
	Section           *int   `json:"section,omitempty"`
}

// projectLocks serializes writes to one project
var projectLocks sync.Map

func projectLockKey(owner, id string) string {
	return owner + "/" + id
}

func lockProject(owner, id string) func() {
	v, _ := projectLocks.LoadOrStore(projectLockKey(owner, id), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// forgetProject drops a deleted project's lock. Callers must hold it;
// requests already queued on it find the project gone once they load it.
func forgetProject(owner, id string) {
	projectLocks.Delete(projectLockKey(owner, id))
}

func ownerKey(r *http.Request) string {
	key, err := middleware.GetOwnerKey(r)
	if err != nil {
		return ""
	}
	return key
}

// loadProject fetches a project together with its stored document
func (s *Server) loadProject(ctx context.Context, owner, id string) (*types.Project, error) {
	p, err := s.store.GetProject(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if p == nil {
		return nil, &ErrNotFound{What: "project", ID: id}
	}
	doc, err := s.store.GetDocument(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc != nil {
		p.Document = *doc
	}
	return p, nil
}

func (s *Server) saveProject(ctx context.Context, p *types.Project) error {
	if err := s.store.SaveProject(ctx, p); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	if p.HasDocument() {
		if err := s.store.SaveDocument(ctx, p.OwnerKey, p.ID, p.Document); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
	}
	return nil
}

// handleListProjects lists the owner's projects in creation order
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context(), ownerKey(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, summarize(p))
	}
	s.jsonResponse(w, http.StatusOK, summaries)
}

// handleUpload ingests a multipart "file" upload into a new project
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := ownerKey(r)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "file", Message: "no file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	fileName := filepath.Base(header.Filename)
	if fileName == "." || fileName == string(filepath.Separator) {
		s.fail(w, r, &ErrValidation{Field: "file", Message: "missing file name"})
		return
	}

	// The upload keeps its original name so the dataset records it
	dir, err := os.MkdirTemp("", "brd-upload-*")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, fileName)
	if err := writeUpload(path, file); err != nil {
		s.fail(w, r, err)
		return
	}

	p, err := s.runner.IngestFile(ctx, path, strings.TrimSpace(r.FormValue("name")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p.OwnerKey = owner
	if p.Name == "" {
		if p.Name, err = db.NextProjectName(ctx, s.store, owner); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if err := s.saveProject(ctx, p); err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.InfoContext(ctx, "file processed", "project", p.ID, "file", fileName, "size", header.Size)
	s.jsonResponse(w, http.StatusCreated, UploadResponse{
		ProjectID:   p.ID,
		Name:        p.Name,
		ChunksCount: len(p.Chunks),
		TotalChunks: p.TotalChunks,
		DropStats:   filtering.Stats(p.Dropped),
		Message:     "File processed successfully",
	})
}

func writeUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &ErrValidation{Field: "file", Message: fmt.Sprintf("larger than %d bytes", maxErr.Limit)}
		}
		return fmt.Errorf("failed to store upload: %w", err)
	}
	return dst.Close()
}

// handleGetProject returns one project summary
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.loadProject(r.Context(), ownerKey(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, summarize(p))
}

// handleGetChunks returns kept, dropped and classified chunks
func (s *Server) handleGetChunks(w http.ResponseWriter, r *http.Request) {
	p, err := s.loadProject(r.Context(), ownerKey(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, ChunksResponse{
		ProjectID:  p.ID,
		Chunks:     nonNil(p.Chunks),
		Dropped:    nonNil(p.Dropped),
		Classified: nonNil(p.Classified),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// handleRenameProject renames a project
func (s *Server) handleRenameProject(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.fail(w, r, &ErrValidation{Field: "name", Message: "is required"})
		return
	}

	owner, id := ownerKey(r), r.PathValue("id")
	unlock := lockProject(owner, id)
	defer unlock()

	if err := s.store.RenameProject(r.Context(), owner, id, name); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "name": name})
}

// handleDeleteProject deletes a project and its document
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	owner, id := ownerKey(r), r.PathValue("id")
	unlock := lockProject(owner, id)
	defer unlock()

	if err := s.store.DeleteProject(r.Context(), owner, id); err != nil {
		s.fail(w, r, err)
		return
	}
	forgetProject(owner, id)
	s.logger.InfoContext(r.Context(), "deleted project", "project", id)
	s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// handleClassify labels the project's kept chunks
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, id := ownerKey(r), r.PathValue("id")
	unlock := lockProject(owner, id)
	defer unlock()

	p, err := s.loadProject(ctx, owner, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.runner.Classify(ctx, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.saveProject(ctx, p); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, classifyResponse(p.ID, result))
}

func classifyResponse(projectID string, result *classification.Result) ClassifyResponse {
	return ClassifyResponse{
		ProjectID:       projectID,
		Batches:         result.Batches,
		DegradedBatches: result.DegradedBatches,
		Unmatched:       result.Unmatched,
		Counts:          result.Counts(),
	}
}

// handleGenerate writes the project's BRD
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	resp, err := s.generate(r.Context(), ownerKey(r), r.PathValue("id"), s.runner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleGenerateStream writes the BRD and streams pipeline progress via SSE
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Each stream gets its own progress callback
	runner := *s.runner
	runner.OnProgress = func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("step", event); err != nil {
			s.logger.Warn("failed to write SSE event", "error", err)
		}
	}

	resp, err := s.generate(r.Context(), ownerKey(r), r.PathValue("id"), &runner)
	if err != nil {
		sse.WriteError(err.Error())
		return
	}
	sse.WriteComplete(*resp)
}

func (s *Server) generate(ctx context.Context, owner, id string, runner *pipeline.Runner) (*BRDResponse, error) {
	unlock := lockProject(owner, id)
	defer unlock()

	p, err := s.loadProject(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	doc, err := runner.Generate(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.saveProject(ctx, p); err != nil {
		return nil, err
	}

	return &BRDResponse{
		ProjectID:  p.ID,
		BRD:        doc.Content,
		Truncated:  doc.Truncated,
		UpdatedAt:  p.UpdatedAt,
		Stats:      &BRDStats{TotalChunks: len(p.Chunks), Samples: doc.Samples},
		Violations: validation.Validate(doc.Content, validation.Options{}).Violations,
	}, nil
}

// handleGetBRD returns the stored document
func (s *Server) handleGetBRD(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := s.store.GetDocument(r.Context(), ownerKey(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if doc == nil {
		s.fail(w, r, &ErrNotFound{What: "BRD", ID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, BRDResponse{
		ProjectID:  id,
		BRD:        *doc,
		Violations: validation.Validate(*doc, validation.Options{}).Violations,
	})
}

// handleEditBRD applies one change to the stored document
func (s *Server) handleEditBRD(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	owner, id := ownerKey(r), r.PathValue("id")
	unlock := lockProject(owner, id)
	defer unlock()

	p, err := s.loadProject(ctx, owner, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !p.HasDocument() {
		s.fail(w, r, &ErrNotFound{What: "BRD", ID: id})
		return
	}

	doc, err := s.runner.Edit(ctx, p, pipeline.EditRequest{
		Change:    req.ChangeDescription,
		Selection: req.Selection,
		Section:   req.Section,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.saveProject(ctx, p); err != nil {
		s.fail(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, BRDResponse{
		ProjectID:  p.ID,
		BRD:        doc.Content,
		Truncated:  doc.Truncated,
		UpdatedAt:  p.UpdatedAt,
		Violations: validation.Validate(doc.Content, validation.Options{}).Violations,
	})
}
