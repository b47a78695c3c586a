// Package pipeline drives a project from uploaded file to edited BRD.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/brd-generator/internal/chunking"
	"github.com/jonathan/brd-generator/internal/classification"
	"github.com/jonathan/brd-generator/internal/extraction"
	"github.com/jonathan/brd-generator/internal/filtering"
	"github.com/jonathan/brd-generator/internal/ingestion"
	"github.com/jonathan/brd-generator/internal/synthesis"
	"github.com/jonathan/brd-generator/internal/types"
)

// Progress steps
const (
	StepUpload   = "upload"
	StepExtract  = "extract"
	StepChunk    = "chunk"
	StepFilter   = "filter"
	StepClassify = "classify"
	StepGenerate = "generate"
	StepEdit     = "edit"
)

var (
	// ErrNoScheduler is returned by Classify when the Runner has no Scheduler.
	ErrNoScheduler = errors.New("classification is not configured")
	// ErrNoSynthesizer is returned by Generate and Edit when the Runner has no Synthesizer.
	ErrNoSynthesizer = errors.New("document synthesis is not configured")
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step      string `json:"step"`
	Message   string `json:"message"`
	ProjectID string `json:"project_id,omitempty"`
	Content   any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// ExtractFunc reads a file and returns its raw text entries
type ExtractFunc func(ctx context.Context, filePath, fileType string) ([]string, error)

// EditRequest describes one edit. Selection and Section are mutually exclusive;
// with neither set the whole document is rewritten.
type EditRequest struct {
	Change    string `json:"change" validate:"required"`
	Selection string `json:"selection,omitempty" validate:"excluded_with=Section"`
	Section   *int   `json:"section,omitempty" validate:"omitempty,min=0"`
}

// Runner wires the pipeline stages together.
// A Runner holds no per-project state and may serve several projects at once.
type Runner struct {
	Extract     ExtractFunc
	NewIDs      func() *chunking.IDSource
	Filter      *filtering.Filter
	Scheduler   *classification.Scheduler
	Synthesizer *synthesis.Synthesizer
	OnProgress  ProgressCallback
	Logger      *slog.Logger
}

// validate checks EditRequest values; it is safe for concurrent use
var validate = validator.New()

// NewRunner creates a Runner with the default extractor, id source and filter.
// scheduler may be nil when classification is not wanted.
func NewRunner(scheduler *classification.Scheduler, synthesizer *synthesis.Synthesizer) *Runner {
	return &Runner{
		Extract:     extraction.Extract,
		NewIDs:      func() *chunking.IDSource { return chunking.NewIDSource(chunking.UUIDGenerator()) },
		Filter:      filtering.DefaultFilter(),
		Scheduler:   scheduler,
		Synthesizer: synthesizer,
		Logger:      slog.Default(),
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// emitProgress calls the progress callback if configured
func (r *Runner) emitProgress(p *types.Project, step, message string, content any) {
	if r.OnProgress == nil {
		return
	}
	event := ProgressEvent{Step: step, Message: message, Content: content}
	if p != nil {
		event.ProjectID = p.ID
	}
	r.OnProgress(event)
}

// NewProject creates an empty project with a fresh id
func NewProject(name string) *types.Project {
	now := time.Now().UTC()
	return &types.Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IngestFile extracts, normalizes, chunks and filters one uploaded file
func (r *Runner) IngestFile(ctx context.Context, path, name string) (*types.Project, error) {
	fileType := extraction.DetectFileType(path)
	texts, err := r.extractor()(ctx, path, fileType)
	if err != nil {
		return nil, err
	}

	source, err := types.ParseSource(fileType)
	if err != nil {
		return nil, fmt.Errorf("file type %q has no source mapping: %w", fileType, err)
	}

	r.emitProgress(nil, StepExtract, fmt.Sprintf("Extracted %d entries from %s", len(texts), filepath.Base(path)), nil)
	blocks := ingestion.Normalize(texts, source)
	return r.ingest(ctx, name, filepath.Base(path), blocks)
}

// IngestBlocks chunks and filters already-normalized blocks, such as loaded email or transcript dumps
func (r *Runner) IngestBlocks(ctx context.Context, name string, blocks []types.SourceBlock) (*types.Project, error) {
	return r.ingest(ctx, name, "", blocks)
}

func (r *Runner) ingest(ctx context.Context, name, fileName string, blocks []types.SourceBlock) (*types.Project, error) {
	p := NewProject(name)
	if err := advance(p, types.StageUploaded); err != nil {
		return nil, err
	}
	p.Dataset = ingestion.NewMetadata(fileName, blocks)
	r.emitProgress(p, StepUpload, fmt.Sprintf("Loaded %d source blocks", len(blocks)), p.Dataset)

	chunks := chunking.Chunk(blocks, r.idSource())
	p.TotalChunks = len(chunks)
	if err := advance(p, types.StageChunked); err != nil {
		return nil, err
	}
	r.emitProgress(p, StepChunk, fmt.Sprintf("Created %d chunks", len(chunks)), nil)

	filter := r.Filter
	if filter == nil {
		filter = filtering.DefaultFilter()
	}
	p.Chunks, p.Dropped = filter.Apply(chunks)
	if err := advance(p, types.StageFiltered); err != nil {
		return nil, err
	}

	r.logger().InfoContext(ctx, "ingested project",
		"project", p.ID,
		"blocks", len(blocks),
		"chunks", len(chunks),
		"kept", len(p.Chunks),
		"dropped", len(p.Dropped))
	r.emitProgress(p, StepFilter, fmt.Sprintf("Kept %d of %d chunks", len(p.Chunks), len(chunks)), filtering.Stats(p.Dropped))
	return p, nil
}

func (r *Runner) extractor() ExtractFunc {
	if r.Extract == nil {
		return extraction.Extract
	}
	return r.Extract
}

func (r *Runner) idSource() *chunking.IDSource {
	if r.NewIDs == nil {
		return chunking.NewIDSource(nil)
	}
	return r.NewIDs()
}

// IngestFiles ingests independent files concurrently, at most limit at a time.
// Each file becomes its own project with its own id source. Projects are
// returned in path order; the first failure cancels the rest.
func (r *Runner) IngestFiles(ctx context.Context, paths []string, limit int) ([]*types.Project, error) {
	projects := make([]*types.Project, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, path := range paths {
		g.Go(func() error {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			p, err := r.IngestFile(gCtx, path, name)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			projects[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return projects, nil
}

// Classify labels the project's kept chunks
func (r *Runner) Classify(ctx context.Context, p *types.Project) (*classification.Result, error) {
	if r.Scheduler == nil {
		return nil, ErrNoScheduler
	}
	if !CanAdvance(p.Stage, types.StageClassified) {
		return nil, &StageError{ProjectID: p.ID, From: p.Stage, To: types.StageClassified}
	}

	result, err := r.Scheduler.ClassifyAll(ctx, p.Chunks)
	if err != nil {
		return nil, err
	}

	p.Classified = result.Chunks
	if err := advance(p, types.StageClassified); err != nil {
		return nil, err
	}
	r.emitProgress(p, StepClassify,
		fmt.Sprintf("Classified %d chunks in %d batches (%d degraded)", len(result.Chunks), result.Batches, result.DegradedBatches),
		result.Counts())
	return result, nil
}

// Generate writes the BRD from classified chunks when available, else from kept chunks
func (r *Runner) Generate(ctx context.Context, p *types.Project) (*synthesis.Document, error) {
	if r.Synthesizer == nil {
		return nil, ErrNoSynthesizer
	}
	if !CanAdvance(p.Stage, types.StageGenerated) {
		return nil, &StageError{ProjectID: p.ID, From: p.Stage, To: types.StageGenerated}
	}

	fragments := synthesis.Fragments(p.Chunks)
	if len(p.Classified) > 0 {
		fragments = synthesis.Fragments(p.Classified)
	}

	doc, err := r.Synthesizer.Generate(ctx, fragments)
	if err != nil {
		return nil, err
	}

	p.Document = doc.Content
	p.Truncated = doc.Truncated
	if err := advance(p, types.StageGenerated); err != nil {
		return nil, err
	}
	r.emitProgress(p, StepGenerate, fmt.Sprintf("Generated BRD from %d samples", doc.Samples), doc)
	return doc, nil
}

// Edit applies one change to the project's document
func (r *Runner) Edit(ctx context.Context, p *types.Project, req EditRequest) (*synthesis.Document, error) {
	if r.Synthesizer == nil {
		return nil, ErrNoSynthesizer
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid edit request: %w", err)
	}
	if !CanAdvance(p.Stage, types.StageEdited) {
		return nil, &StageError{ProjectID: p.ID, From: p.Stage, To: types.StageEdited}
	}

	var (
		doc *synthesis.Document
		err error
	)
	switch {
	case req.Selection != "":
		doc, err = r.Synthesizer.EditSection(ctx, p.Document, req.Selection, req.Change)
	case req.Section != nil:
		doc, err = r.Synthesizer.EditSectionAt(ctx, p.Document, *req.Section, req.Change)
	default:
		doc, err = r.Synthesizer.EditDocument(ctx, p.Document, req.Change)
	}
	if err != nil {
		return nil, err
	}

	p.Document = doc.Content
	p.Truncated = doc.Truncated
	if err := advance(p, types.StageEdited); err != nil {
		return nil, err
	}
	r.emitProgress(p, StepEdit, "Applied edit: "+req.Change, nil)
	return doc, nil
}
