package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jonathan/brd-generator/internal/classification"
	"github.com/jonathan/brd-generator/internal/config"
	"github.com/jonathan/brd-generator/internal/db"
	"github.com/jonathan/brd-generator/internal/llm"
	"github.com/jonathan/brd-generator/internal/observability"
	"github.com/jonathan/brd-generator/internal/pipeline"
	"github.com/jonathan/brd-generator/internal/schemas"
	"github.com/jonathan/brd-generator/internal/synthesis"
	"github.com/jonathan/brd-generator/internal/types"
	"github.com/spf13/cobra"
)

// app holds what a command needs once config is loaded
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	printer *observability.Printer
	stdout  io.Writer
}

// newLLMClient is swapped out in tests
var newLLMClient = defaultLLMClient

func defaultLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or api_key in the config file)")
	}
	llmCfg := llm.DefaultConfig()
	if cfg.Model != "" {
		tier, err := llm.ParseModelTier(cfg.ModelTier)
		if err != nil {
			return nil, err
		}
		llmCfg = llmCfg.WithModel(tier, cfg.Model)
	}
	return llm.NewClient(ctx, llmCfg, cfg.APIKey)
}

// openStore uses PostgreSQL when a database URL is configured, SQLite otherwise
func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	if cfg.DatabaseURL != "" {
		store, err = db.Connect(ctx, cfg.DatabaseURL)
	} else {
		store, err = db.OpenSQLite(ctx, cfg.SQLitePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func newApp(out io.Writer, errOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		printer: observability.NewPrinter(errOut),
		stdout:  out,
	}, nil
}

// runner builds a pipeline.Runner. client may be nil for commands that only ingest.
func (a *app) runner(client llm.Client) *pipeline.Runner {
	tier, _ := llm.ParseModelTier(a.cfg.ModelTier)

	var (
		scheduler   *classification.Scheduler
		synthesizer *synthesis.Synthesizer
	)
	if client != nil {
		interval := a.cfg.BatchInterval.Duration
		if interval == 0 {
			interval = -1
		}
		scheduler = classification.NewScheduler(client, classification.Options{
			BatchSize:         a.cfg.BatchSize,
			Interval:          interval,
			RequestsPerMinute: a.cfg.RateLimitRPM,
			Retries:           a.cfg.ClassifyRetries,
			Tier:              tier,
			Logger:            a.logger,
			OnBatch: func(done, total int) {
				a.logger.Info("classified batch", "done", done, "total", total)
			},
		})
		synthesizer = synthesis.NewSynthesizer(client, synthesis.Options{
			Tier:       tier,
			MaxSamples: a.cfg.MaxSamples,
			Logger:     a.logger,
		})
	}

	r := pipeline.NewRunner(scheduler, synthesizer)
	r.Logger = a.logger
	r.OnProgress = func(e pipeline.ProgressEvent) {
		a.logger.Debug(e.Message, "step", e.Step, "project", e.ProjectID)
	}
	return r
}

// writeArtifact marshals v, checks it against the artifact schema and writes it to path
func writeArtifact(path, artifact string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := schemas.ValidateArtifact(artifact, data); err != nil {
		return fmt.Errorf("output does not validate against %s schema: %w", artifact, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// readArtifact reads path, checks it against the artifact schema and unmarshals it into v
func readArtifact(path, artifact string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	if err := schemas.ValidateArtifact(artifact, data); err != nil {
		return fmt.Errorf("%s is not a valid %s file: %w", path, artifact, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// nonNil keeps empty artifacts as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// loadProject fetches an owner's project together with its document
func loadProject(ctx context.Context, store db.Store, ownerKey, id string) (*types.Project, error) {
	p, err := store.GetProject(ctx, ownerKey, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("project not found: %s", id)
	}
	doc, err := store.GetDocument(ctx, ownerKey, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc != nil {
		p.Document = *doc
	}
	return p, nil
}

// saveProject stores the project and, when present, its document
func saveProject(ctx context.Context, store db.Store, p *types.Project) error {
	if err := store.SaveProject(ctx, p); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	if p.HasDocument() {
		if err := store.SaveDocument(ctx, p.OwnerKey, p.ID, p.Document); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
	}
	return nil
}

// withStore loads config, opens the store and calls fn
func withStore(cmd *cobra.Command, fn func(ctx context.Context, a *app, store db.Store) error) error {
	a, err := newApp(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(ctx, a, store)
}
