// Package classification labels chunks in paced batches using an LLM.
package classification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/brd-generator/internal/llm"
	"github.com/jonathan/brd-generator/internal/types"
)

// Defaults sized for a 5 requests/minute quota.
const (
	DefaultBatchSize       = 5
	DefaultInterval        = 12 * time.Second
	DefaultTemperature     = 0.1
	DefaultMaxOutputTokens = 1000
)

// Options configures a Scheduler. Zero values take the defaults above.
type Options struct {
	BatchSize int
	// Interval is the minimum gap between requests. Negative disables pacing.
	Interval time.Duration
	// RequestsPerMinute, when positive, sizes the gap from the provider's
	// request-rate ceiling and takes precedence over Interval.
	RequestsPerMinute int
	// Retries is how many extra attempts a failed batch gets. Zero means none.
	Retries         int
	Tier            llm.ModelTier
	Temperature     float32
	MaxOutputTokens int32
	Logger          *slog.Logger
	// OnBatch is called after every batch with 1-based progress.
	OnBatch func(done, total int)
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Interval == 0 {
		o.Interval = DefaultInterval
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Tier == "" {
		o.Tier = llm.TierStandard
	}
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Result is the outcome of one ClassifyAll run
type Result struct {
	// Chunks has one entry per input chunk, in input order
	Chunks          []types.ClassifiedChunk
	Batches         int
	DegradedBatches int
	// Unmatched counts chunks of successful batches that got no record
	Unmatched int
}

// Counts returns how many chunks landed in each category
func (r *Result) Counts() map[types.ChunkType]int {
	counts := make(map[types.ChunkType]int, len(types.ChunkTypes))
	for _, c := range r.Chunks {
		counts[c.Type]++
	}
	return counts
}

// Scheduler classifies chunks batch by batch, one request in flight at a time
type Scheduler struct {
	client llm.Client
	pacer  *Pacer
	opts   Options
	log    *slog.Logger
}

// NewScheduler creates a Scheduler
func NewScheduler(client llm.Client, opts Options) *Scheduler {
	opts = opts.withDefaults()
	pacer := NewPacer(opts.Interval)
	if opts.RequestsPerMinute > 0 {
		pacer = PacerForRPM(opts.RequestsPerMinute)
		opts.Interval = time.Minute / time.Duration(opts.RequestsPerMinute)
	}
	return &Scheduler{
		client: client,
		pacer:  pacer,
		opts:   opts,
		log:    opts.Logger,
	}
}

// ClassifyAll classifies every chunk. Failed requests degrade their batch to
// NotRelevant and the run continues. The only errors returned come from ctx:
// cancellation, or a deadline that the next paced request cannot meet.
func (s *Scheduler) ClassifyAll(ctx context.Context, chunks []types.Chunk) (*Result, error) {
	batches := types.SplitBatches(chunks, s.opts.BatchSize)
	result := &Result{
		Chunks:  make([]types.ClassifiedChunk, 0, len(chunks)),
		Batches: len(batches),
	}

	s.log.InfoContext(ctx, "classifying chunks",
		"chunks", len(chunks),
		"batches", len(batches),
		"batch_size", s.opts.BatchSize,
		"interval", s.opts.Interval)

	for i, batch := range batches {
		classified, unmatched, err := s.classifyBatch(ctx, i+1, batch)
		if err != nil {
			if errors.Is(err, ErrPacingAborted) {
				return nil, fmt.Errorf("classification stopped at batch %d of %d: %w", i+1, len(batches), err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("classification cancelled at batch %d of %d: %w", i+1, len(batches), ctxErr)
			}
			s.log.WarnContext(ctx, "batch degraded to NotRelevant", "batch", i+1, "error", err)
			classified = fallback(batch)
			result.DegradedBatches++
		} else {
			result.Unmatched += unmatched
		}

		result.Chunks = append(result.Chunks, classified...)
		s.log.DebugContext(ctx, "batch classified", "batch", i+1, "of", len(batches), "unmatched", unmatched)
		if s.opts.OnBatch != nil {
			s.opts.OnBatch(i+1, len(batches))
		}
	}

	return result, nil
}

// classifyBatch sends one batch, retrying up to Retries times. Every attempt waits on the pacer.
func (s *Scheduler) classifyBatch(ctx context.Context, index int, batch types.Batch) ([]types.ClassifiedChunk, int, error) {
	prompt := BuildPrompt(batch)

	var lastErr error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if err := s.pacer.Wait(ctx); err != nil {
			return nil, 0, err
		}

		records, err := s.request(ctx, index, prompt)
		if err == nil {
			classified, unmatched := reconcile(batch, records)
			return classified, unmatched, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < s.opts.Retries {
			s.log.DebugContext(ctx, "retrying batch", "batch", index, "attempt", attempt+1, "error", err)
		}
	}
	return nil, 0, lastErr
}

func (s *Scheduler) request(ctx context.Context, index int, prompt string) ([]record, error) {
	gen, err := s.client.Generate(ctx, prompt, llm.GenerateOptions{
		Tier:            s.opts.Tier,
		Temperature:     s.opts.Temperature,
		MaxOutputTokens: s.opts.MaxOutputTokens,
	})
	if err != nil {
		return nil, &ClassificationError{Batch: index, Message: "request failed", Cause: err}
	}

	records, err := parseRecords(gen.Text)
	if err != nil {
		return nil, &ClassificationError{Batch: index, Message: "malformed response", Cause: err}
	}
	return records, nil
}
