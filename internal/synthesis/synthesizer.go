// Package synthesis writes and edits the Business Requirements Document.
package synthesis

import (
	"context"
	"log/slog"

	"github.com/jonathan/brd-generator/internal/llm"
)

// Generation defaults
const (
	DefaultTemperature            = 0.1
	DefaultMaxOutputTokens        = 16000
	DefaultEditTemperature        = 0.2
	DefaultSectionMaxOutputTokens = 4000
)

// Options configures a Synthesizer. Zero values take the defaults.
type Options struct {
	Tier                   llm.ModelTier
	MaxSamples             int
	Temperature            float32
	MaxOutputTokens        int32
	EditTemperature        float32
	SectionMaxOutputTokens int32
	Logger                 *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Tier == "" {
		o.Tier = llm.TierStandard
	}
	if o.MaxSamples <= 0 {
		o.MaxSamples = DefaultMaxSamples
	}
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if o.EditTemperature == 0 {
		o.EditTemperature = DefaultEditTemperature
	}
	if o.SectionMaxOutputTokens <= 0 {
		o.SectionMaxOutputTokens = DefaultSectionMaxOutputTokens
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Document is a generated or edited BRD
type Document struct {
	Content      string
	FinishReason llm.FinishReason
	// Truncated is set when the model stopped at the output token limit.
	// Content is still the (partial) document.
	Truncated bool
	// Samples is how many fragments were sent to the model
	Samples int
}

// Synthesizer turns fragments into a BRD and applies edits to it
type Synthesizer struct {
	client llm.Client
	opts   Options
	log    *slog.Logger
}

// NewSynthesizer creates a Synthesizer
func NewSynthesizer(client llm.Client, opts Options) *Synthesizer {
	opts = opts.withDefaults()
	return &Synthesizer{client: client, opts: opts, log: opts.Logger}
}

// Generate samples fragments and asks the model for a ten-section BRD.
// Any model failure or an empty answer is a *GenerationError.
func (s *Synthesizer) Generate(ctx context.Context, fragments []Fragment) (*Document, error) {
	if len(fragments) == 0 {
		return nil, ErrNoFragments
	}

	sampled := Sample(fragments, s.opts.MaxSamples)
	s.log.InfoContext(ctx, "generating document", "fragments", len(fragments), "samples", len(sampled))

	doc, err := s.complete(ctx, BuildPrompt(sampled), s.opts.Temperature, s.opts.MaxOutputTokens, "document generation")
	if err != nil {
		return nil, err
	}
	doc.Samples = len(sampled)
	return doc, nil
}

// complete runs one generation call and cleans the answer.
func (s *Synthesizer) complete(ctx context.Context, prompt string, temperature float32, maxTokens int32, what string) (*Document, error) {
	gen, err := s.client.Generate(ctx, prompt, llm.GenerateOptions{
		Tier:            s.opts.Tier,
		Temperature:     temperature,
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return nil, &GenerationError{Message: what + " failed", Cause: err}
	}

	content := llm.StripMarkdownFences(gen.Text)
	if content == "" {
		return nil, &GenerationError{Message: what + " returned no text (finish reason " + string(gen.FinishReason) + ")"}
	}

	doc := &Document{
		Content:      content,
		FinishReason: gen.FinishReason,
		Truncated:    gen.Truncated(),
	}
	s.log.DebugContext(ctx, "generation finished", "what", what, "finish_reason", gen.FinishReason)
	if doc.Truncated {
		s.log.WarnContext(ctx, "response was truncated due to token limit", "what", what, "max_output_tokens", maxTokens)
	}
	return doc, nil
}
