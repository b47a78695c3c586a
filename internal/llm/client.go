package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrNoCandidates is returned when the provider answers without any candidate.
var ErrNoCandidates = errors.New("no candidates in response")

// FinishReason reports why the provider stopped generating
type FinishReason string

// Finish reasons normalized across providers
const (
	FinishUnspecified FinishReason = "UNSPECIFIED"
	FinishStop        FinishReason = "STOP"
	FinishMaxTokens   FinishReason = "MAX_TOKENS"
	FinishSafety      FinishReason = "SAFETY"
	FinishRecitation  FinishReason = "RECITATION"
	FinishOther       FinishReason = "OTHER"
)

// GenerateOptions tunes a single generation call
type GenerateOptions struct {
	Tier            ModelTier
	Temperature     float32
	MaxOutputTokens int32
}

// Generation is the text of the first candidate plus its stop signal
type Generation struct {
	Text         string
	FinishReason FinishReason
}

// Truncated reports whether generation stopped at the output token limit
func (g *Generation) Truncated() bool {
	return g.FinishReason == FinishMaxTokens
}

// Client is an abstraction over LLM providers
type Client interface {
	// Generate sends one prompt and returns the first candidate
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Generation, error)
	// Model returns the provider model name for a tier
	Model(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultGeminiConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Generate generates text content using the model configured for opts.Tier
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Generation, error) {
	modelName := c.config.GetModel(opts.Tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", opts.Tier)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(opts.Temperature)
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxOutputTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return generationFromResponse(resp)
}

// Model returns the model name for a tier
func (c *GeminiClient) Model(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// generationFromResponse joins the text parts of the first candidate.
// A candidate without text is not an error here; callers decide what empty output means.
func generationFromResponse(resp *genai.GenerateContentResponse) (*Generation, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, ErrNoCandidates
	}

	candidate := resp.Candidates[0]
	gen := &Generation{FinishReason: finishReasonFromGenai(candidate.FinishReason)}
	if candidate.Content == nil {
		return gen, nil
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	gen.Text = strings.Join(parts, "")
	return gen, nil
}

func finishReasonFromGenai(reason genai.FinishReason) FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return FinishStop
	case genai.FinishReasonMaxTokens:
		return FinishMaxTokens
	case genai.FinishReasonSafety:
		return FinishSafety
	case genai.FinishReasonRecitation:
		return FinishRecitation
	case genai.FinishReasonOther:
		return FinishOther
	default:
		return FinishUnspecified
	}
}
