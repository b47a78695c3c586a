package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []genai.Part{genai.Text("## 1. "), genai.Text("Executive Summary")},
				},
				FinishReason: genai.FinishReasonMaxTokens,
			},
		},
	}

	gen, err := generationFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "## 1. Executive Summary", gen.Text)
	assert.Equal(t, FinishMaxTokens, gen.FinishReason)
	assert.True(t, gen.Truncated())
}

func TestGenerationFromResponse_NoCandidates(t *testing.T) {
	_, err := generationFromResponse(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = generationFromResponse(nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestGenerationFromResponse_EmptyContent(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}

	gen, err := generationFromResponse(resp)
	require.NoError(t, err)
	assert.Empty(t, gen.Text)
	assert.Equal(t, FinishSafety, gen.FinishReason)
	assert.False(t, gen.Truncated())
}

func TestFinishReasonFromGenai(t *testing.T) {
	assert.Equal(t, FinishStop, finishReasonFromGenai(genai.FinishReasonStop))
	assert.Equal(t, FinishRecitation, finishReasonFromGenai(genai.FinishReasonRecitation))
	assert.Equal(t, FinishOther, finishReasonFromGenai(genai.FinishReasonOther))
	assert.Equal(t, FinishUnspecified, finishReasonFromGenai(genai.FinishReasonUnspecified))
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: Provider("openai")}, "key")
	assert.Error(t, err)
}
