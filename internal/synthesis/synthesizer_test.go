package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jonathan/brd-generator/internal/llm"
	"github.com/jonathan/brd-generator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	text    string
	finish  llm.FinishReason
	err     error
	prompts []string
	opts    []llm.GenerateOptions
}

func (f *fakeClient) Generate(_ context.Context, prompt string, opts llm.GenerateOptions) (*llm.Generation, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	finish := f.finish
	if finish == "" {
		finish = llm.FinishStop
	}
	return &llm.Generation{Text: f.text, FinishReason: finish}, nil
}

func (f *fakeClient) Model(llm.ModelTier) string { return "fake" }
func (f *fakeClient) Close() error                 { return nil }

func chunks(n int) []types.Chunk {
	out := make([]types.Chunk, n)
	for i := range out {
		out[i] = types.Chunk{ChunkID: fmt.Sprintf("c%d", i), Text: fmt.Sprintf("fragment %d", i)}
	}
	return out
}

func TestGenerate(t *testing.T) {
	client := &fakeClient{text: "```markdown\n## 1. Executive Summary\nPortal.\n```"}
	s := NewSynthesizer(client, Options{})

	doc, err := s.Generate(context.Background(), Fragments(chunks(47)))
	require.NoError(t, err)

	assert.Equal(t, "## 1. Executive Summary\nPortal.", doc.Content)
	assert.False(t, doc.Truncated)
	assert.Equal(t, 20, doc.Samples)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "fragment 0\n\nfragment 2\n\nfragment 4")
	assert.Contains(t, prompt, "fragment 38")
	assert.NotContains(t, prompt, "fragment 40")
	assert.InDelta(t, 0.1, client.opts[0].Temperature, 1e-6)
	assert.Equal(t, int32(16000), client.opts[0].MaxOutputTokens)
}

func TestGenerate_ClassifiedFragmentsCarryType(t *testing.T) {
	client := &fakeClient{text: "## 1. Executive Summary"}
	classified := []types.ClassifiedChunk{
		{Chunk: types.Chunk{Text: "Export to CSV"}, Type: types.TypeRequirement},
		{Chunk: types.Chunk{Text: "Weather chat"}, Type: types.TypeNotRelevant},
	}

	_, err := NewSynthesizer(client, Options{}).Generate(context.Background(), Fragments(classified))
	require.NoError(t, err)
	assert.Contains(t, client.prompts[0], "[Requirement] Export to CSV\n\nWeather chat")
}

func TestGenerate_Truncated(t *testing.T) {
	client := &fakeClient{text: "## 1. Executive Summary\nPartial", finish: llm.FinishMaxTokens}

	doc, err := NewSynthesizer(client, Options{}).Generate(context.Background(), Fragments(chunks(3)))
	require.NoError(t, err)
	assert.True(t, doc.Truncated)
	assert.Equal(t, llm.FinishMaxTokens, doc.FinishReason)
	assert.Equal(t, "## 1. Executive Summary\nPartial", doc.Content)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := NewSynthesizer(&fakeClient{}, Options{}).Generate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFragments)

	cause := errors.New("permission denied")
	_, err = NewSynthesizer(&fakeClient{err: cause}, Options{}).Generate(context.Background(), Fragments(chunks(2)))
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, cause)

	_, err = NewSynthesizer(&fakeClient{text: "```\n```"}, Options{}).Generate(context.Background(), Fragments(chunks(2)))
	assert.ErrorAs(t, err, &genErr)
}

func TestBuildPrompt_Structure(t *testing.T) {
	prompt := BuildPrompt(Fragments(chunks(2)))

	headings := []string{
		"## 1. Executive Summary", "## 2. Business Objectives", "## 3. Stakeholders",
		"## 4. Scope", "## 5. Functional Requirements", "## 6. Non-Functional Requirements",
		"## 7. Assumptions and Constraints", "## 8. Risks and Mitigations",
		"## 9. Success Metrics", "## 10. High-Level Timeline",
	}
	last := -1
	for _, h := range headings {
		idx := strings.Index(prompt, h)
		require.Greater(t, idx, last, h)
		last = idx
	}
	assert.True(t, strings.HasSuffix(prompt, "fragment 0\n\nfragment 1"))
}

func TestEditDocument(t *testing.T) {
	client := &fakeClient{text: "## 1. Executive Summary\nShorter."}
	s := NewSynthesizer(client, Options{})

	doc, err := s.EditDocument(context.Background(), sampleDoc, "Make the summary shorter")
	require.NoError(t, err)
	assert.Equal(t, "## 1. Executive Summary\nShorter.", doc.Content)
	assert.Contains(t, client.prompts[0], "Current BRD:\n"+sampleDoc)
	assert.Contains(t, client.prompts[0], "Requested Change:\nMake the summary shorter")
	assert.InDelta(t, 0.2, client.opts[0].Temperature, 1e-6)

	_, err = s.EditDocument(context.Background(), sampleDoc, "  ")
	assert.ErrorIs(t, err, ErrEmptyChange)
}

func TestEditSection(t *testing.T) {
	client := &fakeClient{text: "```markdown\n## 1. Executive Summary\nThe portal replaces every spreadsheet.\n```"}
	s := NewSynthesizer(client, Options{})

	doc, err := s.EditSection(context.Background(), sampleDoc, "replaces spreadsheets", "say every spreadsheet")
	require.NoError(t, err)

	expected := strings.Replace(sampleDoc, "The portal replaces spreadsheets.", "The portal replaces every spreadsheet.", 1)
	assert.Equal(t, expected, doc.Content)

	prompt := client.prompts[0]
	assert.Contains(t, prompt, "Original section:\n## 1. Executive Summary\nThe portal replaces spreadsheets.\n\n")
	assert.NotContains(t, prompt, "## 2. Business Objectives")
	assert.Contains(t, prompt, "Selected text to modify:\n\"replaces spreadsheets\"")
	assert.Equal(t, int32(4000), client.opts[0].MaxOutputTokens)
}

func TestEditSection_NotFound(t *testing.T) {
	client := &fakeClient{text: "unused"}
	_, err := NewSynthesizer(client, Options{}).EditSection(context.Background(), sampleDoc, "not in the doc", "x")

	var notFound *SectionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Empty(t, client.prompts)
}

func TestEditSectionAt(t *testing.T) {
	client := &fakeClient{text: "## 3. Stakeholders\n| Role | Owner |"}
	s := NewSynthesizer(client, Options{})

	doc, err := s.EditSectionAt(context.Background(), sampleDoc, 3, "rename column")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(doc.Content, "## 3. Stakeholders\n| Role | Owner |\n"))
	assert.True(t, strings.HasPrefix(doc.Content, "# BRD\n\n## 1. Executive Summary"))

	_, err = s.EditSectionAt(context.Background(), sampleDoc, 9, "x")
	var notFound *SectionNotFoundError
	assert.ErrorAs(t, err, &notFound)
}
