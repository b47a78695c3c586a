package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jonathan/brd-generator/internal/config"
	"github.com/jonathan/brd-generator/internal/llm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	businessRow = "The client needs a reporting dashboard before the budget review next quarter. " +
		"Stakeholders agreed the timeline is fixed and the scope covers finance only."
	testDocument = "## 1. Executive Summary\nThe finance team needs a dashboard.\n## 2. Business Objectives\nShip before the budget review."
)

// fakeClient answers by prompt kind without calling a model
type fakeClient struct {
	mu      sync.Mutex
	prompts []string
}

func (c *fakeClient) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (*llm.Generation, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()

	text := testDocument
	switch {
	case strings.HasPrefix(prompt, "You are a business analyst."):
		text = "[]"
	case strings.HasPrefix(prompt, "You are editing a section"):
		text = "## 2. Business Objectives\nShip before the board meeting."
	case strings.HasPrefix(prompt, "You are editing a Business"):
		text = "```markdown\n## 1. Executive Summary\nRewritten.\n```"
	}
	return &llm.Generation{Text: text, FinishReason: llm.FinishStop}, nil
}

func (c *fakeClient) Model(llm.ModelTier) string { return "fake" }
func (c *fakeClient) Close() error                 { return nil }

// setupCLI points the store at a temp SQLite file and swaps in a fake model
func setupCLI(t *testing.T) *fakeClient {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("BRD_SQLITE_PATH", filepath.Join(t.TempDir(), "brd.db"))
	t.Setenv("BRD_OWNER_KEY", "tester")
	t.Setenv("BRD_BATCH_INTERVAL", "0s")

	client := &fakeClient{}
	original := newLLMClient
	newLLMClient = func(context.Context, *config.Config) (llm.Client, error) { return client, nil }
	t.Cleanup(func() { newLLMClient = original })
	return client
}

// resetFlags restores every flag to its default so package-level flag vars do not leak between runs
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write([]string{"text"}))
	for _, row := range rows {
		require.NoError(t, w.Write([]string{row}))
	}
	w.Flush()
	require.NoError(t, w.Error())
	require.NoError(t, f.Close())
	return path
}

// onlyProjectID lists projects and returns the id of the single one
func onlyProjectID(t *testing.T) string {
	t.Helper()
	out, err := execute(t, "projects", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	return strings.Split(lines[0], "\t")[0]
}

func TestRunCommand_ProjectLifecycle(t *testing.T) {
	setupCLI(t)
	input := writeCSV(t, businessRow, "lol thanks for lunch yesterday everyone")
	outPath := filepath.Join(t.TempDir(), "brd.md")

	_, err := execute(t, "run", "--file", input, "--out", outPath)
	require.NoError(t, err)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, testDocument, string(written))

	out, err := execute(t, "projects", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "generated\tProject 1")
	id := onlyProjectID(t)

	_, err = execute(t, "edit", "--project", id, "--change", "Move the deadline", "--section", "1")
	require.NoError(t, err)

	out, err = execute(t, "projects", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "## 1. Executive Summary\nThe finance team needs a dashboard.\n")
	assert.Contains(t, out, "Ship before the board meeting.")
	assert.NotContains(t, out, "Ship before the budget review.")

	_, err = execute(t, "projects", "rename", id, "Finance dashboard")
	require.NoError(t, err)
	out, err = execute(t, "projects", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "edited\tFinance dashboard")

	_, err = execute(t, "projects", "delete", id)
	require.NoError(t, err)
	out, err = execute(t, "projects", "list")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))

	_, err = execute(t, "projects", "delete", id)
	assert.Error(t, err)
}

func TestFileMode_IngestClassifyGenerate(t *testing.T) {
	client := setupCLI(t)
	dir := t.TempDir()
	input := writeCSV(t, businessRow)
	chunksPath := filepath.Join(dir, "chunks.json")
	classifiedPath := filepath.Join(dir, "classified.json")
	brdPath := filepath.Join(dir, "brd.md")

	out, err := execute(t, "ingest", "--file", input, "--out", chunksPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Kept 1 of 1 chunks")

	out, err = execute(t, "validate", "--artifact", "chunks", "--json", chunksPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation passed")

	_, err = execute(t, "classify", "--in", chunksPath, "--out", classifiedPath)
	require.NoError(t, err)

	_, err = execute(t, "validate", "--artifact", "classified_chunks", "--json", classifiedPath)
	require.NoError(t, err)

	_, err = execute(t, "generate", "--in", classifiedPath, "--classified", "--out", brdPath)
	require.NoError(t, err)

	written, err := os.ReadFile(brdPath)
	require.NoError(t, err)
	assert.Equal(t, testDocument, string(written))
	assert.Len(t, client.prompts, 2)
}

func TestIngestCommand_SavesOneProjectPerFile(t *testing.T) {
	setupCLI(t)
	first := writeCSV(t, businessRow)
	second := writeCSV(t, businessRow)

	out, err := execute(t, "ingest", "--file", first, "--file", second)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Saved project"))

	out, err = execute(t, "projects", "list")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "filtered\tnotes"))
}

func TestIngestCommand_FlagsValidation(t *testing.T) {
	setupCLI(t)

	tests := []struct {
		name        string
		args        []string
		errorString string
	}{
		{"no input", []string{"ingest"}, "must provide"},
		{"file with emails", []string{"ingest", "--file", "a.csv", "--emails", "b.csv"}, "none of the others"},
		{"unsupported type", []string{"ingest", "--file", "notes.docx"}, "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.errorString)
		})
	}
}

func TestEditCommand_RequiresProjectAndChange(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "edit", "--change", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")

	_, err = execute(t, "edit", "--project", "missing", "--change", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project not found")
}

func TestClassifyCommand_MissingAPIKey(t *testing.T) {
	setupCLI(t)
	newLLMClient = func(ctx context.Context, cfg *config.Config) (llm.Client, error) {
		return defaultLLMClient(ctx, cfg)
	}

	_, err := execute(t, "classify", "--project", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestValidateCommand_Failure(t *testing.T) {
	setupCLI(t)
	path := filepath.Join(t.TempDir(), "chunks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"chunk_id": "x"}]`), 0644))

	out, err := execute(t, "validate", "--artifact", "chunks", "--json", path)
	require.Error(t, err)
	assert.Contains(t, out, "Validation failed")
}
