package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/brd-generator/internal/classification"
	"github.com/jonathan/brd-generator/internal/db"
	"github.com/jonathan/brd-generator/internal/llm"
	"github.com/jonathan/brd-generator/internal/pipeline"
	"github.com/jonathan/brd-generator/internal/server/middleware"
	"github.com/jonathan/brd-generator/internal/server/ratelimit"
	"github.com/jonathan/brd-generator/internal/synthesis"
	"github.com/jonathan/brd-generator/internal/types"
)

const (
	businessRow = "The client needs a reporting dashboard before the budget review next quarter. " +
		"Stakeholders agreed the timeline is fixed and the scope covers finance only."
	testDocument = "## 1. Executive Summary\nThe finance team needs a dashboard.\n## 2. Business Objectives\nShip before the budget review."
)

type fakeClient struct {
	mu    sync.Mutex
	calls int
}

func (c *fakeClient) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (*llm.Generation, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	text := testDocument
	switch {
	case strings.HasPrefix(prompt, "You are a business analyst."):
		text = "[]"
	case strings.HasPrefix(prompt, "You are editing a section"):
		text = "## 2. Business Objectives\nShip before the board meeting."
	case strings.HasPrefix(prompt, "You are editing a Business"):
		text = "## 1. Executive Summary\nRewritten."
	}
	return &llm.Generation{Text: text, FinishReason: llm.FinishStop}, nil
}

func (c *fakeClient) Model(llm.ModelTier) string { return "fake" }
func (c *fakeClient) Close() error                 { return nil }

func setupTestServer(t *testing.T, withLLM bool) (*Server, db.Store) {
	t.Helper()
	ctx := context.Background()

	store, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "brd.db"))
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	t.Cleanup(func() { _ = store.Close() })

	runner := pipeline.NewRunner(nil, nil)
	if withLLM {
		client := &fakeClient{}
		runner = pipeline.NewRunner(
			classification.NewScheduler(client, classification.Options{Interval: -1}),
			synthesis.NewSynthesizer(client, synthesis.Options{}),
		)
	}

	return New(Config{Port: 0, OwnerKey: "default"}, store, runner), store
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func upload(t *testing.T, s *Server, owner, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("name", "Finance dashboard"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/projects", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if owner != "" {
		req.Header.Set(middleware.OwnerHeader, owner)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func csvContent(rows ...string) string {
	var b strings.Builder
	b.WriteString("text\n")
	for _, row := range rows {
		b.WriteString(`"` + row + `"` + "\n")
	}
	return b.String()
}

func uploadProject(t *testing.T, s *Server) string {
	t.Helper()
	w := upload(t, s, "", "notes.csv", csvContent(businessRow, businessRow))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp UploadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.ProjectID)
	return resp.ProjectID
}

func TestHealth(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := do(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestUpload(t *testing.T) {
	s, store := setupTestServer(t, false)

	w := upload(t, s, "", "notes.csv", csvContent(businessRow, "Quarterly reconciliation documentation consolidation happens afterwards.", businessRow))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp UploadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Finance dashboard", resp.Name)
	assert.Equal(t, 3, resp.TotalChunks)
	assert.Equal(t, 2, resp.ChunksCount)
	assert.Equal(t, 1, resp.DropStats[types.ReasonTooShort])

	p, err := store.GetProject(context.Background(), "default", resp.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, types.StageFiltered, p.Stage)
	assert.Equal(t, "notes.csv", p.Dataset.FileName)
}

func TestUpload_Errors(t *testing.T) {
	s, _ := setupTestServer(t, false)

	tests := []struct {
		name     string
		fileName string
		want     int
	}{
		{"unsupported type", "notes.docx", http.StatusUnsupportedMediaType},
		{"bad owner key", "notes.csv", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner := ""
			if tt.name == "bad owner key" {
				owner = "not a key!"
			}
			w := upload(t, s, owner, tt.fileName, csvContent(businessRow))
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	t.Run("missing file", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/api/projects", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProjects_OwnerScoped(t *testing.T) {
	s, _ := setupTestServer(t, false)
	require.Equal(t, http.StatusCreated, upload(t, s, "alice", "notes.csv", csvContent(businessRow)).Code)
	require.Equal(t, http.StatusCreated, upload(t, s, "bob", "notes.csv", csvContent(businessRow)).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set(middleware.OwnerHeader, "alice")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var summaries []ProjectSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summaries))
	assert.Len(t, summaries, 1)

	w = do(t, s, http.MethodGet, "/api/projects/"+summaries[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenameAndDelete(t *testing.T) {
	s, _ := setupTestServer(t, false)
	id := uploadProject(t, s)

	w := do(t, s, http.MethodPatch, "/api/projects/"+id+"/rename", RenameRequest{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPatch, "/api/projects/"+id+"/rename", RenameRequest{Name: "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/projects/"+id, nil)
	var summary ProjectSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, "Renamed", summary.Name)

	w = do(t, s, http.MethodDelete, "/api/projects/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodDelete, "/api/projects/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRename_WaitsForProjectLock(t *testing.T) {
	s, _ := setupTestServer(t, false)
	id := uploadProject(t, s)

	unlock := lockProject("default", id)
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- do(t, s, http.MethodPatch, "/api/projects/"+id+"/rename", RenameRequest{Name: "Renamed"})
	}()

	select {
	case <-done:
		t.Fatal("rename finished while another request held the project")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case w := <-done:
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	case <-time.After(2 * time.Second):
		t.Fatal("rename did not finish after the lock was released")
	}
}

func TestDelete_ForgetsProjectLock(t *testing.T) {
	s, _ := setupTestServer(t, false)
	id := uploadProject(t, s)

	w := do(t, s, http.MethodPatch, "/api/projects/"+id+"/rename", RenameRequest{Name: "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := projectLocks.Load(projectLockKey("default", id))
	require.True(t, ok)

	w = do(t, s, http.MethodDelete, "/api/projects/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, ok = projectLocks.Load(projectLockKey("default", id))
	assert.False(t, ok, "deleted projects leave no lock behind")
}

func TestGetChunks(t *testing.T) {
	s, _ := setupTestServer(t, false)
	id := uploadProject(t, s)

	w := do(t, s, http.MethodGet, "/api/projects/"+id+"/chunks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChunksResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Chunks, 2)
	assert.Empty(t, resp.Dropped)
	assert.NotNil(t, resp.Classified)
}

func TestLifecycle(t *testing.T) {
	s, _ := setupTestServer(t, true)
	id := uploadProject(t, s)

	w := do(t, s, http.MethodGet, "/api/projects/"+id+"/brd", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/projects/"+id+"/classify", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var classified ClassifyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&classified))
	assert.Equal(t, 1, classified.Batches)
	assert.Equal(t, 2, classified.Unmatched)

	w = do(t, s, http.MethodPost, "/api/projects/"+id+"/generate-brd", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var generated BRDResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&generated))
	assert.Equal(t, testDocument, generated.BRD)
	require.NotNil(t, generated.Stats)
	assert.Equal(t, 2, generated.Stats.TotalChunks)
	assert.NotEmpty(t, generated.Violations, "the test document has only two sections")

	w = do(t, s, http.MethodGet, "/api/projects/"+id+"/brd", nil)
	require.Equal(t, http.StatusOK, w.Code)

	section := 1
	w = do(t, s, http.MethodPost, "/api/projects/"+id+"/edit-brd", EditRequest{
		ChangeDescription: "Move the deadline",
		Section:           &section,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var edited BRDResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&edited))
	assert.Contains(t, edited.BRD, "Ship before the board meeting.")
	assert.Contains(t, edited.BRD, "## 1. Executive Summary\nThe finance team needs a dashboard.")

	w = do(t, s, http.MethodGet, "/api/projects/"+id, nil)
	var summary ProjectSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, types.StageEdited, summary.Stage)
	assert.True(t, summary.HasBRD)

	// a classified project cannot be classified again
	w = do(t, s, http.MethodPost, "/api/projects/"+id+"/classify", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEditBRD_Errors(t *testing.T) {
	s, _ := setupTestServer(t, true)
	id := uploadProject(t, s)

	w := do(t, s, http.MethodPost, "/api/projects/"+id+"/edit-brd", EditRequest{ChangeDescription: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code, "no document yet")

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/projects/"+id+"/generate-brd", nil).Code)

	tests := []struct {
		name string
		req  EditRequest
		want int
	}{
		{"empty change", EditRequest{}, http.StatusBadRequest},
		{"unknown selection", EditRequest{ChangeDescription: "x", Selection: "no such text"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/projects/"+id+"/edit-brd", tt.req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+id+"/edit-brd", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate_WithoutModel(t *testing.T) {
	s, _ := setupTestServer(t, false)
	id := uploadProject(t, s)

	w := do(t, s, http.MethodPost, "/api/projects/"+id+"/generate-brd", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, s, http.MethodPost, "/api/projects/missing/generate-brd", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateStream(t *testing.T) {
	s, _ := setupTestServer(t, true)
	id := uploadProject(t, s)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/projects/"+id+"/generate-brd/stream", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if event, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, event)
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"step", "complete"}, events)
}

func TestRateLimit(t *testing.T) {
	ctx := context.Background()
	store, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	defer func() { _ = store.Close() }()

	cfg := &ratelimit.Config{
		Enabled: true,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/api/projects", Method: "GET", Limit: 1, Window: time.Hour, Burst: 1},
		},
	}
	s := New(Config{OwnerKey: "default", RateLimit: cfg}, store, pipeline.NewRunner(nil, nil))
	defer s.rateLimiter.Stop()

	w := do(t, s, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = do(t, s, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
