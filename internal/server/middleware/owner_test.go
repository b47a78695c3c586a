package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoOwner(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := GetOwnerKey(r)
		require.NoError(t, err)
		_, _ = w.Write([]byte(key))
	})
}

func TestOwnerKey(t *testing.T) {
	handler := OwnerKey("local")(echoOwner(t))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"header used", "team-a@example.com", http.StatusOK, "team-a@example.com"},
		{"missing header falls back", "", http.StatusOK, "local"},
		{"malformed key rejected", "bad key/../", http.StatusBadRequest, "invalid owner key"},
		{"overlong key rejected", strings.Repeat("a", 129), http.StatusBadRequest, "invalid owner key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
			if tt.header != "" {
				req.Header.Set(OwnerHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestGetOwnerKey_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetOwnerKey(req)
	assert.Error(t, err)
}
