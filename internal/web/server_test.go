package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/glossary/internal/config"
	"github.com/JonMunkholm/glossary/internal/core"
	"github.com/JonMunkholm/glossary/internal/store/memory"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg, err := config.LoadFrom(func(key string) string {
		if key == "SQLITE_PATH" {
			return "unused.db"
		}
		return ""
	})
	require.NoError(t, err)
	cfg.Rate.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	reg := prometheus.NewRegistry()
	svc := core.NewService(memory.New(), core.Config{MaxFileSize: cfg.Upload.MaxFileSize},
		core.WithMetrics(core.NewMetrics(reg)))
	s := NewServer(svc, cfg, reg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path, user string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if user != "" {
		req.Header.Set("X-Remote-User", user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func uploadBody(t *testing.T, fileName, content, method string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if method != "" {
		require.NoError(t, mw.WriteField("method", method))
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestCreateGetEdit(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/dictionary/demo/de/", "alice",
		[]byte(`{"source":"cat","target":"Katze"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Katze", created.Target)
	assert.Equal(t, "/projects/demo/de/dictionary", created.ParentURL)

	rec = do(t, s, http.MethodPut, "/api/dictionary/demo/de/"+itoa(created.ID), "alice",
		[]byte(`{"source":"cat","target":"Kater"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/dictionary/demo/de/"+itoa(created.ID), "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"target":"Kater"`)

	rec = do(t, s, http.MethodGet, "/api/dictionary/demo/de/changes", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var changes []core.Change
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &changes))
	require.Len(t, changes, 2)
	assert.Equal(t, core.ActionEdit, changes[0].Action)
	assert.Equal(t, "alice", changes[0].UserID)
}

func TestErrors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		method   string
		path     string
		user     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"missing user", http.MethodPost, "/api/dictionary/demo/de/", "", `{"source":"a","target":"b"}`, http.StatusUnauthorized, "DICT004"},
		{"empty source", http.MethodPost, "/api/dictionary/demo/de/", "alice", `{"source":"","target":"b"}`, http.StatusBadRequest, "DICT003"},
		{"too long", http.MethodPost, "/api/dictionary/demo/de/", "alice", `{"source":"` + strings.Repeat("x", 201) + `"}`, http.StatusBadRequest, "DICT002"},
		{"unknown field", http.MethodPost, "/api/dictionary/demo/de/", "alice", `{"src":"a"}`, http.StatusBadRequest, "ERR000"},
		{"missing entry", http.MethodGet, "/api/dictionary/demo/de/42", "", "", http.StatusNotFound, "DICT001"},
		{"bad id", http.MethodGet, "/api/dictionary/demo/de/abc", "", "", http.StatusBadRequest, "ERR000"},
		{"bad action", http.MethodGet, "/api/changes?action=delete", "", "", http.StatusBadRequest, "ERR000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.user, []byte(tt.body), "application/json")
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Code)
		})
	}
}

func TestUploadWithFallback(t *testing.T) {
	s := newTestServer(t, nil)

	body, ct := uploadBody(t, "terms.csv", "cat,Katze\ndog,Hund\n", "overwrite")
	rec := do(t, s, http.MethodPost, "/api/dictionary/demo/de/upload", "alice", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result core.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Applied)
	assert.True(t, result.Retried)
	assert.Equal(t, "csv", result.Format)

	rec = do(t, s, http.MethodGet, "/api/dictionary/demo/de/?letter=d", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"dog"`)
	assert.NotContains(t, rec.Body.String(), `"source":"cat"`)

	rec = do(t, s, http.MethodGet, "/metrics", "", nil, "")
	assert.Contains(t, rec.Body.String(), `glossary_uploads_total{format="csv",retried="true"} 1`)
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Upload.MaxFileSize = 16 })

	body, ct := uploadBody(t, "terms.csv", "source,target\ncat,Katze\ndog,Hund\n", "")
	rec := do(t, s, http.MethodPost, "/api/dictionary/demo/de/upload", "alice", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/dictionary/demo/de/upload", "", body, ct)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("method", "add"))
	require.NoError(t, mw.Close())
	rec = do(t, s, http.MethodPost, "/api/dictionary/demo/de/upload", "alice", buf.Bytes(), mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE004")
}

func TestGlossaryPage(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/dictionary/demo/de/", "alice",
		[]byte(`{"source":"<b>cat</b>","target":"Katze"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/projects/demo/de/dictionary?id=1", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "Glossary demo/de")
	assert.Contains(t, page, "&lt;b&gt;cat&lt;/b&gt;")
	assert.Contains(t, page, `class="selected"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	rec := do(t, s, http.MethodGet, "/api/formats", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/formats", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"po"`)

	rec = do(t, s, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code, "health is outside the API")
}

func TestRateLimiter(t *testing.T) {
	s := newTestServer(t, nil)
	rl := s.newRateLimiter(2, time.Minute)

	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(core.ErrTooManyUploads))
	assert.Equal(t, http.StatusUnsupportedMediaType, statusFor(core.ErrUnknownFormat))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(errors.New("load x: invalid po at line 3")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
