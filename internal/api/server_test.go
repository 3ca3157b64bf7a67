package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/lessongest/internal/config"
	"github.com/dgallion1/lessongest/internal/contentstore"
	"github.com/dgallion1/lessongest/internal/pipeline"
)

const testKey = "test-key"

func newTestServer(t *testing.T, store *contentstore.Client) *Server {
	t.Helper()
	cfg := config.Config{
		Server: config.ServerConfig{APIKey: testKey, MaxUploadBytes: 1 << 20},
		Pipeline: config.PipelineConfig{
			WorkerCount:   1,
			MaxQueueSize:  4,
			JobTTL:        time.Hour,
			TreeCacheSize: 8,
		},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch, err := pipeline.NewOrchestrator(cfg, store, log)
	require.NoError(t, err)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, store, log, cfg)
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, files map[string][2]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization", decode(t, rec)["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBuild(t *testing.T) {
	s := newTestServer(t, nil)
	body, ct := multipartBody(t, map[string][2]string{
		"file": {"lesson.md", "# Lesson\n\n## Greetings\n\nHello there.\n"},
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/build", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Fields map[string]string `json:"fields"`
		Nodes  []struct {
			Kind  string `json:"kind"`
			Level int    `json:"level"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Lesson", res.Fields["title"])
	require.Len(t, res.Nodes, 2)
	assert.Equal(t, "heading", res.Nodes[0].Kind)
	assert.Equal(t, 3, res.Nodes[0].Level)
	assert.Equal(t, "paragraph", res.Nodes[1].Kind)
}

func TestBuild_RejectsUnsupportedType(t *testing.T) {
	s := newTestServer(t, nil)
	body, ct := multipartBody(t, map[string][2]string{"file": {"deck.pptx", "x"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/build", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "unsupported file type")
}

func TestMerge(t *testing.T) {
	s := newTestServer(t, nil)
	payload := `{
		"primary": [{"kind":"paragraph","inlines":[{"text":"Hello","bold":true}]}],
		"secondary": [{"kind":"paragraph","inlines":[{"text":"Hola"}]}]
	}`
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/merge", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Nodes []struct {
			Inlines []struct {
				Text string `json:"text"`
			} `json:"inlines"`
		} `json:"nodes"`
		Stats struct {
			Matched map[string]int `json:"matched"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Nodes, 1)
	assert.Equal(t, "Hola", res.Nodes[0].Inlines[0].Text)
	assert.Equal(t, 1, res.Stats.Matched["positional"])
}

func TestMerge_InvalidTree(t *testing.T) {
	s := newTestServer(t, nil)
	payload := `{"primary":[{"kind":"table","rows":2,"cols":1,"cells":[["a"]]}],"secondary":[]}`
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/merge", strings.NewReader(payload)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/api/merge", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolve(t *testing.T) {
	s := newTestServer(t, nil)
	payload := `{
		"lang": "es",
		"bundle": {
			"id": "lesson-7",
			"primary": "en",
			"secondary": "es",
			"scalars": {"title": {"en": "Greetings", "es": "Saludos"}},
			"content": {"body": {
				"primary": [{"kind":"image","image_key":"map"}],
				"secondary": []
			}},
			"images": {"lesson": {"map": "https://cdn.example.com/map.png"}}
		}
	}`
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/resolve", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Lang    string            `json:"lang"`
		Fields  map[string]string `json:"fields"`
		Content map[string][]struct {
			ImageURL string `json:"image_url"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "es", res.Lang)
	assert.Equal(t, "Saludos", res.Fields["title"])
	require.Len(t, res.Content["body"], 1)
	assert.Equal(t, "https://cdn.example.com/map.png", res.Content["body"][0].ImageURL)
}

func TestResolve_NoPrimary(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/resolve", strings.NewReader(`{"bundle":{"id":"x"},"lang":"en"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConvertLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	body, ct := multipartBody(t, map[string][2]string{
		"primary":   {"lesson.md", "## Greetings\n\nHello there.\n"},
		"secondary": {"leccion.md", "## Saludos\n\nHola.\n"},
	}, map[string]string{"lesson_id": "lesson-3", "lang": "es"})
	req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, s, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode(t, rec)
	jobID, _ := accepted["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "lesson-3", accepted["lesson_id"])

	require.Eventually(t, func() bool {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/convert/"+jobID+"/status", nil))
		return rec.Code == http.StatusOK && decode(t, rec)["status"] == string(pipeline.StatusCompleted)
	}, 5*time.Second, 10*time.Millisecond)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/convert/"+jobID+"/result", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Nodes, 2)
	assert.Equal(t, "Saludos", res.Nodes[0].PlainText())
	assert.Equal(t, "Hola.", res.Nodes[1].PlainText())
	assert.Equal(t, "es", res.Lang)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.EqualValues(t, 1, stats["count"])
	assert.EqualValues(t, 0, stats["failed"])
	matched, _ := stats["matched"].(map[string]any)
	assert.EqualValues(t, 2, matched["positional"])
}

func TestConvert_MissingPrimary(t *testing.T) {
	s := newTestServer(t, nil)
	body, ct := multipartBody(t, map[string][2]string{"secondary": {"leccion.md", "Hola."}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "primary is required", decode(t, rec)["error"])
}

func TestConvert_UnknownJob(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/convert/nope/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/convert/nope/result", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLessons_NoStore(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/lessons/lesson-1/es", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLessons_GetAndDelete(t *testing.T) {
	docs := map[string]string{"/kv/lessons/lesson-1/es": `{"lesson_id":"lesson-1"}`}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			v, ok := docs[r.URL.Path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(`{"key_path":"` + r.URL.Path + `","value":` + v + `}`))
		case http.MethodDelete:
			delete(docs, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	s := newTestServer(t, contentstore.NewClient(srv.URL, "store-key", "lessons"))

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/lessons/lesson-1/es", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"lesson_id":"lesson-1"}`, rec.Body.String())

	rec = do(t, s, httptest.NewRequest(http.MethodDelete, "/api/lessons/lesson-1/es", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/lessons/lesson-1/es", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"lesson.docx", "lesson.docx"},
		{"../../etc/passwd.txt", "passwd.txt"},
		{`C:\docs\unit..4.md`, "unit_4.md"},
		{"", "unnamed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
