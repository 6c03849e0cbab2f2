package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/engine"
	"github.com/querydesk/querydesk/internal/executor"
	"github.com/querydesk/querydesk/internal/schema"
	"github.com/querydesk/querydesk/internal/storage"
)

func TestResetEndpointClearsSession(t *testing.T) {
	fake := &fakeEngineService{}
	h := newTestHandler(t, fake)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions/s1/reset", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(fake.resets) != 1 || fake.resets[0] != "s1" {
		t.Fatalf("resets = %v", fake.resets)
	}
}

func TestSuggestionsEndpointReturnsEmptyList(t *testing.T) {
	h := newTestHandler(t, &fakeEngineService{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/suggestions", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"suggestions":[]`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestExportEndpointReturnsCSV(t *testing.T) {
	fake := &fakeEngineService{
		stored: engine.StoredResult{
			SQL: "SELECT name FROM employees",
			Result: executor.Result{
				Columns: []string{"name"},
				Rows:    [][]any{{"Ada"}},
			},
			GeneratedAt: time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC),
		},
	}
	h := newTestHandler(t, fake)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/export?format=csv", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("content type = %q", got)
	}
	if !strings.HasPrefix(rr.Body.String(), "name\n") {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestExportEndpointRejectsUnknownFormat(t *testing.T) {
	h := newTestHandler(t, &fakeEngineService{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/export?format=xlsx", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestExportEndpointWithoutResultReturns404(t *testing.T) {
	h := newTestHandler(t, &fakeEngineService{storedErr: engine.ErrNoResult})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/export?format=json", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestExportEndpointArchivesWhenStoreConfigured(t *testing.T) {
	cfg, err := config.Load("querydesk-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	fake := &fakeEngineService{
		stored: engine.StoredResult{
			SQL:         "SELECT 1",
			Result:      executor.Result{Columns: []string{"c"}, Rows: [][]any{{int64(1)}}},
			GeneratedAt: time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC),
		},
	}
	archive := &fakeArchive{}
	h := NewHandler(cfg, Dependencies{Engine: fake, Archive: archive})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/s7/export?format=json", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if archive.lastKey != "exports/s7/20250601T123045Z.json" {
		t.Fatalf("archive key = %q", archive.lastKey)
	}
}

func TestSchemaEndpointListsTables(t *testing.T) {
	cfg, err := config.Load("querydesk-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	snapshot := schema.NewSnapshot([]schema.Table{
		{Name: "employees", Columns: []schema.Column{{Name: "id", Type: "integer"}}},
	})
	h := NewHandler(cfg, Dependencies{Schema: &fakeSchemaReader{snapshot: snapshot}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Tables []schemaTable `json:"tables"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(body.Tables) != 1 || body.Tables[0].Name != "employees" {
		t.Fatalf("tables = %+v", body.Tables)
	}
}

type fakeArchive struct {
	lastKey         string
	lastContentType string
	lastBody        []byte
	err             error
}

func (f *fakeArchive) Put(_ context.Context, key string, body io.Reader, _ int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	if f.err != nil {
		return storage.ObjectInfo{}, f.err
	}
	data, _ := io.ReadAll(body)
	f.lastKey = key
	f.lastContentType = opts.ContentType
	f.lastBody = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeArchive) Get(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.lastBody)), nil
}
