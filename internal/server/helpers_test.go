package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"cloudsync/internal/api"
	"cloudsync/internal/blobstore"
	"cloudsync/internal/store"
)

type testEnv struct {
	server *Server
	store  *store.Store
	blobs  *blobstore.LocalDir
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, policy StoragePolicy) *testEnv {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "cloudsync.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	blobs, err := blobstore.NewLocalDir(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("open blob dir: %v", err)
	}

	srv := New("127.0.0.1:0", st, blobs, discardLogger(), Options{
		Policy: policy,
		CORS:   CORSPolicy{AllowedOrigins: []string{"http://localhost:3000"}, AllowCredentials: true},
	})
	return &testEnv{server: srv, store: st, blobs: blobs}
}

type testPart struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func filePart(filename, contentType, content string) testPart {
	return testPart{field: "files", filename: filename, contentType: contentType, content: []byte(content)}
}

func multipartBody(t *testing.T, parts ...testPart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		disposition := `form-data; name="` + p.field + `"`
		if p.filename != "" {
			disposition += `; filename="` + p.filename + `"`
		}
		header.Set("Content-Disposition", disposition)
		if p.contentType != "" {
			header.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := w.Write(p.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return body, mw.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T, parts ...testPart) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	return e.do(t, req)
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) delete(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodDelete, path, nil))
}

func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.blobs.Root())
	if err != nil {
		t.Fatalf("read blob dir: %v", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			count++
		}
	}
	return count
}

func (e *testEnv) recordCount(t *testing.T) int {
	t.Helper()
	files, err := e.store.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	return len(files)
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string, errCode int) api.ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	errResp := decodeBody[api.ErrorResponse](t, w)
	if errResp.Code != code {
		t.Fatalf("expected code %q, got %q", code, errResp.Code)
	}
	if errResp.ErrorCode != errCode {
		t.Fatalf("expected error_code %d, got %d", errCode, errResp.ErrorCode)
	}
	if errResp.Detail == "" || errResp.Detail != errResp.Error {
		t.Fatalf("expected detail to mirror error, got %+v", errResp)
	}
	return errResp
}

func newJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
