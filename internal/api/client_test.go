package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPTimeoutFromEnv(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "")
		if got := timeoutFromEnv(httpTimeoutEnvKey, defaultHTTPTimeout); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})

	t.Run("duration format", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "45s")
		if got := timeoutFromEnv(httpTimeoutEnvKey, defaultHTTPTimeout); got != 45*time.Second {
			t.Fatalf("expected 45s timeout, got %v", got)
		}
	})

	t.Run("integer seconds", func(t *testing.T) {
		t.Setenv(transferTimeoutEnvKey, "25")
		if got := timeoutFromEnv(transferTimeoutEnvKey, defaultTransferTimeout); got != 25*time.Second {
			t.Fatalf("expected 25s timeout, got %v", got)
		}
	})

	t.Run("invalid falls back", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "invalid")
		if got := timeoutFromEnv(httpTimeoutEnvKey, defaultHTTPTimeout); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})
}

func TestUploadSendsMultipartFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		headers := r.MultipartForm.File["files"]
		if len(headers) != 2 {
			t.Errorf("expected 2 file parts, got %d", len(headers))
			return
		}
		if headers[0].Filename != `a "quoted".txt` || headers[0].Header.Get("Content-Type") != "text/plain" {
			t.Errorf("unexpected first part: %q %q", headers[0].Filename, headers[0].Header.Get("Content-Type"))
		}
		if headers[1].Header.Get("Content-Type") != "application/octet-stream" {
			t.Errorf("expected octet-stream fallback, got %q", headers[1].Header.Get("Content-Type"))
		}
		_ = json.NewEncoder(w).Encode(UploadResponse{
			Message: "Successfully uploaded 2 files",
			Files: []FileSummary{
				{ID: 1, Filename: headers[0].Filename, FileType: "text/plain", FileSize: uint64(headers[0].Size)},
				{ID: 2, Filename: headers[1].Filename, FileType: "application/octet-stream", FileSize: uint64(headers[1].Size)},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/")
	resp, err := client.Upload(context.Background(), []UploadFile{
		{Filename: `a "quoted".txt`, ContentType: "text/plain", Content: strings.NewReader("hello")},
		{Filename: "b.bin", Content: bytes.NewReader([]byte{0, 1, 2})},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(resp.Files) != 2 || resp.Files[0].FileSize != 5 || resp.Files[1].FileSize != 3 {
		t.Fatalf("unexpected upload response: %+v", resp)
	}
}

func TestUploadRequiresFiles(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	if _, err := client.Upload(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty upload")
	}
}

func TestDownloadReadsDispositionFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/download/7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `attachment; filename="photo.png"`)
		_, _ = io.WriteString(w, "png-bytes")
	}))
	defer srv.Close()

	var buf bytes.Buffer
	meta, err := NewClient(srv.URL).Download(context.Background(), 7, &buf)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if meta.Filename != "photo.png" || meta.ContentType != "image/png" || meta.Size != 9 {
		t.Fatalf("unexpected download meta: %+v", meta)
	}
	if buf.String() != "png-bytes" {
		t.Fatalf("unexpected body %q", buf.String())
	}
}

func TestDecodeErrorPrefersDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error:     "File not found",
			Detail:    "File not found",
			Code:      "file_not_found",
			ErrorCode: 2001,
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetFile(context.Background(), 99)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T (%v)", err, err)
	}
	if !apiErr.IsNotFound() || apiErr.Code != "file_not_found" || apiErr.ErrorCode != 2001 {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if apiErr.Error() != "file_not_found: File not found" {
		t.Fatalf("unexpected error string %q", apiErr.Error())
	}
}

func TestDecodeErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).StorageInfo(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Status != http.StatusBadGateway || !strings.HasPrefix(apiErr.Message, "api error: 502") {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		err  *APIError
		want string
	}{
		{&APIError{Status: 404, Code: "file_not_found", Message: "File not found"}, "file_not_found: File not found"},
		{&APIError{Status: 502, Message: "bad gateway"}, "bad gateway"},
		{&APIError{Status: 503}, "api error: 503"},
		{&APIError{}, "api error"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Fatalf("Error() = %q, want %q", got, tt.want)
		}
	}

	wrapped := fmt.Errorf("delete 3: %w", &APIError{Status: 404, Code: "file_not_found"})
	if !HasCode(wrapped, "file_not_found") || HasCode(wrapped, "blob_missing") {
		t.Fatal("expected HasCode to see through wrapping")
	}
}
