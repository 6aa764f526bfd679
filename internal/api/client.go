package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout     = 10 * time.Second
	defaultTransferTimeout = 30 * time.Minute
	httpTimeoutEnvKey      = "CLOUDSYNC_HTTP_TIMEOUT"
	transferTimeoutEnvKey  = "CLOUDSYNC_TRANSFER_TIMEOUT"

	uploadFieldName = "files"
)

// Client is a simple HTTP client for the cloudsync API.
type Client struct {
	baseURL  string
	http     *http.Client
	transfer *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeoutFromEnv(httpTimeoutEnvKey, defaultHTTPTimeout)},
		transfer: &http.Client{Timeout: timeoutFromEnv(transferTimeoutEnvKey, defaultTransferTimeout)},
	}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// Health returns the server health report.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &resp)
	return resp, err
}

// ListFiles returns every stored file in upload order.
func (c *Client) ListFiles(ctx context.Context) ([]FileSummary, error) {
	var resp []FileSummary
	err := c.do(ctx, http.MethodGet, "/api/files", nil, nil, &resp)
	return resp, err
}

// GetFile returns the metadata of one file.
func (c *Client) GetFile(ctx context.Context, id int64) (FileDetail, error) {
	var resp FileDetail
	err := c.do(ctx, http.MethodGet, "/api/files/"+fileIDPath(id), nil, nil, &resp)
	return resp, err
}

// DeleteFile removes one file and its stored content.
func (c *Client) DeleteFile(ctx context.Context, id int64) (MessageResponse, error) {
	var resp MessageResponse
	err := c.do(ctx, http.MethodDelete, "/api/files/"+fileIDPath(id), nil, nil, &resp)
	return resp, err
}

// StorageInfo reports aggregate usage against the server limits.
func (c *Client) StorageInfo(ctx context.Context) (StorageInfo, error) {
	var resp StorageInfo
	err := c.do(ctx, http.MethodGet, "/api/storage", nil, nil, &resp)
	return resp, err
}

// Upload streams files as one multipart request.
func (c *Client) Upload(ctx context.Context, files []UploadFile) (UploadResponse, error) {
	var resp UploadResponse
	if len(files) == 0 {
		return resp, fmt.Errorf("no files to upload")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadParts(mw, files))
	}()
	defer pr.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", pr)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	httpResp, err := c.transfer.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

// Download streams file content into w.
func (c *Client) Download(ctx context.Context, id int64, w io.Writer) (Download, error) {
	var meta Download
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/download/"+fileIDPath(id), nil)
	if err != nil {
		return meta, err
	}
	resp, err := c.transfer.Do(req)
	if err != nil {
		return meta, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return meta, decodeError(resp)
	}

	meta.ContentType = resp.Header.Get("Content-Type")
	meta.Size = resp.ContentLength
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			meta.Filename = params["filename"]
		}
	}

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return meta, err
	}
	meta.Size = written
	return meta, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeUploadParts(mw *multipart.Writer, files []UploadFile) error {
	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, uploadFieldName, quoteEscaper.Replace(file.Filename)))
		contentType := strings.TrimSpace(file.ContentType)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := mw.CreatePart(header)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return fmt.Errorf("read %s: %w", file.Filename, err)
		}
	}
	return mw.Close()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Detail
		if apiErr.Message == "" {
			apiErr.Message = errResp.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = "api error: " + resp.Status
	}
	return apiErr
}

func fileIDPath(id int64) string {
	return strconv.FormatInt(id, 10)
}

func timeoutFromEnv(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return fallback
}
