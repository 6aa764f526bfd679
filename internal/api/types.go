package api

import (
	"io"
	"time"
)

// FileSummary is the public view of one stored file.
type FileSummary struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	FileSize   uint64    `json:"file_size"`
	UploadDate time.Time `json:"upload_date"`
}

// FileDetail is the full metadata record of one stored file.
type FileDetail struct {
	FileSummary
	FileHash      string     `json:"file_hash"`
	Description   string     `json:"description,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	IsFavorite    bool       `json:"is_favorite"`
	DownloadCount int64      `json:"download_count"`
	LastAccessed  *time.Time `json:"last_accessed,omitempty"`
	UserID        *int64     `json:"user_id,omitempty"`
	IsPublic      bool       `json:"is_public"`
}

// UploadResponse is returned by a successful batch upload.
type UploadResponse struct {
	Message string        `json:"message"`
	Files   []FileSummary `json:"files"`
}

// StorageInfo reports aggregate storage usage.
type StorageInfo struct {
	TotalFiles     int64   `json:"total_files"`
	TotalSize      uint64  `json:"total_size"`
	StorageLimit   int64   `json:"storage_limit"`
	MaxFileSize    int64   `json:"max_file_size"`
	UsedPercentage float64 `json:"used_percentage"`
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status        string `json:"status"`
	SchemaVersion int    `json:"schema_version"`
	BlobBytes     int64  `json:"blob_bytes"`
}

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// UploadFile describes one local file to send in a batch upload.
type UploadFile struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// Download describes a streamed file body.
type Download struct {
	Filename    string
	ContentType string
	Size        int64
}
