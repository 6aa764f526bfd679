package models

import "time"

// File is the metadata row describing one stored blob.
type File struct {
	ID            int64      `json:"id"`
	Filename      string     `json:"filename"`
	FilePath      string     `json:"file_path"`
	FileType      string     `json:"file_type"`
	FileSize      uint64     `json:"file_size"`
	UploadDate    time.Time  `json:"upload_date"`
	FileHash      string     `json:"file_hash"`
	Description   string     `json:"description,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	IsFavorite    bool       `json:"is_favorite"`
	DownloadCount int64      `json:"download_count"`
	LastAccessed  *time.Time `json:"last_accessed,omitempty"`
	UserID        *int64     `json:"user_id,omitempty"`
	IsPublic      bool       `json:"is_public"`
}

// StorageTotals aggregates file metadata across all records.
type StorageTotals struct {
	TotalFiles int64
	TotalBytes uint64
}
