package blobstore

import (
	"context"
	"io"
)

// PutResult describes one persisted blob payload.
type PutResult struct {
	Key       string
	SizeBytes int64
}

// BlobStore is the byte-storage abstraction used by FileService.
type BlobStore interface {
	Put(ctx context.Context, filename string, r io.Reader) (PutResult, error)
	Digest(ctx context.Context, key string) (string, int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
