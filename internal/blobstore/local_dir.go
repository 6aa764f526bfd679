package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	tmpDirName      = "tmp"
	digestChunkSize = 4096
	maxExtLength    = 16
)

// ErrInvalidKey is returned for keys that do not name a single blob file.
var ErrInvalidKey = errors.New("invalid blob key")

// LocalDir stores blobs as flat files named by a random UUID plus the
// original file extension.
type LocalDir struct {
	root string
}

// NewLocalDir creates a blob directory rooted at root.
func NewLocalDir(root string) (*LocalDir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, tmpDirName), 0o755); err != nil {
		return nil, err
	}
	return &LocalDir{root: abs}, nil
}

// Root returns the absolute blob directory.
func (d *LocalDir) Root() string {
	if d == nil {
		return ""
	}
	return d.root
}

// Put streams r into a temp file and renames it to a fresh key once fully
// written, so a blob is only visible with its final content.
func (d *LocalDir) Put(ctx context.Context, filename string, r io.Reader) (PutResult, error) {
	var zero PutResult
	if d == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(d.root, tmpDirName), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}

	key := newKey(filename)
	if err := os.Rename(tmpPath, filepath.Join(d.root, key)); err != nil {
		_ = os.Remove(tmpPath)
		return zero, err
	}
	return PutResult{Key: key, SizeBytes: n}, nil
}

// Digest reads a stored blob back in fixed-size chunks and returns its
// SHA-256 hex digest and byte length.
func (d *LocalDir) Digest(ctx context.Context, key string) (string, int64, error) {
	rc, err := d.Open(ctx, key)
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()

	h := sha256.New()
	buf := make([]byte, digestChunkSize)
	n, err := io.CopyBuffer(h, contextReader{ctx: ctx, r: rc}, buf)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Open returns a reader for blob content. Missing blobs yield os.ErrNotExist.
func (d *LocalDir) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if d == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Exists reports whether a blob is present.
func (d *LocalDir) Exists(ctx context.Context, key string) (bool, error) {
	if d == nil {
		return false, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := d.pathFromKey(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Delete removes a blob. Missing files are ignored.
func (d *LocalDir) Delete(ctx context.Context, key string) error {
	if d == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Usage sums the size of all committed blobs on disk.
func (d *LocalDir) Usage(ctx context.Context) (int64, error) {
	if d == nil {
		return 0, fmt.Errorf("blob store is not configured")
	}
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

func newKey(filename string) string {
	return uuid.New().String() + extension(filename)
}

// extension keeps the original suffix as a content-type hint. Oddly shaped
// suffixes are dropped rather than sanitized.
func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) < 2 || len(ext) > maxExtLength {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func (d *LocalDir) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || key == "." || key == ".." || key == tmpDirName {
		return "", ErrInvalidKey
	}
	if strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return "", ErrInvalidKey
	}
	return filepath.Join(d.root, key), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
