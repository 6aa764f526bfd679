package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"strings"
	"time"

	"cloudsync/internal/api"
	"cloudsync/internal/blobstore"
	"cloudsync/internal/models"
	"cloudsync/internal/store"
)

const (
	DefaultStorageLimit      int64 = 1024 * 1024 * 1024
	DefaultMaxFileSize       int64 = 100 * 1024 * 1024
	fallbackContentMediaType       = "application/octet-stream"
)

// StoragePolicy bounds what the upload pipeline accepts.
type StoragePolicy struct {
	StorageLimit      int64
	MaxFileSize       int64
	EnforceQuota      bool
	AllowedMediaTypes []string
}

// DefaultStoragePolicy returns the stock 1 GiB / 100 MiB policy.
func DefaultStoragePolicy() StoragePolicy {
	return StoragePolicy{
		StorageLimit: DefaultStorageLimit,
		MaxFileSize:  DefaultMaxFileSize,
		EnforceQuota: true,
	}
}

// FileService orchestrates uploads, downloads, deletion, and accounting.
type FileService struct {
	files  store.FileStore
	blobs  blobstore.BlobStore
	logger *slog.Logger
	now    func() time.Time

	storageLimit      int64
	maxFileSize       int64
	enforceQuota      bool
	allowedMediaTypes map[string]struct{}
}

// UploadInput is one file part of an upload batch. Size is the declared
// length, or -1 when unknown.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// FileContent is an open download stream with its metadata.
type FileContent struct {
	File   models.File
	Reader io.ReadCloser
	// Size is the length of the opened blob, or -1 when unknown.
	Size int64
}

// NewFileService constructs a FileService.
func NewFileService(files store.FileStore, blobs blobstore.BlobStore, policy StoragePolicy, logger *slog.Logger) *FileService {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &FileService{files: files, blobs: blobs, logger: logger, now: time.Now}
	svc.ConfigurePolicy(policy)
	return svc
}

// ConfigurePolicy replaces size, quota, and media type limits.
func (s *FileService) ConfigurePolicy(policy StoragePolicy) {
	if s == nil {
		return
	}
	if policy.StorageLimit < 0 {
		policy.StorageLimit = DefaultStorageLimit
	}
	if policy.MaxFileSize <= 0 {
		policy.MaxFileSize = DefaultMaxFileSize
	}
	s.storageLimit = policy.StorageLimit
	s.maxFileSize = policy.MaxFileSize
	s.enforceQuota = policy.EnforceQuota

	normalized := map[string]struct{}{}
	for _, raw := range policy.AllowedMediaTypes {
		mediaType := normalizeMediaType(raw)
		if mediaType == "" {
			continue
		}
		normalized[mediaType] = struct{}{}
	}
	if len(normalized) == 0 {
		s.allowedMediaTypes = nil
	} else {
		s.allowedMediaTypes = normalized
	}
}

// Upload stores each input in order and returns the created records.
// The batch stops at the first failure; files committed before it stay.
func (s *FileService) Upload(ctx context.Context, inputs []UploadInput) ([]models.File, error) {
	if s == nil || s.files == nil || s.blobs == nil {
		return nil, internalError(fmt.Errorf("file service is not configured"))
	}
	if len(inputs) == 0 {
		return nil, badRequestCode(fmt.Errorf("at least one file is required"), ErrCodeMissingRequired)
	}

	created := make([]models.File, 0, len(inputs))
	for _, in := range inputs {
		file, err := s.uploadOne(ctx, in)
		recordOperation("upload", err)
		if err != nil {
			return created, withFilename(in.Filename, err)
		}
		uploadedBytesTotal.Add(float64(file.FileSize))
		s.logger.Info("file uploaded", "id", file.ID, "filename", file.Filename, "size", file.FileSize, "key", file.FilePath)
		created = append(created, file)
	}
	return created, nil
}

func (s *FileService) uploadOne(ctx context.Context, in UploadInput) (models.File, error) {
	var zero models.File
	if strings.TrimSpace(in.Filename) == "" {
		return zero, badRequestCode(fmt.Errorf("filename is required"), ErrCodeMissingRequired)
	}
	if in.Content == nil {
		return zero, badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired)
	}
	if in.Size > s.maxFileSize {
		return zero, fileTooLarge(s.maxFileSize)
	}

	fileType := strings.TrimSpace(in.ContentType)
	if fileType == "" {
		fileType = fallbackContentMediaType
	}
	if err := s.validateAllowedMediaType(fileType); err != nil {
		return zero, err
	}

	put, err := s.blobs.Put(ctx, in.Filename, io.LimitReader(in.Content, s.maxFileSize+1))
	if err != nil {
		return zero, blobFailure(fmt.Errorf("write blob: %w", err))
	}
	if put.SizeBytes > s.maxFileSize {
		return zero, s.discardBlob(ctx, put.Key, fileTooLarge(s.maxFileSize))
	}

	hash, size, err := s.blobs.Digest(ctx, put.Key)
	if err != nil {
		return zero, s.discardBlob(ctx, put.Key, blobFailure(fmt.Errorf("hash blob: %w", err)))
	}

	if s.enforceQuota && s.storageLimit > 0 {
		totals, err := s.files.StorageTotals(ctx)
		if err != nil {
			return zero, s.discardBlob(ctx, put.Key, storeFailure(err))
		}
		if totals.TotalBytes+uint64(size) > uint64(s.storageLimit) {
			return zero, s.discardBlob(ctx, put.Key, storageQuotaExceeded(s.storageLimit))
		}
	}

	file := models.File{
		Filename:   in.Filename,
		FilePath:   put.Key,
		FileType:   fileType,
		FileSize:   uint64(size),
		UploadDate: s.now().UTC(),
		FileHash:   hash,
		IsPublic:   true,
	}
	if err := s.files.CreateFile(ctx, &file); err != nil {
		if errors.Is(err, store.ErrDuplicateHash) {
			s.logDuplicate(ctx, file)
			return zero, s.discardBlob(ctx, put.Key, withDetail(duplicateContent(err), "file with identical content already exists"))
		}
		return zero, s.discardBlob(ctx, put.Key, storeFailure(fmt.Errorf("insert file record: %w", err)))
	}
	return file, nil
}

func (s *FileService) logDuplicate(ctx context.Context, file models.File) {
	existing, err := s.files.GetFileByHash(ctx, file.FileHash)
	if err != nil || existing == nil {
		s.logger.Info("duplicate upload rejected", "filename", file.Filename, "hash", file.FileHash)
		return
	}
	s.logger.Info("duplicate upload rejected", "filename", file.Filename, "hash", file.FileHash,
		"existing_id", existing.ID, "existing_filename", existing.Filename)
}

// discardBlob removes a blob written by a failed upload and returns cause.
// Removal failures are logged and never replace cause.
func (s *FileService) discardBlob(ctx context.Context, key string, cause error) error {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("discard blob after failed upload", "key", key, "error", err, "cause", cause)
	}
	return cause
}

// ListFiles returns every record in upload order.
func (s *FileService) ListFiles(ctx context.Context) ([]models.File, error) {
	files, err := s.files.ListFiles(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	if files == nil {
		files = []models.File{}
	}
	return files, nil
}

// GetFile returns one record by id.
func (s *FileService) GetFile(ctx context.Context, id int64) (models.File, error) {
	file, err := s.files.GetFile(ctx, id)
	if err != nil {
		return models.File{}, storeFailure(err)
	}
	if file == nil {
		return models.File{}, fileNotFound()
	}
	return *file, nil
}

// OpenForDownload opens the blob behind one record. Callers close Reader.
func (s *FileService) OpenForDownload(ctx context.Context, id int64) (*FileContent, error) {
	file, err := s.GetFile(ctx, id)
	if err != nil {
		recordOperation("download", err)
		return nil, err
	}

	rc, err := s.blobs.Open(ctx, file.FilePath)
	if err != nil {
		recordOperation("download", err)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, blobstore.ErrInvalidKey) {
			s.logger.Warn("file record without blob", "id", file.ID, "key", file.FilePath)
			return nil, blobMissing()
		}
		return nil, blobFailure(err)
	}
	recordOperation("download", nil)

	if strings.TrimSpace(file.FileType) == "" {
		file.FileType = fallbackContentMediaType
	}
	return &FileContent{File: file, Reader: rc, Size: openedSize(rc)}, nil
}

func openedSize(rc io.ReadCloser) int64 {
	statter, ok := rc.(interface{ Stat() (fs.FileInfo, error) })
	if !ok {
		return -1
	}
	info, err := statter.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return -1
	}
	return info.Size()
}

// DeleteFile removes the blob, then the record. The record is removed even
// when blob removal fails; both failures are reported together.
func (s *FileService) DeleteFile(ctx context.Context, id int64) (err error) {
	defer func() { recordOperation("delete", err) }()

	file, err := s.GetFile(ctx, id)
	if err != nil {
		return err
	}

	var errs []error
	if err := s.blobs.Delete(ctx, file.FilePath); err != nil {
		s.logger.Error("remove blob", "id", id, "key", file.FilePath, "error", err)
		errs = append(errs, fmt.Errorf("remove blob %s: %w", file.FilePath, err))
	}

	deleted, err := s.files.DeleteFile(ctx, id)
	if err != nil {
		s.logger.Error("delete file record", "id", id, "error", err)
		errs = append(errs, fmt.Errorf("delete file record %d: %w", id, err))
	}
	if len(errs) > 0 {
		joined := errors.Join(errs...)
		return withDetail(storeFailure(joined), "failed to delete file: "+strings.ReplaceAll(joined.Error(), "\n", "; "))
	}
	if !deleted {
		return fileNotFound()
	}

	s.logger.Info("file deleted", "id", id, "filename", file.Filename, "key", file.FilePath)
	return nil
}

// StorageInfo recomputes aggregate usage against the configured limits.
func (s *FileService) StorageInfo(ctx context.Context) (api.StorageInfo, error) {
	totals, err := s.files.StorageTotals(ctx)
	if err != nil {
		return api.StorageInfo{}, storeFailure(err)
	}
	filesTotal.Set(float64(totals.TotalFiles))
	storageBytes.Set(float64(totals.TotalBytes))

	return api.StorageInfo{
		TotalFiles:     totals.TotalFiles,
		TotalSize:      totals.TotalBytes,
		StorageLimit:   s.storageLimit,
		MaxFileSize:    s.maxFileSize,
		UsedPercentage: usedPercentage(totals.TotalBytes, s.storageLimit),
	}, nil
}

func usedPercentage(total uint64, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(total) / float64(limit) * 100
}

func (s *FileService) validateAllowedMediaType(fileType string) error {
	if len(s.allowedMediaTypes) == 0 {
		return nil
	}
	mediaType := normalizeMediaType(fileType)
	if _, ok := s.allowedMediaTypes[mediaType]; ok {
		return nil
	}
	return unsupportedMediaType(mediaType)
}

func normalizeMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return strings.ToLower(strings.TrimSpace(parsed))
}

func withFilename(filename string, err error) error {
	if strings.TrimSpace(filename) == "" {
		return err
	}
	var apiErr apiError
	if !errors.As(err, &apiErr) {
		return withDetail(internalError(fmt.Errorf("upload %s: %w", filename, err)), "upload of "+filename+" failed")
	}
	if apiErr.status >= 500 {
		detail := "upload of " + filename + " failed"
		if cause := publicDetail(apiErr); cause != internalErrorMessage {
			detail += ": " + cause
		}
		apiErr.detail = detail
	}
	apiErr.err = fmt.Errorf("%s: %w", filename, apiErr.err)
	return apiErr
}
