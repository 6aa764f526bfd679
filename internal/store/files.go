package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloudsync/internal/models"
)

const fileColumns = "id, filename, file_path, file_type, file_size, upload_date, file_hash, description, tags, is_favorite, download_count, last_accessed, user_id, is_public"

// ErrDuplicateHash reports an insert rejected by the files.file_hash constraint.
var ErrDuplicateHash = errors.New("file with identical content already exists")

// CreateFile inserts one file row and sets file.ID.
func (s *Store) CreateFile(ctx context.Context, file *models.File) error {
	if file == nil {
		return fmt.Errorf("file is required")
	}
	file.FilePath = strings.TrimSpace(file.FilePath)
	file.FileHash = strings.ToLower(strings.TrimSpace(file.FileHash))
	if file.FilePath == "" {
		return fmt.Errorf("file_path is required")
	}
	if file.FileHash == "" {
		return fmt.Errorf("file_hash is required")
	}
	if file.UploadDate.IsZero() {
		file.UploadDate = time.Now().UTC()
	}

	tagsJSON, err := tagsToJSON(file.Tags)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO files (
			filename, file_path, file_type, file_size, upload_date, file_hash,
			description, tags, is_favorite, download_count, last_accessed, user_id, is_public
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		file.Filename,
		file.FilePath,
		file.FileType,
		int64(file.FileSize),
		formatTime(file.UploadDate),
		file.FileHash,
		nullIfEmpty(strings.TrimSpace(file.Description)),
		tagsJSON,
		boolToInt(file.IsFavorite),
		file.DownloadCount,
		nullTime(file.LastAccessed),
		file.UserID,
		boolToInt(file.IsPublic),
	)
	if err != nil {
		if isUniqueHashViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateHash, err)
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	file.ID = id
	return nil
}

// GetFile returns one file by id, or nil when absent.
func (s *Store) GetFile(ctx context.Context, id int64) (*models.File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	return scanFile(row)
}

// GetFileByHash returns one file by content digest, or nil when absent.
func (s *Store) GetFileByHash(ctx context.Context, hash string) (*models.File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE file_hash = ?`, strings.ToLower(strings.TrimSpace(hash)))
	return scanFile(row)
}

// ListFiles lists all files ordered by upload_date then id.
func (s *Store) ListFiles(ctx context.Context) ([]models.File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileColumns+` FROM files ORDER BY upload_date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		if file == nil {
			continue
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

// DeleteFile deletes one file row. It reports false when no row matched.
func (s *Store) DeleteFile(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// StorageTotals counts files and sums their sizes in one query.
func (s *Store) StorageTotals(ctx context.Context) (models.StorageTotals, error) {
	var totals models.StorageTotals
	var sum int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM files").Scan(&totals.TotalFiles, &sum)
	if err != nil {
		return models.StorageTotals{}, err
	}
	if sum > 0 {
		totals.TotalBytes = uint64(sum)
	}
	return totals, nil
}

func scanFile(scanner interface {
	Scan(dest ...any) error
}) (*models.File, error) {
	file := models.File{}

	var filename, filePath, fileType, fileHash sql.NullString
	var description, tags, uploadDate, lastAccessed sql.NullString
	var fileSize, isFavorite, downloadCount, userID, isPublic sql.NullInt64

	err := scanner.Scan(
		&file.ID,
		&filename,
		&filePath,
		&fileType,
		&fileSize,
		&uploadDate,
		&fileHash,
		&description,
		&tags,
		&isFavorite,
		&downloadCount,
		&lastAccessed,
		&userID,
		&isPublic,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	file.Filename = filename.String
	file.FilePath = filePath.String
	file.FileType = fileType.String
	file.FileHash = fileHash.String
	file.Description = description.String
	if fileSize.Int64 > 0 {
		file.FileSize = uint64(fileSize.Int64)
	}
	file.IsFavorite = isFavorite.Valid && isFavorite.Int64 != 0
	file.DownloadCount = downloadCount.Int64
	file.IsPublic = !isPublic.Valid || isPublic.Int64 != 0
	if userID.Valid {
		id := userID.Int64
		file.UserID = &id
	}

	if uploadDate.Valid {
		parsed, err := parseTime(uploadDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse upload_date: %w", err)
		}
		file.UploadDate = parsed
	}
	if lastAccessed.Valid && lastAccessed.String != "" {
		parsed, err := parseTime(lastAccessed.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_accessed: %w", err)
		}
		file.LastAccessed = &parsed
	}

	if tags.Valid && tags.String != "" {
		parsed, err := tagsFromJSON(tags.String)
		if err != nil {
			return nil, err
		}
		file.Tags = parsed
	}

	return &file, nil
}

func tagsToJSON(tags []string) (any, error) {
	normalized := normalizeTags(tags)
	if len(normalized) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

// tagsFromJSON also accepts a plain comma separated string.
func tagsFromJSON(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") {
		return normalizeTags(strings.Split(raw, ",")), nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	return normalizeTags(tags), nil
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func isUniqueHashViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: files.file_hash")
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return formatTime(*value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// storedTimeLayout is fixed width so that text order matches time order.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// legacyTimeLayout matches timestamps written by earlier deployments that
// stored naive local datetimes.
const legacyTimeLayout = "2006-01-02 15:04:05.999999"

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyTimeLayout, value, time.Local)
}
