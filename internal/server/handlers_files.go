package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"cloudsync/internal/api"
	"cloudsync/internal/models"
)

const (
	uploadFieldName     = "files"
	uploadMessage       = "Files uploaded successfully"
	deleteMessage       = "File deleted successfully"
	maxIgnoredPartBytes = 1 << 20 // 1 MiB
)

// handleUpload streams each multipart "files" part straight into the
// upload pipeline, one part at a time.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}

	created := make([]models.File, 0)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
			return
		}

		if part.FormName() != uploadFieldName {
			_, _ = io.CopyN(io.Discard, part, maxIgnoredPartBytes)
			part.Close()
			continue
		}

		files, err := s.files.Upload(r.Context(), []UploadInput{partInput(part)})
		part.Close()
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		created = append(created, files...)
	}

	if len(created) == 0 {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("at least one file is required"), ErrCodeMissingRequired))
		return
	}

	s.writeJSON(w, http.StatusOK, api.UploadResponse{Message: uploadMessage, Files: summaries(created)})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.files.ListFiles(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summaries(files))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathFileIDOrBadRequest(w, r)
	if !ok {
		return
	}
	file, err := s.files.GetFile(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail(file))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathFileIDOrBadRequest(w, r)
	if !ok {
		return
	}
	content, err := s.files.OpenForDownload(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()

	w.Header().Set("Content-Type", content.File.FileType)
	w.Header().Set("Content-Disposition", contentDisposition(content.File.Filename))
	if content.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content.Reader); err != nil {
		s.log().Warn("stream download", "id", id, "error", err)
	}
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathFileIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if err := s.files.DeleteFile(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: deleteMessage})
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	info, err := s.files.StorageInfo(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func partInput(part *multipart.Part) UploadInput {
	size := int64(-1)
	if raw := strings.TrimSpace(part.Header.Get("Content-Length")); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed >= 0 {
			size = parsed
		}
	}
	return UploadInput{
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Size:        size,
		Content:     part,
	}
}

func summary(file models.File) api.FileSummary {
	return api.FileSummary{
		ID:         file.ID,
		Filename:   file.Filename,
		FileType:   file.FileType,
		FileSize:   file.FileSize,
		UploadDate: file.UploadDate,
	}
}

func summaries(files []models.File) []api.FileSummary {
	out := make([]api.FileSummary, 0, len(files))
	for _, file := range files {
		out = append(out, summary(file))
	}
	return out
}

func detail(file models.File) api.FileDetail {
	return api.FileDetail{
		FileSummary:   summary(file),
		FileHash:      file.FileHash,
		Description:   file.Description,
		Tags:          file.Tags,
		IsFavorite:    file.IsFavorite,
		DownloadCount: file.DownloadCount,
		LastAccessed:  file.LastAccessed,
		UserID:        file.UserID,
		IsPublic:      file.IsPublic,
	}
}

// contentDisposition builds an attachment header. Non-ASCII names are
// emitted in RFC 2231 form.
func contentDisposition(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "attachment"
	}
	if value := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); value != "" {
		return value
	}
	return "attachment"
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		return badRequestCode(fmt.Errorf("multipart/form-data body with a %q field is required", uploadFieldName), ErrCodeInvalidMultipart)
	}
	return badRequestCode(err, ErrCodeInvalidMultipart)
}
