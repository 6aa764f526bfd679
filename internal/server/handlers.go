package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cloudsync/internal/api"
)

const internalErrorMessage = "internal error"

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	code := errorCode(status, err)
	numericCode := errorNumericCode(status, err)
	message := err.Error()

	fields := []any{"status", status, "code", code, "error_code", numericCode, "error", err}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}

	switch {
	case status >= 500:
		s.log().Error("request error", fields...)
		message = publicDetail(err)
	case status >= 400 && shouldWarnClientError(status):
		s.log().Warn("request rejected", fields...)
	case status >= 400:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, api.ErrorResponse{Error: message, Detail: message, Code: code, ErrorCode: numericCode})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

// apiError carries the HTTP mapping of a service failure. detail, when set,
// is the message exposed for 5xx responses in place of the generic text.
type apiError struct {
	status  int
	code    string
	errCode int
	err     error
	detail  string
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	var existing apiError
	if errors.As(err, &existing) {
		if existing.status != 0 {
			return existing
		}
	}

	return apiError{status: status, code: code, errCode: errCode, err: err}
}

func withDetail(err error, detail string) error {
	var apiErr apiError
	if !errors.As(err, &apiErr) {
		return err
	}
	apiErr.detail = detail
	return apiErr
}

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

func notFoundCode(err error, code string, errCode int) error {
	return makeAPIError(http.StatusNotFound, code, errCode, err)
}

func fileNotFound() error {
	return notFoundCode(fmt.Errorf("File not found"), "file_not_found", ErrCodeFileNotFound)
}

func blobMissing() error {
	return notFoundCode(fmt.Errorf("File not found on server"), "blob_missing", ErrCodeBlobMissing)
}

func fileTooLarge(limit int64) error {
	return makeAPIError(http.StatusRequestEntityTooLarge, "file_too_large", ErrCodeFileTooLarge,
		fmt.Errorf("file exceeds maximum size of %d bytes", limit))
}

func unsupportedMediaType(mediaType string) error {
	return makeAPIError(http.StatusUnsupportedMediaType, "unsupported_media_type", ErrCodeUnsupportedMediaType,
		fmt.Errorf("media type %q is not allowed", mediaType))
}

func storageQuotaExceeded(limit int64) error {
	return makeAPIError(http.StatusInsufficientStorage, "storage_quota_exceeded", ErrCodeStorageQuotaExceeded,
		fmt.Errorf("storage limit of %d bytes would be exceeded", limit))
}

func internalError(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeInternal, err)
}

func storeFailure(err error) error {
	return makeAPIError(http.StatusInternalServerError, "store_failure", ErrCodeStoreFailure, err)
}

func blobFailure(err error) error {
	return makeAPIError(http.StatusInternalServerError, "blob_failure", ErrCodeBlobFailure, err)
}

func duplicateContent(err error) error {
	return makeAPIError(http.StatusInternalServerError, "duplicate_content", ErrCodeDuplicateContent, err)
}

func httpStatusFromError(err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

func errorCode(status int, err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.code != "" {
		return apiErr.code
	}
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "file_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusTooManyRequests:
		return "resource_exhausted"
	case http.StatusInternalServerError:
		return "internal"
	case http.StatusInsufficientStorage:
		return "storage_quota_exceeded"
	default:
		return ""
	}
}

func errorNumericCode(status int, err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.errCode > 0 {
		return apiErr.errCode
	}
	return defaultErrorCodeByStatus(status)
}

// publicDetail is the message a 5xx response carries. Store and blob
// failures expose their cause; anything else without a detail stays generic.
func publicDetail(err error) string {
	var apiErr apiError
	if !errors.As(err, &apiErr) {
		return internalErrorMessage
	}
	if apiErr.detail != "" {
		return apiErr.detail
	}
	if exposesCause(apiErr.code) && apiErr.err != nil {
		return apiErr.err.Error()
	}
	return internalErrorMessage
}

func exposesCause(code string) bool {
	return code == "store_failure" || code == "blob_failure"
}

func shouldWarnClientError(status int) bool {
	switch status {
	case http.StatusRequestEntityTooLarge, http.StatusTooManyRequests, http.StatusInsufficientStorage:
		return true
	default:
		return false
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

func (s *Server) pathFileIDOrBadRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := requireFileID(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return 0, false
	}
	return id, true
}

func requireFileID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("file_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequestCode(fmt.Errorf("invalid file_id"), ErrCodeInvalidID)
	}
	return id, nil
}
