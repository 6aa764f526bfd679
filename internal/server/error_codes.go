package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument      = 1000
	ErrCodeInvalidMultipart     = 1001
	ErrCodeFileTooLarge         = 1002
	ErrCodeRequestTooLarge      = 1003
	ErrCodeInvalidID            = 1004
	ErrCodeUnsupportedMediaType = 1005
	ErrCodeMissingRequired      = 1009

	// Domain state (2xxx)
	ErrCodeFileNotFound = 2001
	ErrCodeBlobMissing  = 2002

	// Limits (3xxx)
	ErrCodeResourceExhausted    = 3003
	ErrCodeStorageQuotaExceeded = 3004

	// Internal/system (4xxx)
	ErrCodeInternal         = 4001
	ErrCodeStoreFailure     = 4002
	ErrCodeBlobFailure      = 4003
	ErrCodeDuplicateContent = 4004
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 404:
		return ErrCodeFileNotFound
	case 413:
		return ErrCodeFileTooLarge
	case 415:
		return ErrCodeUnsupportedMediaType
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 507:
		return ErrCodeStorageQuotaExceeded
	default:
		return 0
	}
}
