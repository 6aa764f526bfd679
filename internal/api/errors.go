package api

import (
	"errors"
	"net/http"
	"strconv"
)

// APIError is the decoded JSON error body of a failed request.
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
}

func (e *APIError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message == "" && e.Status > 0:
		return "api error: " + strconv.Itoa(e.Status)
	case e.Message == "":
		return "api error"
	case e.Code == "":
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// IsNotFound reports whether the API answered 404.
func (e *APIError) IsNotFound() bool {
	return e != nil && e.Status == http.StatusNotFound
}

// HasCode reports whether err is an APIError carrying the given string code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
