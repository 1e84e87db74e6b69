package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// Local precondition errors, raised before any network call.
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrFileTooLarge    = errors.New("file size exceeds 10MB")

	// Backend-reported errors; *APIError unwraps to one of these.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation error")
	ErrServer       = errors.New("server error")

	// Transport and decoding errors.
	ErrUnavailable       = errors.New("server unavailable")
	ErrMalformedResponse = errors.New("malformed response")
)

// Backend error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// APIError is a non-2xx backend answer.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Code is the backend code (e.g. "NOT_FOUND") or the numeric HTTP status
	// when the body carried none.
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %s (http %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Unwrap maps the error onto the sentinel taxonomy.
func (e *APIError) Unwrap() error {
	switch strings.ToUpper(e.Code) {
	case CodeUnauthorized:
		return ErrUnauthorized
	case CodeForbidden:
		return ErrForbidden
	case CodeNotFound:
		return ErrNotFound
	case CodeValidation:
		return ErrValidation
	case CodeConflict:
		return ErrConflict
	case CodeInternal:
		return ErrServer
	}
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity,
		e.Status == http.StatusRequestEntityTooLarge:
		return ErrValidation
	case e.Status >= 500:
		return ErrServer
	}
	return nil
}

// IsAuthError reports whether err means the bearer token is no longer valid.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// UserMessage renders err for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNotLoggedIn):
		return "Please log in first"
	case errors.Is(err, ErrUnauthorized):
		return "Session expired, please log in again"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrUnavailable):
		return "Server unavailable"
	}
	return err.Error()
}
