package api

import (
	"fmt"
	"net/http"

	"tudor/internal/models"
)

// APIError is an error response from a tudor server. It matches the
// models error kinds through errors.Is, so remote and local failures can be
// handled alike.
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	case e.Status > 0:
		return fmt.Sprintf("tudor server: %d %s", e.Status, http.StatusText(e.Status))
	}
	return "tudor server error"
}

// Is maps the response status onto models.ErrNotFound, ErrForbidden,
// ErrConflict and ErrInvalidArgument.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	return kindOf(e.Status) == target
}

func kindOf(status int) error {
	switch status {
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusForbidden:
		return models.ErrForbidden
	case http.StatusConflict:
		return models.ErrConflict
	case http.StatusBadRequest:
		return models.ErrInvalidArgument
	}
	return nil
}
