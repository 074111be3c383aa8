// Package server exposes the REST surface: the ingestion trigger, the
// event query interface, and the geocoding backfill.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/event-scout/internal/pipeline"
)

// ErrValidation indicates a malformed request.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a missing resource.
type ErrNotFound struct {
	Resource string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// HTTPStatus maps an error to the appropriate HTTP status code.
// Per-item pipeline failures never reach here; they are absorbed into
// the run summary. Only whole-run failures surface as errors.
func HTTPStatus(err error) int {
	var cityErr *pipeline.UnsupportedCityError
	var validationErr *ErrValidation
	var notFoundErr *ErrNotFound

	switch {
	case errors.As(err, &cityErr), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorPayload is the structured error body returned to callers.
type errorPayload struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
