package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ErrProjectNotFound indicates the project does not exist or belongs to
// another user
type ErrProjectNotFound struct {
	ProjectID uuid.UUID
}

func (e *ErrProjectNotFound) Error() string {
	return fmt.Sprintf("project not found: %s", e.ProjectID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrSheetsUnavailable indicates no spreadsheet backend is configured
type ErrSheetsUnavailable struct{}

func (e *ErrSheetsUnavailable) Error() string {
	return "spreadsheet backend is not configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrProjectNotFound:
		return http.StatusNotFound
	case *ErrValidation:
		return http.StatusBadRequest
	case *ErrSheetsUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
