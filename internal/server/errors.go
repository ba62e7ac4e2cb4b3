package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/sitetranslate/internal/pipeline"
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError indicates a request body failed validation.
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "validation failed"
	}
	first := e.Details[0]
	return fmt.Sprintf("validation failed: %s %s", first.Field, first.Message)
}

// newValidationError converts validator output into field-level details.
func newValidationError(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Details: []FieldError{{Field: "body", Message: err.Error()}}}
	}

	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{Field: fe.Field(), Message: ruleMessage(fe)})
	}
	return &ValidationError{Details: details}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed the '%s' check", fe.Tag())
	}
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound    *pipeline.NotFoundError
		invalid     *pipeline.InvalidInputError
		validation  *ValidationError
		upstream    *pipeline.UpstreamError
		persistence *pipeline.PersistenceError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.As(err, &persistence):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// viewStatus is HTTPStatus for proxied pages, where upstream failures are 500.
func viewStatus(err error) int {
	status := HTTPStatus(err)
	if status == http.StatusBadGateway {
		return http.StatusInternalServerError
	}
	return status
}

// writeError maps err to a status and writes the JSON error body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", status, "error", err)
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		s.jsonResponse(w, status, map[string]any{
			"error":   err.Error(),
			"details": validation.Details,
		})
		return
	}
	s.errorResponse(w, status, err.Error())
}
