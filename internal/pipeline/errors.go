package pipeline

import (
	"errors"
	"fmt"

	"github.com/jonathan/sitetranslate/internal/fetch"
)

// NotFoundError reports an unknown site.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// UpstreamError reports that the target site could not be fetched.
type UpstreamError struct {
	URL        string
	StatusCode int
	Cause      error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: upstream returned status %d", e.URL, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("failed to fetch %s", e.URL)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// InvalidInputError reports a bad request field.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PersistenceError reports a repository failure.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

func upstreamError(url string, err error) error {
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		return &UpstreamError{URL: url, StatusCode: fetchErr.StatusCode, Cause: err}
	}
	return &UpstreamError{URL: url, Cause: err}
}
