// Package translation turns original page text into a target language through
// an external backend. Backend failures never reach callers of Translator:
// the original text is returned instead.
package translation

import "fmt"

// BackendError describes a failed call to a translation backend.
type BackendError struct {
	Backend    string
	Message    string
	StatusCode int
	Cause      error
}

func (e *BackendError) Error() string {
	msg := e.Backend + ": " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}
