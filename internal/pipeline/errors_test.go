package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/sitetranslate/internal/fetch"
)

func TestUpstreamError_FromFetchError(t *testing.T) {
	cause := &fetch.Error{URL: "https://example.com/", Message: "HTTP 503", StatusCode: 503}
	err := upstreamError("https://example.com/", cause)

	var upstream *UpstreamError
	assert.True(t, errors.As(err, &upstream))
	assert.Equal(t, 503, upstream.StatusCode)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to fetch https://example.com/: upstream returned status 503", err.Error())
}

func TestUpstreamError_Timeout(t *testing.T) {
	err := upstreamError("https://example.com/", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "website not found: example.com", (&NotFoundError{Resource: "website", Key: "example.com"}).Error())
	assert.Equal(t, "invalid url: must be absolute", (&InvalidInputError{Field: "url", Message: "must be absolute"}).Error())

	cause := errors.New("disk full")
	persist := &PersistenceError{Op: "store fragment", Cause: cause}
	assert.Equal(t, "failed to store fragment: disk full", persist.Error())
	assert.ErrorIs(t, persist, cause)
}
