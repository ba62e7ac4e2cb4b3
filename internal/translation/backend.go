package translation

import "context"

// Backend translates a single text into a target language.
// Source language detection is left to the backend.
type Backend interface {
	Name() string
	Translate(ctx context.Context, text, target string) (string, error)
}

// Identity is a Backend that returns its input. It stands in when no backend
// is configured so the rest of the pipeline can still run.
type Identity struct{}

// Name implements Backend.
func (Identity) Name() string { return "identity" }

// Translate implements Backend.
func (Identity) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
