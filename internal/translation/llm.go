package translation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/sitetranslate/internal/llm"
	"github.com/jonathan/sitetranslate/internal/prompts"
	"github.com/jonathan/sitetranslate/internal/schemas"
)

// LLMBackend translates through a generative model using the embedded prompts.
type LLMBackend struct {
	client llm.Client
}

// NewLLMBackend wraps an LLM client as a Backend.
func NewLLMBackend(client llm.Client) *LLMBackend {
	return &LLMBackend{client: client}
}

// Name implements Backend.
func (b *LLMBackend) Name() string { return "gemini" }

// Translate implements Backend. A reply that does not match the output
// schema is retried once with a stricter prompt.
func (b *LLMBackend) Translate(ctx context.Context, text, target string) (string, error) {
	data := map[string]string{"Text": text, "TargetLanguage": target}
	tier := llm.TierFor(text)

	var lastErr error
	for _, key := range []string{"translate-fragment", "translate-fragment-retry"} {
		template, err := prompts.Get(prompts.TranslationFile, key)
		if err != nil {
			return "", &BackendError{Backend: b.Name(), Message: "prompt unavailable", Cause: err}
		}

		raw, err := b.client.GenerateJSON(ctx, prompts.Format(template, data), tier)
		if err != nil {
			return "", &BackendError{Backend: b.Name(), Message: "generation failed", Cause: err}
		}

		translated, err := decodeLLMOutput(raw)
		if err == nil {
			return translated, nil
		}
		lastErr = err
	}
	return "", &BackendError{Backend: b.Name(), Message: "malformed response", Cause: lastErr}
}

func decodeLLMOutput(raw string) (string, error) {
	if err := schemas.Validate(schemas.LLMTranslation, []byte(raw)); err != nil {
		return "", err
	}
	var out struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("failed to decode translation: %w", err)
	}
	return out.TranslatedText, nil
}
