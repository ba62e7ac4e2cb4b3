package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	clearCache()

	prompt, err := Get(TranslationFile, "translate-fragment")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.TargetLanguage}}")
	assert.Contains(t, prompt, "{{.Text}}")
}

func TestGet_InvalidFile(t *testing.T) {
	clearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
}

func TestGet_InvalidKey(t *testing.T) {
	clearCache()

	_, err := Get(TranslationFile, "nonexistent-key")
	assert.ErrorContains(t, err, "nonexistent-key")
}

func TestFormat(t *testing.T) {
	result := Format("Translate {{.Text}} into {{.TargetLanguage}}", map[string]string{
		"Text":           "Hello",
		"TargetLanguage": "es",
	})
	assert.Equal(t, "Translate Hello into es", result)
}

func TestFormat_ValuesNotReexpanded(t *testing.T) {
	result := Format("{{.Text}}/{{.TargetLanguage}}", map[string]string{
		"Text":           "literal {{.TargetLanguage}}",
		"TargetLanguage": "fr",
	})
	assert.Equal(t, "literal {{.TargetLanguage}}/fr", result)
}

func TestFormat_EmptyData(t *testing.T) {
	assert.Equal(t, "Hello {{.Name}}", Format("Hello {{.Name}}", nil))
}

func TestCaching(t *testing.T) {
	clearCache()

	first, err := Get(TranslationFile, "translate-fragment")
	require.NoError(t, err)
	second, err := Get(TranslationFile, "translate-fragment")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
