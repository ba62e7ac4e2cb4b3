// Package llm wraps the generative model used as an alternative translation
// backend.
package llm

// ModelTier selects a model by cost and quality.
type ModelTier string

const (
	// TierFast is for short UI strings: headings, buttons, link labels
	TierFast ModelTier = "fast"
	// TierQuality is for longer paragraphs where fluency matters
	TierQuality ModelTier = "quality"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierFast:    "gemini-2.5-flash-lite",
			TierQuality: "gemini-2.5-flash",
		},
		Temperature: 0.1,
	}
}

// GetModel returns the model name for a tier, falling back to the fast tier.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierFast]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string, len(c.Models)+1),
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}

// TierFor picks a tier by text length; anything past a sentence gets the quality model.
func TierFor(text string) ModelTier {
	if len([]rune(text)) > 120 {
		return TierQuality
	}
	return TierFast
}
