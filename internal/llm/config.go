// Package llm provides centralized LLM configuration and client abstractions.
// Gemini and any OpenAI-compatible endpoint (including a local Ollama server) are supported.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: archetype classification, soft skills
	TierLite ModelTier = "lite"
	// TierStandard is for section writing
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long-form writing such as the cover letter
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is the OpenAI chat completions API
	ProviderOpenAI Provider = "openai"
	// ProviderOllama is a local Ollama server through its OpenAI-compatible endpoint
	ProviderOllama Provider = "ollama"
)

// DefaultTemperature keeps the model close to the profile facts
const DefaultTemperature = 0.2

// DefaultOllamaBaseURL is where `ollama serve` exposes its OpenAI-compatible API
const DefaultOllamaBaseURL = "http://localhost:11434/v1/"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	BaseURL     string
	Temperature float64
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: DefaultTemperature,
	}
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		},
		Temperature: DefaultTemperature,
	}
}

// DefaultOllamaConfig returns a single-model Ollama configuration
func DefaultOllamaConfig() *Config {
	return &Config{
		Provider: ProviderOllama,
		Models: map[ModelTier]string{
			TierStandard: "phi3:latest",
		},
		BaseURL:     DefaultOllamaBaseURL,
		Temperature: DefaultTemperature,
	}
}

// ConfigFor returns the default configuration of a provider, or nil if unknown
func ConfigFor(provider Provider) *Config {
	switch provider {
	case ProviderGemini:
		return DefaultGeminiConfig()
	case ProviderOpenAI:
		return DefaultOpenAIConfig()
	case ProviderOllama:
		return DefaultOllamaConfig()
	default:
		return nil
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := c.clone()
	newConfig.Models[tier] = model
	return newConfig
}

// WithSingleModel returns a new Config that uses model for every tier
func (c *Config) WithSingleModel(model string) *Config {
	newConfig := c.clone()
	newConfig.Models = map[ModelTier]string{
		TierLite:     model,
		TierStandard: model,
		TierAdvanced: model,
	}
	return newConfig
}

func (c *Config) clone() *Config {
	newConfig := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string, len(c.Models)),
		BaseURL:     c.BaseURL,
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	return newConfig
}
