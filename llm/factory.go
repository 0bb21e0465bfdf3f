// Provider factory - creates a configured provider by name.

package llm

import (
	"fmt"
	"os"
	"strings"
)

// FactoryConfig holds the settings shared by all providers.
type FactoryConfig struct {
	Model       string
	MaxTokens   uint32
	Temperature float32

	// Vertex AI selection for the Gemini provider.
	Project  string
	Location string
}

// Provider name -> API key environment variable.
var apiKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// NewProvider creates a provider by name, reading the API key from the
// provider's environment variable. The Gemini provider also accepts
// Vertex AI project credentials in place of an API key.
func NewProvider(name string, cfg FactoryConfig) (Provider, error) {
	name = strings.ToLower(name)

	envVar, ok := apiKeyEnv[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %q", name)
	}
	apiKey := os.Getenv(envVar)

	switch name {
	case "gemini":
		if apiKey == "" && cfg.Project == "" {
			return nil, fmt.Errorf("%s not set and no Vertex project configured", envVar)
		}
		return NewGeminiProvider(GeminiConfig{
			APIKey:      apiKey,
			Project:     cfg.Project,
			Location:    cfg.Location,
			Model:       cfg.Model,
			MaxTokens:   int32(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		}), nil
	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable not set", envVar)
		}
		return NewAnthropicProvider(apiKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable not set", envVar)
		}
		return NewOpenAIProvider(apiKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	}
	return nil, fmt.Errorf("unknown provider: %q", name)
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	names := make([]string, 0, len(apiKeyEnv))
	for name := range apiKeyEnv {
		names = append(names, name)
	}
	return names
}
