// Package provider implements model.Provider for the supported LLM backends.
//
// Pixie talks to exactly one configured provider per call site through the
// uniform Generate contract:
//
//	text, usage, err := p.Generate(ctx, model.GenerateRequest{
//	    Messages:    []model.ChatMessage{model.TextMessage(model.RoleUser, "hi")},
//	    System:      "You are terse.",
//	    Temperature: 0.2,
//	    MaxTokens:   1000,
//	})
//
// # Architecture
//
//   - model.Provider defines the contract (interface)
//   - OpenAIProvider, AnthropicProvider, GeminiProvider and OllamaProvider adapt
//     one SDK each and handle all type conversions (conversions.go)
//   - RetryingProvider adds a per-attempt timeout and bounded exponential backoff
//   - FallbackProvider optionally chains providers in a fixed, logged order
//   - NewProvider / FromConfig build the stack from configuration
//
// Adapters never swallow errors: failures are logged and returned wrapped in a
// *ProviderError so the orchestrators can decide how to degrade.
package provider

import "fmt"

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "claude"
	ProviderTypeGemini    ProviderType = "gemini"
	ProviderTypeOllama    ProviderType = "ollama"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}

// ProviderError wraps a failed call to a provider API.
type ProviderError struct {
	Provider ProviderType
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error for model %s: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
