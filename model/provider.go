package model

import "context"

// Provider abstracts a single configured text-generation backend (OpenAI,
// Anthropic, Gemini, Ollama) using provider-agnostic types.
//
// This interface lives in the model package (not provider) so that the
// orchestrators in chat and mcp can depend on it without importing the SDK
// adapters.
type Provider interface {
	// Generate sends messages with an optional system prompt and returns the
	// generated text with usage information. Errors are returned unchanged
	// after logging; any fallback is the caller's decision.
	Generate(ctx context.Context, req GenerateRequest) (string, Usage, error)

	// GetModel returns the model name used for API calls.
	GetModel() string

	// Name returns the provider identifier ("openai", "claude", "gemini", "ollama").
	Name() string

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// GenerateRequest is the uniform call contract shared by every provider.
type GenerateRequest struct {
	Messages    []ChatMessage
	System      string
	Temperature float64
	MaxTokens   int
}

// Usage reports token accounting and why generation stopped.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	FinishReason string
}

// Finish reasons normalised across providers.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)
