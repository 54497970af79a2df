package provider

import (
	"context"
	"fmt"

	"pixie/config"
	"pixie/model"
)

// NewProvider creates a bare provider (no retries) based on configuration.
//
// This is the centralized factory function for creating any provider type.
// It dispatches on Config.Type and returns an error for unknown types or
// when the provider-specific constructor fails (missing key, invalid URL).
//
// Example:
//
//	p, err := provider.NewProvider(ctx, provider.Config{
//	    Type:   provider.ProviderTypeAnthropic,
//	    Model:  "claude-haiku-4-5-20251001",
//	    APIKey: "sk-ant-...",
//	})
func NewProvider(ctx context.Context, cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOllama:
		return asProvider(NewOllamaProvider(cfg.BaseURL, cfg.Model))
	case ProviderTypeOpenAI:
		return asProvider(NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model))
	case ProviderTypeAnthropic:
		return asProvider(NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model))
	case ProviderTypeGemini:
		return asProvider(NewGeminiProvider(ctx, cfg.APIKey, cfg.Model))
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// asProvider keeps a failed constructor from yielding a non-nil interface
// holding a nil pointer.
func asProvider[P model.Provider](p P, err error) (model.Provider, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MapProviderIDToType converts a configured provider ID to a ProviderType.
//
// Mappings:
//   - "openai" → ProviderTypeOpenAI
//   - "claude" → ProviderTypeAnthropic
//   - "gemini" → ProviderTypeGemini
//   - "ollama" → ProviderTypeOllama
//
// For unknown IDs, returns the ID cast as ProviderType (factory will error).
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "openai":
		return ProviderTypeOpenAI
	case "claude":
		return ProviderTypeAnthropic
	case "gemini":
		return ProviderTypeGemini
	case "ollama":
		return ProviderTypeOllama
	default:
		return ProviderType(id)
	}
}

// ConfigFor extracts the settings for one provider ID from the application
// configuration.
func ConfigFor(cfg *config.Config, id string) Config {
	t := MapProviderIDToType(id)
	switch t {
	case ProviderTypeOpenAI:
		return Config{Type: t, BaseURL: cfg.LLM.OpenAI.BaseURL, Model: cfg.LLM.OpenAI.Model, APIKey: cfg.LLM.OpenAI.APIKey}
	case ProviderTypeAnthropic:
		return Config{Type: t, BaseURL: cfg.LLM.Anthropic.BaseURL, Model: cfg.LLM.Anthropic.Model, APIKey: cfg.LLM.Anthropic.APIKey}
	case ProviderTypeGemini:
		return Config{Type: t, Model: cfg.LLM.Gemini.Model, APIKey: cfg.LLM.Gemini.APIKey}
	case ProviderTypeOllama:
		return Config{Type: t, BaseURL: cfg.LLM.Ollama.Host, Model: cfg.LLM.Ollama.Model}
	}
	return Config{Type: t}
}

// FromConfig validates the selected provider and builds the provider stack
// used by the application: the primary wrapped in retries, optionally
// chained with the configured fallbacks.
//
// The primary must be fully configured; a *config.ConfigurationError is
// returned otherwise. Misconfigured fallbacks are skipped with a warning.
func FromConfig(ctx context.Context, cfg *config.Config) (model.Provider, error) {
	log := config.Logger("llm")

	if err := cfg.ValidateLLM(); err != nil {
		return nil, err
	}
	primary, err := build(ctx, cfg, cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}

	var fallbacks []model.Provider
	for _, id := range cfg.LLM.FallbackProviders {
		if MapProviderIDToType(id) == MapProviderIDToType(cfg.LLM.Provider) {
			continue
		}
		if err := cfg.ValidateProvider(id); err != nil {
			log.Warn("skipping fallback provider", "provider", id, "error", err)
			continue
		}
		p, err := build(ctx, cfg, id)
		if err != nil {
			log.Warn("skipping fallback provider", "provider", id, "error", err)
			continue
		}
		fallbacks = append(fallbacks, p)
	}

	log.Info("LLM provider initialised",
		"provider", primary.Name(),
		"model", primary.GetModel(),
		"fallbacks", len(fallbacks),
	)

	if len(fallbacks) == 0 {
		return primary, nil
	}
	return NewFallbackProvider(primary, fallbacks...), nil
}

func build(ctx context.Context, cfg *config.Config, id string) (model.Provider, error) {
	p, err := NewProvider(ctx, ConfigFor(cfg, id))
	if err != nil {
		return nil, err
	}
	return NewRetryingProvider(p, cfg.LLM.RequestTimeout.Duration, cfg.LLM.MaxRetries), nil
}
