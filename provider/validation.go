package provider

import (
	"context"
	"fmt"
	"time"

	"pixie/config"
)

// PingResult is the outcome of checking one configured provider.
type PingResult struct {
	ProviderID string
	Model      string
	Valid      bool
	Err        error
}

// PingProvider validates a provider's configuration and credentials by
// building it and calling Ping.
func PingProvider(ctx context.Context, cfg *config.Config, providerID string) PingResult {
	result := PingResult{ProviderID: providerID, Model: ConfigFor(cfg, providerID).Model}

	if err := cfg.ValidateProvider(providerID); err != nil {
		result.Err = err
		return result
	}

	p, err := NewProvider(ctx, ConfigFor(cfg, providerID))
	if err != nil {
		result.Err = fmt.Errorf("failed to create provider: %w", err)
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		result.Err = fmt.Errorf("connection failed: %w", err)
		return result
	}

	config.Logger("llm").Debug("provider ping successful", "provider", providerID)
	result.Valid = true
	return result
}

// PingConfigured checks the primary provider followed by each fallback.
func PingConfigured(ctx context.Context, cfg *config.Config) []PingResult {
	ids := append([]string{cfg.LLM.Provider}, cfg.LLM.FallbackProviders...)
	seen := make(map[string]bool, len(ids))

	results := make([]PingResult, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		results = append(results, PingProvider(ctx, cfg, id))
	}
	return results
}
