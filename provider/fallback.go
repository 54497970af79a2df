package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pixie/config"
	"pixie/model"
)

// FallbackProvider tries each provider in order and returns the first
// success. Every switch to the next provider is logged. The first provider
// is the primary: its name and model identify the chain.
type FallbackProvider struct {
	chain []model.Provider
	log   *slog.Logger
}

func NewFallbackProvider(primary model.Provider, fallbacks ...model.Provider) *FallbackProvider {
	return &FallbackProvider{
		chain: append([]model.Provider{primary}, fallbacks...),
		log:   config.Logger("llm"),
	}
}

func (f *FallbackProvider) Generate(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error) {
	var errs []error
	for i, p := range f.chain {
		text, usage, err := p.Generate(ctx, req)
		if err == nil {
			return text, usage, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil || errors.Is(err, ErrNoMessages) {
			break
		}
		if i+1 < len(f.chain) {
			next := f.chain[i+1]
			f.log.Warn("LLM provider failed, falling back",
				"failed", p.Name(),
				"next", next.Name(),
				"next_model", next.GetModel(),
				"error", err,
			)
		}
	}
	return "", model.Usage{}, errors.Join(errs...)
}

func (f *FallbackProvider) GetModel() string {
	return f.chain[0].GetModel()
}

func (f *FallbackProvider) Name() string {
	return f.chain[0].Name()
}

// Ping succeeds when any provider in the chain is reachable.
func (f *FallbackProvider) Ping(ctx context.Context) error {
	var errs []error
	for _, p := range f.chain {
		err := p.Ping(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
