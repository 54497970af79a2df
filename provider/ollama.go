package provider

import (
	"context"
	"fmt"
	"log/slog"

	"pixie/config"
	"pixie/model"
	"pixie/ollama"
)

// OllamaProvider wraps ollama.Client to implement model.Provider.
//
// Ollama has no notion of a separate system parameter, so the system prompt
// travels as the first message after PrepareMessages has applied the
// overwrite-or-prepend rule.
type OllamaProvider struct {
	client *ollama.Client
	log    *slog.Logger
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Empty baseURL and model fall back to http://localhost:11434 and
// llama3.1:latest.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client: client,
		log:    config.Logger("ollama"),
	}, nil
}

func (p *OllamaProvider) Generate(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error) {
	messages, err := PrepareMessages(req.Messages, req.System)
	if err != nil {
		return "", model.Usage{}, err
	}

	res, err := p.client.Chat(ctx, ConvertToOllamaMessages(messages), ollama.Options{
		Temperature: req.Temperature,
		NumPredict:  req.MaxTokens,
	})
	if err != nil {
		return "", model.Usage{}, p.fail(err)
	}

	usage := model.Usage{
		InputTokens:  int64(res.PromptEvalCount),
		OutputTokens: int64(res.EvalCount),
		FinishReason: res.DoneReason,
	}
	logSuccess(p.log, p.GetModel(), res.Content, usage)
	return res.Content, usage, nil
}

func (p *OllamaProvider) fail(err error) error {
	p.log.Error("Ollama API error", "model", p.GetModel(), "error", err)
	return &ProviderError{Provider: ProviderTypeOllama, Model: p.GetModel(), Err: err}
}

func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

func (p *OllamaProvider) Name() string {
	return string(ProviderTypeOllama)
}

func (p *OllamaProvider) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("Ollama ping failed: %w", err)
	}
	return nil
}
