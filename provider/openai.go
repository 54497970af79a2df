package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"pixie/config"
	"pixie/model"
)

const DefaultOpenAIModel = "gpt-4o"

// OpenAIProvider implements model.Provider using OpenAI's chat completions API.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
	log     *slog.Logger
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// An empty baseURL means https://api.openai.com/v1. Returns an error if the
// API key is missing.
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	// Retries are owned by RetryingProvider.
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
		log:     config.Logger("openai"),
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error) {
	messages, err := PrepareMessages(req.Messages, req.System)
	if err != nil {
		return "", model.Usage{}, err
	}

	params := openai.ChatCompletionNewParams{
		Messages:    ConvertToOpenAIMessages(messages),
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", model.Usage{}, p.fail(err)
	}
	if len(completion.Choices) == 0 {
		return "", model.Usage{}, p.fail(fmt.Errorf("response contained no choices"))
	}

	choice := completion.Choices[0]
	usage := model.Usage{
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
		FinishReason: string(choice.FinishReason),
	}
	logSuccess(p.log, p.model, choice.Message.Content, usage)
	return choice.Message.Content, usage, nil
}

func (p *OpenAIProvider) fail(err error) error {
	p.log.Error("OpenAI API error", "model", p.model, "error", err)
	return &ProviderError{Provider: ProviderTypeOpenAI, Model: p.model, Err: err}
}

func (p *OpenAIProvider) GetModel() string {
	return p.model
}

func (p *OpenAIProvider) Name() string {
	return string(ProviderTypeOpenAI)
}

// Ping implements model.Provider.Ping by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	_, err := p.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}
