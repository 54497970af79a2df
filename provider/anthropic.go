package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"pixie/config"
	"pixie/model"
)

const (
	DefaultAnthropicModel = "claude-haiku-4-5-20251001"

	// Anthropic requires max_tokens on every request.
	defaultAnthropicMaxTokens = 4096
)

// AnthropicProvider implements model.Provider using the official Anthropic SDK.
type AnthropicProvider struct {
	client  *anthropic.Client
	model   anthropic.Model
	baseURL string
	log     *slog.Logger
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Parameters:
//   - baseURL: Anthropic API base URL (default: "https://api.anthropic.com")
//   - apiKey: Anthropic API key (required)
//   - model: model to use (default: DefaultAnthropicModel)
//
// Returns an error if the API key is missing.
func NewAnthropicProvider(baseURL, apiKey, model string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &AnthropicProvider{
		client:  &client,
		model:   anthropic.Model(model),
		baseURL: baseURL,
		log:     config.Logger("anthropic"),
	}, nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error) {
	messages, err := PrepareMessages(req.Messages, req.System)
	if err != nil {
		return "", model.Usage{}, err
	}
	anthropicMessages, systemBlocks := convertToAnthropicMessages(messages, p.log)

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       p.model,
		Messages:    anthropicMessages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", model.Usage{}, p.fail(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	usage := model.Usage{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
		FinishReason: normalizeAnthropicStop(string(msg.StopReason)),
	}
	logSuccess(p.log, p.GetModel(), text.String(), usage)
	return text.String(), usage, nil
}

func (p *AnthropicProvider) fail(err error) error {
	p.log.Error("Anthropic API error", "model", p.GetModel(), "error", err)
	return &ProviderError{Provider: ProviderTypeAnthropic, Model: p.GetModel(), Err: err}
}

func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

func (p *AnthropicProvider) Name() string {
	return string(ProviderTypeAnthropic)
}

// Ping implements model.Provider.Ping by attempting a minimal request.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	// Anthropic doesn't have a ping/health endpoint, so we make a minimal request
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}
