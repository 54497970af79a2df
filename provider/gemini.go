package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
	"pixie/config"
	"pixie/model"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements model.Provider using Google's genai SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

// NewGeminiProvider creates a Gemini API client. Returns an error if the API
// key is missing.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
		log:    config.Logger("gemini"),
	}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error) {
	messages, err := PrepareMessages(req.Messages, req.System)
	if err != nil {
		return "", model.Usage{}, err
	}
	contents, systemInstruction := convertToGeminiContents(messages, p.log)

	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		SystemInstruction: systemInstruction,
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", model.Usage{}, p.fail(err)
	}
	if len(resp.Candidates) == 0 {
		return "", model.Usage{}, p.fail(fmt.Errorf("response contained no candidates"))
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}

	usage := model.Usage{FinishReason: normalizeGeminiFinish(string(candidate.FinishReason))}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	logSuccess(p.log, p.model, text.String(), usage)
	return text.String(), usage, nil
}

func (p *GeminiProvider) fail(err error) error {
	p.log.Error("Gemini API error", "model", p.model, "error", err)
	return &ProviderError{Provider: ProviderTypeGemini, Model: p.model, Err: err}
}

func (p *GeminiProvider) GetModel() string {
	return p.model
}

func (p *GeminiProvider) Name() string {
	return string(ProviderTypeGemini)
}

// Ping fetches the configured model's metadata.
func (p *GeminiProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.model, nil); err != nil {
		return fmt.Errorf("Gemini ping failed: %w", err)
	}
	return nil
}
