// Package chat drives one widget chat turn: it generates or edits the
// widget's UI, then produces the short Markdown reply that accompanies it.
package chat

import (
	"context"
	"log/slog"

	"pixie/config"
	"pixie/htmlproc"
	"pixie/model"
	"pixie/prompt"
)

// Apology is the reply used when the text branch fails.
const Apology = "I'm sorry, I'm having trouble generating a response. Please try again later."

const (
	uiTemperature   = 0.1
	textTemperature = 0.3
	textMaxTokens   = 1000
)

// ResourceSource returns the newest stored UI resource for a widget, or nil
// when the widget has none.
type ResourceSource interface {
	LatestByWidget(ctx context.Context, widgetID string) (*model.StoredResource, error)
}

// LlmChat is the per-turn orchestrator. It is safe for concurrent use when
// its provider and sources are.
type LlmChat struct {
	provider    model.Provider
	resources   ResourceSource
	designs     DesignSource
	extractor   *htmlproc.Extractor
	uiMaxTokens int
	log         *slog.Logger
}

// NewLlmChat wires an orchestrator. resources and designs may be nil, in
// which case every turn is a fresh creation without visual references.
func NewLlmChat(p model.Provider, resources ResourceSource, designs DesignSource, uiMaxTokens int) *LlmChat {
	if uiMaxTokens <= 0 {
		uiMaxTokens = config.DefaultUIMaxTokens
	}
	log := config.Logger("chat")
	return &LlmChat{
		provider:    p,
		resources:   resources,
		designs:     designs,
		extractor:   htmlproc.NewExtractor(log),
		uiMaxTokens: uiMaxTokens,
		log:         log,
	}
}

// GenerateResponse runs one turn. The UI branch runs first; when it yields a
// document the text branch sees it spliced into the user message. Neither
// branch fails the turn: a UI failure returns a nil resource, a text failure
// returns Apology.
func (c *LlmChat) GenerateResponse(ctx context.Context, widgetID string, tools []model.ToolDescriptor, userMessage string, previous []model.Message) (string, *model.ResourceEnvelope) {
	conversation := BuildConversationContext(previous)

	html := c.generateUI(ctx, widgetID, tools, userMessage, conversation)

	textRequest := userMessage
	if html != "" {
		textRequest = "Required UI description or improvements to the HTML content: " + userMessage +
			"\n\nFollowing is the HTML content generated for the user's request: " + html
	}

	text, err := c.generateText(ctx, tools, textRequest, conversation)
	if err != nil {
		c.log.Error("LLM response generation failed", "error", err)
		text = Apology
	}

	if html == "" {
		return text, nil
	}
	return text, model.NewWidgetResource(widgetID, html)
}

func (c *LlmChat) generateText(ctx context.Context, tools []model.ToolDescriptor, userMessage, conversation string) (string, error) {
	messages := append(ParseConversation(conversation), model.TextMessage(model.RoleUser, userMessage))

	text, _, err := c.provider.Generate(ctx, model.GenerateRequest{
		Messages:    messages,
		System:      prompt.BuildTextResponse(userMessage, tools),
		Temperature: textTemperature,
		MaxTokens:   textMaxTokens,
	})
	if err != nil {
		return "", err
	}

	if htmlproc.ContainsMarkup(text) {
		text = htmlproc.CleanHTMLFromText(text)
	}
	return text, nil
}

// generateUI returns the processed document, or "" when generation failed.
func (c *LlmChat) generateUI(ctx context.Context, widgetID string, tools []model.ToolDescriptor, userMessage, conversation string) string {
	existing := c.existingHTML(ctx, widgetID)
	designs := c.SelectDesigns(ctx)

	system := prompt.BuildUIGeneration(tools, userMessage, conversation, existing != "", designs)
	content := prompt.BuildUIUserContent(userMessage, existing, designs)

	c.log.Debug("UI generation request",
		"widget_id", widgetID,
		"existing_html_length", len(existing),
		"logos", len(designs.Logos),
		"ux_designs", len(designs.UXDesigns))

	raw, usage, err := c.provider.Generate(ctx, model.GenerateRequest{
		Messages:    []model.ChatMessage{content},
		System:      system,
		Temperature: uiTemperature,
		MaxTokens:   c.uiMaxTokens,
	})
	if err != nil {
		c.log.Error("LLM UI generation error", "widget_id", widgetID, "error", err)
		return ""
	}

	return c.extractor.Process(raw, usage.FinishReason, c.uiMaxTokens).HTML
}

func (c *LlmChat) existingHTML(ctx context.Context, widgetID string) string {
	if c.resources == nil {
		return ""
	}
	latest, err := c.resources.LatestByWidget(ctx, widgetID)
	switch {
	case err != nil:
		c.log.Warn("Failed to retrieve existing UI resource", "widget_id", widgetID, "error", err)
		return ""
	case latest == nil:
		return ""
	}
	c.log.Debug("Found existing UI resource", "widget_id", widgetID)
	return model.ExtractHTML(latest.Resource)
}
