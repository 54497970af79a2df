package provider

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
	"pixie/model"
)

// ErrNoMessages is returned when a request has neither messages nor a system prompt.
var ErrNoMessages = errors.New("at least one message or a system prompt is required")

// PrepareMessages applies the system-prompt rule shared by every provider:
// a non-empty system replaces a leading system message instead of adding a
// second one, and is otherwise prepended. An empty message list is only valid
// when system is set, in which case the system message is the sole seed.
//
// The input slice is never modified.
func PrepareMessages(messages []model.ChatMessage, system string) ([]model.ChatMessage, error) {
	out := make([]model.ChatMessage, 0, len(messages)+1)
	out = append(out, messages...)

	if system != "" {
		sys := model.TextMessage(model.RoleSystem, system)
		switch {
		case len(out) > 0 && out[0].Role == model.RoleSystem:
			out[0] = sys
		default:
			out = append([]model.ChatMessage{sys}, out...)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoMessages
	}
	return out, nil
}

// splitSystem separates system text from conversational turns for APIs that
// take the system prompt as a dedicated parameter. With no conversational
// turn left, the system text is replayed as a user turn so the request is
// still valid.
func splitSystem(messages []model.ChatMessage) ([]string, []model.ChatMessage) {
	var systems []string
	turns := make([]model.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if text := strings.TrimSpace(msg.Text()); text != "" {
				systems = append(systems, text)
			}
			continue
		}
		turns = append(turns, msg)
	}
	if len(turns) == 0 && len(systems) > 0 {
		turns = append(turns, model.TextMessage(model.RoleUser, strings.Join(systems, "\n\n")))
	}
	return systems, turns
}

// parseDataURL splits data:<media type>;base64,<payload> into its parts.
func parseDataURL(url string) (mediaType string, payload string, err error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", "", fmt.Errorf("not a data URL")
	}
	header, data, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data URL")
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", "", fmt.Errorf("data URL is not base64 encoded")
	}
	return mediaType, data, nil
}

// ConvertToOpenAIMessages converts Pixie messages to OpenAI chat messages.
// Multimodal user messages become text and image_url content parts.
func ConvertToOpenAIMessages(messages []model.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Text()))
		case model.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Text()))
		default:
			if len(msg.Parts) == 0 {
				result = append(result, openai.UserMessage(msg.Content))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Parts))
			for _, p := range msg.Parts {
				switch p.Type {
				case model.PartImage:
					parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: p.ImageURL,
					}))
				default:
					parts = append(parts, openai.TextContentPart(p.Text))
				}
			}
			result = append(result, openai.UserMessage(parts))
		}
	}

	return result
}

// convertToAnthropicMessages converts Pixie messages to Anthropic message
// params plus system blocks. Anthropic takes the system prompt separately.
func convertToAnthropicMessages(messages []model.ChatMessage, log *slog.Logger) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	systems, turns := splitSystem(messages)

	systemBlocks := make([]anthropic.TextBlockParam, 0, len(systems))
	for _, s := range systems {
		systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: s})
	}

	anthropicMsgs := make([]anthropic.MessageParam, 0, len(turns))
	for _, msg := range turns {
		var blocks []anthropic.ContentBlockParamUnion
		switch {
		case len(msg.Parts) == 0:
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		default:
			for _, p := range msg.Parts {
				switch p.Type {
				case model.PartImage:
					mediaType, data, err := parseDataURL(p.ImageURL)
					if err != nil {
						log.Warn("skipping image part", "error", err)
						continue
					}
					blocks = append(blocks, anthropic.NewImageBlockBase64(mediaType, data))
				default:
					blocks = append(blocks, anthropic.NewTextBlock(p.Text))
				}
			}
		}

		switch msg.Role {
		case model.RoleAssistant:
			anthropicMsgs = append(anthropicMsgs, anthropic.NewAssistantMessage(blocks...))
		default:
			anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(blocks...))
		}
	}

	return anthropicMsgs, systemBlocks
}

// convertToGeminiContents converts Pixie messages to genai contents and an
// optional system instruction.
func convertToGeminiContents(messages []model.ChatMessage, log *slog.Logger) ([]*genai.Content, *genai.Content) {
	systems, turns := splitSystem(messages)

	var systemInstruction *genai.Content
	if len(systems) > 0 {
		systemInstruction = genai.NewContentFromText(strings.Join(systems, "\n\n"), genai.RoleUser)
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, msg := range turns {
		role := genai.Role(genai.RoleUser)
		if msg.Role == model.RoleAssistant {
			role = genai.RoleModel
		}

		var parts []*genai.Part
		switch {
		case len(msg.Parts) == 0:
			parts = append(parts, genai.NewPartFromText(msg.Content))
		default:
			for _, p := range msg.Parts {
				switch p.Type {
				case model.PartImage:
					mediaType, data, err := parseDataURL(p.ImageURL)
					if err != nil {
						log.Warn("skipping image part", "error", err)
						continue
					}
					raw, err := base64.StdEncoding.DecodeString(data)
					if err != nil {
						log.Warn("skipping undecodable image part", "error", err)
						continue
					}
					parts = append(parts, genai.NewPartFromBytes(raw, mediaType))
				default:
					parts = append(parts, genai.NewPartFromText(p.Text))
				}
			}
		}

		contents = append(contents, genai.NewContentFromParts(parts, role))
	}

	return contents, systemInstruction
}

// ConvertToOllamaMessages converts Pixie messages to Ollama api.Message.
// Image parts are decoded into raw bytes, which is what Ollama expects.
func ConvertToOllamaMessages(messages []model.ChatMessage) []api.Message {
	result := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		out := api.Message{
			Role:    string(msg.Role),
			Content: msg.Text(),
		}
		for _, url := range msg.Images() {
			_, data, err := parseDataURL(url)
			if err != nil {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(data)
			if err != nil {
				continue
			}
			out.Images = append(out.Images, api.ImageData(raw))
		}
		result = append(result, out)
	}
	return result
}

// normalizeAnthropicStop maps Anthropic stop reasons onto the shared
// finish-reason vocabulary.
func normalizeAnthropicStop(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return model.FinishStop
	case "max_tokens":
		return model.FinishLength
	default:
		return reason
	}
}

// normalizeGeminiFinish maps Gemini finish reasons onto the shared vocabulary.
func normalizeGeminiFinish(reason string) string {
	switch reason {
	case "STOP":
		return model.FinishStop
	case "MAX_TOKENS":
		return model.FinishLength
	default:
		return strings.ToLower(reason)
	}
}
