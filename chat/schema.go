package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pixie/model"
	"pixie/prompt"
)

const (
	schemaTemperature = 0.1
	schemaMaxTokens   = 2000
)

// InferOutputSchema asks the model for a JSON Schema describing a sample tool
// output. It never fails: an unparsable answer or a provider error yields a
// placeholder object schema whose description says what went wrong.
func (c *LlmChat) InferOutputSchema(ctx context.Context, toolName, toolDescription string, toolOutput any) map[string]any {
	text, _, err := c.provider.Generate(ctx, model.GenerateRequest{
		Messages: []model.ChatMessage{
			model.TextMessage(model.RoleSystem, prompt.SchemaSystem),
			model.TextMessage(model.RoleUser, prompt.BuildOutputSchemaInference(toolName, toolDescription, toolOutput)),
		},
		System:      prompt.SchemaSystem,
		Temperature: schemaTemperature,
		MaxTokens:   schemaMaxTokens,
	})
	if err != nil {
		c.log.Error("Schema inference error", "tool", toolName, "error", err)
		return fallbackSchema(fmt.Sprintf("Schema inference failed: %v", err))
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(unfence(text)), &schema); err != nil || schema == nil {
		c.log.Error("Failed to parse inferred schema as JSON", "tool", toolName, "error", err)
		return fallbackSchema("Schema inference failed. Please review the tool output manually.")
	}

	c.log.Info("Successfully inferred schema", "tool", toolName)
	return schema
}

// unfence returns the body of the first ```json block, else of the first
// ``` block, else text unchanged.
func unfence(text string) string {
	for _, fence := range []string{"```json", "```"} {
		if _, after, ok := strings.Cut(text, fence); ok {
			body, _, _ := strings.Cut(after, "```")
			return strings.TrimSpace(body)
		}
	}
	return text
}

func fallbackSchema(description string) map[string]any {
	return map[string]any{
		"type":        "object",
		"description": description,
	}
}
