// Package mcp connects to MCP servers and answers chat turns by letting the
// model pick tool calls, running them on the owning server and summarising
// the results.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"pixie/config"
	"pixie/model"
	"pixie/prompt"
)

const (
	decisionMaxTokens    = 1000
	decisionTemperature  = 0.0
	synthesisMaxTokens   = 2000
	synthesisTemperature = 1.0
)

var decisionFence = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// Service is the tool-calling orchestrator. A nil provider is allowed: no
// tools are called and answers fall back to templates.
type Service struct {
	provider model.Provider
	log      *slog.Logger
}

func NewService(p model.Provider) *Service {
	return &Service{provider: p, log: config.Logger("mcp")}
}

// DecideToolCalls asks the model which tools to call. Anything other than a
// JSON array, including provider failure, means no calls.
func (s *Service) DecideToolCalls(ctx context.Context, userMessage string, tools []Tool, history []model.ChatMessage) []model.ToolCallDecision {
	if s.provider == nil {
		s.log.Warn("No LLM client available, skipping tool calls")
		return nil
	}

	text, _, err := s.provider.Generate(ctx, model.GenerateRequest{
		Messages:    withoutSystem(history, model.TextMessage(model.RoleUser, userMessage)),
		System:      prompt.BuildToolDecision(Descriptors(tools)),
		Temperature: decisionTemperature,
		MaxTokens:   decisionMaxTokens,
	})
	if err != nil {
		s.log.Error("Error getting tool calling decision from LLM", "error", err)
		return nil
	}
	s.log.Info("LLM tool calling decision", "response", prompt.Truncate(text, 200))

	calls, err := ParseToolDecision(text)
	if err != nil {
		s.log.Warn("Failed to parse LLM tool calling response", "error", err, "response", text)
		return nil
	}
	s.log.Info("Parsed tool calls from LLM response", "count", len(calls))
	return calls
}

// ParseToolDecision reads the model's decision: a JSON array of
// {tool_name, arguments}, optionally fenced.
func ParseToolDecision(text string) ([]model.ToolCallDecision, error) {
	if strings.Contains(text, "```") {
		if m := decisionFence.FindStringSubmatch(text); m != nil {
			text = m[1]
		}
	}
	text = strings.TrimSpace(text)

	var probe any
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, err
	}
	if _, ok := probe.([]any); !ok {
		return nil, fmt.Errorf("tool decision is %T, not an array", probe)
	}

	var calls []model.ToolCallDecision
	if err := json.Unmarshal([]byte(text), &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

// ExecuteToolCalls runs each call on the server that owns the tool, in
// order. Failures are recorded on the call's record; the batch always runs
// to the end.
func (s *Service) ExecuteToolCalls(ctx context.Context, routes map[string]ToolCaller, calls []model.ToolCallDecision) []model.ToolCallRecord {
	records := make([]model.ToolCallRecord, 0, len(calls))
	for _, call := range calls {
		args := call.Arguments
		if args == nil {
			args = map[string]any{}
		}

		if call.ToolName == "" {
			s.log.Warn("Skipping tool call without name", "arguments", args)
			records = append(records, failed("unknown", args, "Tool name missing"))
			continue
		}

		caller, ok := routes[call.ToolName]
		if !ok {
			s.log.Warn("Session not found for tool", "tool", call.ToolName)
			records = append(records, failed(call.ToolName, args,
				fmt.Sprintf("Tool '%s' not found in any connected MCP server", call.ToolName)))
			continue
		}

		s.log.Info("Calling tool", "tool", call.ToolName, "arguments", args)
		res, err := caller.CallTool(ctx, mcptypes.CallToolRequest{
			Params: mcptypes.CallToolParams{
				Name:      call.ToolName,
				Arguments: args,
			},
		})
		if err != nil {
			s.log.Error("Error calling tool", "tool", call.ToolName, "error", err)
			records = append(records, failed(call.ToolName, args, err.Error()))
			continue
		}

		text := ResultText(res)
		records = append(records, model.ToolCallRecord{ToolName: call.ToolName, Arguments: args, Result: &text})
		s.log.Info("Tool executed successfully", "tool", call.ToolName, "is_error", res.IsError)
	}
	return records
}

// GenerateResponse writes the final Markdown answer from the tool results.
// It always returns an answer; provider failure degrades to a template.
func (s *Service) GenerateResponse(ctx context.Context, userMessage string, records []model.ToolCallRecord, history []model.ChatMessage) string {
	if s.provider == nil {
		if len(records) == 0 {
			return prompt.NoToolsAnswer(userMessage)
		}
		return prompt.ToolFallbackAnswer(userMessage, records)
	}

	messages := withoutSystem(history, model.TextMessage(model.RoleUser, userMessage))
	if len(records) > 0 {
		messages = append(messages,
			model.TextMessage(model.RoleAssistant, prompt.FormatToolResults(records)),
			model.TextMessage(model.RoleUser, prompt.FollowUpRequest))
	}

	text, _, err := s.provider.Generate(ctx, model.GenerateRequest{
		Messages:    messages,
		System:      prompt.ToolSynthesisSystem,
		Temperature: synthesisTemperature,
		MaxTokens:   synthesisMaxTokens,
	})
	if err != nil {
		s.log.Error("Error generating response", "error", err)
		return prompt.ToolFallbackAnswer(userMessage, records)
	}

	s.log.Info("Generated response", "length", len(text))
	return text
}

func withoutSystem(history []model.ChatMessage, next ...model.ChatMessage) []model.ChatMessage {
	out := make([]model.ChatMessage, 0, len(history)+len(next))
	for _, m := range history {
		if m.Role != model.RoleSystem {
			out = append(out, m)
		}
	}
	return append(out, next...)
}

func failed(name string, args map[string]any, msg string) model.ToolCallRecord {
	return model.ToolCallRecord{ToolName: name, Arguments: args, Error: &msg}
}
