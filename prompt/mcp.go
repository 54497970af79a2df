package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"pixie/model"
)

// FollowUpRequest is the user turn appended after tool results so the model
// answers the original question rather than echoing the results.
const FollowUpRequest = "Based on the tool execution results, provide a helpful response to my original question."

// BuildToolDecision returns the system prompt asking the model to pick tool
// calls as a bare JSON array.
func BuildToolDecision(tools []model.ToolDescriptor) string {
	var lines []string
	for _, t := range tools {
		desc := t.Description
		if desc == "" {
			desc = "No description"
		}
		line := fmt.Sprintf("- %s: %s", t.Name, desc)
		if t.Title != "" {
			line += fmt.Sprintf(" (Title: %s)", t.Title)
		}
		lines = append(lines, line)
	}

	toolsSection := noTools
	if len(lines) > 0 {
		toolsSection = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`You are an AI assistant that helps users by calling appropriate tools from an MCP server.

Available Tools:
%s

Your task:
1. Analyze the user's message
2. Determine if any tools should be called to help answer the user's question
3. If tools are needed, decide which tool(s) to call and what arguments to pass
4. Return your decision as a JSON array of tool calls

Response Format:
Return ONLY a valid JSON array. Each tool call should have:
- "tool_name": The exact name of the tool to call
- "arguments": A dictionary of arguments to pass to the tool (must match the tool's inputSchema)

Example response:
[
  {
    "tool_name": "greet",
    "arguments": {"name": "Alice"}
  }
]

If no tools are needed, return an empty array: []

Important:
- Only call tools that are actually needed to answer the user's question
- Ensure all arguments match the tool's inputSchema
- You can call multiple tools if needed
- If the user's message doesn't require any tool calls, return an empty array`, toolsSection)
}

// ToolSynthesisSystem is the system prompt for answering from tool results.
const ToolSynthesisSystem = `You are a helpful AI assistant that uses tools to answer user questions.

When you receive tool call results without any resource with uri starting with 'ui://', analyze them and provide a clear, short and helpful response to the user's question.

Guidelines:
- If tool result contains resource with uri starting with 'ui://', do not provide any additional text.
- Be concise and to the point
- Format your response using Markdown syntax for better readability
- Use Markdown formatting: **bold**, *italic*, ` + "`code`" + `, lists, headers, etc.
- Do NOT include HTML tags or React components
- If tool calls failed, explain what went wrong
- If multiple tools were called, synthesize the results into a coherent answer`

// FormatToolResults renders executed calls as the assistant turn fed back
// to the model.
func FormatToolResults(records []model.ToolCallRecord) string {
	var b strings.Builder
	b.WriteString("Tool execution results:\n")
	for _, r := range records {
		fmt.Fprintf(&b, "\nTool: %s\n", r.ToolName)
		args, err := json.MarshalIndent(r.Arguments, "", "  ")
		if err != nil || r.Arguments == nil {
			args = []byte("{}")
		}
		fmt.Fprintf(&b, "Arguments: %s\n", args)
		if r.Error != nil && *r.Error != "" {
			fmt.Fprintf(&b, "Error: %s\n", *r.Error)
		} else {
			fmt.Fprintf(&b, "Result: %s\n", r.ResultOrError())
		}
	}
	return b.String()
}

// ToolFallbackAnswer is the deterministic answer used when synthesis fails.
func ToolFallbackAnswer(userMessage string, records []model.ToolCallRecord) string {
	if len(records) == 0 {
		return fmt.Sprintf("Thank you for your message: '%s'. I encountered an error while processing your request.", userMessage)
	}

	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.ToolName, r.ResultOrError()))
	}
	return fmt.Sprintf("I executed the following tools:\n%s\n\nBased on the results, here's the answer to your question: '%s'",
		strings.Join(lines, "\n"), userMessage)
}

// NoToolsAnswer is the reply when no model is configured and no tool ran.
func NoToolsAnswer(userMessage string) string {
	return fmt.Sprintf("Thank you for your message: '%s'. I don't have any tools available to help with this request.", userMessage)
}
