package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"pixie/model"
)

// ConvertTools maps listed MCP tools to client-facing Tool values, keeping
// title and outputSchema when the server provides them.
func ConvertTools(mcpTools []mcptypes.Tool) []Tool {
	tools := make([]Tool, 0, len(mcpTools))
	for _, t := range mcpTools {
		tools = append(tools, ConvertTool(t))
	}
	return tools
}

// ConvertTool goes through the tool's JSON form so raw and structured
// schemas are handled alike.
func ConvertTool(t mcptypes.Tool) Tool {
	tool := Tool{
		Name:        t.Name,
		Description: t.Description,
	}

	var doc struct {
		Title       string         `json:"title"`
		InputSchema map[string]any `json:"inputSchema"`
		Output      map[string]any `json:"outputSchema"`
		Annotations struct {
			Title string `json:"title"`
		} `json:"annotations"`
	}
	if raw, err := json.Marshal(t); err == nil {
		_ = json.Unmarshal(raw, &doc)
	}

	tool.Title = doc.Title
	if tool.Title == "" {
		tool.Title = doc.Annotations.Title
	}
	tool.InputSchema = doc.InputSchema
	if tool.InputSchema == nil {
		tool.InputSchema = map[string]any{}
	}
	if typ, _ := doc.Output["type"].(string); typ != "" {
		tool.OutputSchema = doc.Output
	}
	return tool
}

// Descriptors adapts tools for the prompt builders. Tools from a live server
// are always enabled.
func Descriptors(tools []Tool) []model.ToolDescriptor {
	out := make([]model.ToolDescriptor, 0, len(tools))
	for _, t := range tools {
		out = append(out, model.ToolDescriptor{
			Name:         t.Name,
			Title:        t.Title,
			Description:  t.Description,
			InputSchema:  t.InputSchema,
			OutputSchema: t.OutputSchema,
			IsEnabled:    true,
		})
	}
	return out
}

// ResultText flattens a tool result to one string: text parts joined by
// newlines, or the whole result as JSON when there are none.
func ResultText(res *mcptypes.CallToolResult) string {
	if res == nil {
		return ""
	}

	var texts []string
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcptypes.TextContent:
			texts = append(texts, tc.Text)
		case *mcptypes.TextContent:
			texts = append(texts, tc.Text)
		}
	}
	if len(texts) > 0 {
		return strings.Join(texts, "\n")
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Sprintf("%v", res)
	}
	return string(raw)
}
