// Package prompt assembles the system and user prompts sent to the model.
//
// Every builder is a pure function of its inputs: identical inputs produce
// byte-identical prompts, and only enabled tools are ever described.
// Long user-supplied text is truncated by character count.
package prompt

import (
	"fmt"
	"strings"

	"pixie/model"
)

const noTools = "No tools available."

// BuildTextResponse returns the system prompt for the short follow-up
// suggestions that accompany a generated UI. userMessage is the request,
// optionally with the generated HTML spliced in by the caller.
func BuildTextResponse(userMessage string, tools []model.ToolDescriptor) string {
	var details []string
	for _, t := range model.EnabledTools(tools) {
		info := fmt.Sprintf("- Tool ID: %s\n- Tool Name: %s\n- Tool Description: %s", t.ID, t.Name, t.Description)
		if t.Title != "" {
			info += "\n- Tool Title: " + t.Title
		}
		details = append(details, info)
	}

	toolsSection := noTools
	if len(details) > 0 {
		toolsSection = strings.Join(details, "\n\n")
	}

	return fmt.Sprintf(`You are an assistant helping users create a UI based on the few tools. Look at the HTML content generated for the user's request and suggest top 2-3 improvements that user can do next to improve the html content further.

# User's Request and generated HTML content:
%s

# Tool Details:
%s

CRITICAL OUTPUT REQUIREMENTS:
- The response MUST be concise and to the point and MUST ONLY suggest top 2-3 improvements that user can do next to improve the html content further.
- Format your response using Markdown syntax for better readability
- Use Markdown formatting: **bold**, *italic*, `+"`code`"+`, lists, headers, etc.
- Do not include code examples in your response.
- Do NOT include HTML tags, JSX or React components (the UI is generated separately)
- Keep responses conversational and well-formatted with Markdown

MARKDOWN FORMATTING GUIDELINES:
- Use **bold** for emphasis on important points
- Use `+"`backticks`"+` for inline code, function names, or technical terms
- Use bullet points (-) or numbered lists for multiple items
- Use headers (# ##) sparingly for sections if needed
- Keep formatting clean and readable

Provide helpful, accurate, markdown-formatted responses.`, userMessage, toolsSection)
}

// Truncate cuts s to at most n characters (runes, not bytes).
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
