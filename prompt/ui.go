package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"pixie/model"
)

const (
	// MaxContextChars caps the conversation history embedded in the UI prompt.
	MaxContextChars = 1000
	// MaxExistingHTMLChars caps the current widget markup embedded when editing.
	MaxExistingHTMLChars = 8000
)

// SDKScriptPath is the host SDK every generated document must load.
const SDKScriptPath = "/client/pixie-apps-sdk.bundle.js"

// BuildUIGeneration returns the system prompt for generating or editing a
// widget document. Exactly one of the edit and create blocks is included,
// selected by hasExistingUI.
func BuildUIGeneration(tools []model.ToolDescriptor, userMessage, conversationContext string, hasExistingUI bool, designs model.DesignSet) string {
	var b strings.Builder

	b.WriteString("You are an expert React UI component generator. Your task is to generate production-ready, bug-free HTML with embedded React components.\n\n")
	b.WriteString("CONTEXT:\n- Tools:\n")
	b.WriteString(uiToolsSection(tools))
	b.WriteString("\n- User's Request: ")
	b.WriteString(userMessage)
	b.WriteString("\n- Conversation History: ")
	b.WriteString(Truncate(conversationContext, MaxContextChars))
	b.WriteString(designsSection(designs))
	b.WriteString("\n\n")

	if hasExistingUI {
		b.WriteString(editBlock)
	} else {
		b.WriteString(createBlock)
	}

	b.WriteString(qualityBlock)
	b.WriteString(outputBlock)
	return b.String()
}

// BuildUIUserMessage returns the text of the UI generation user turn. When
// existingHTML is set it is embedded, truncated, as the ground truth to edit;
// otherwise the model is reminded how to use attached design images.
func BuildUIUserMessage(userMessage, existingHTML string) string {
	if existingHTML != "" {
		return fmt.Sprintf(`Update the existing React HTML UI based on the user's request: %s

Here is the CURRENT HTML of the widget. Apply ONLY the requested change and return the complete updated document:

%s`, userMessage, Truncate(existingHTML, MaxExistingHTMLChars))
	}

	return fmt.Sprintf(`Generate a new React HTML UI for tools based on the user's request: %s

IMPORTANT: If design images (logos or UX designs) are included in this message, use them as visual inspiration for:
- Color schemes and palette
- Typography and font choices
- Layout patterns and component styles
- Overall aesthetic and visual hierarchy
- Brand identity elements`, userMessage)
}

// BuildUIUserContent returns the multimodal user turn: the text from
// BuildUIUserMessage followed by one image part per logo, then per UX design.
func BuildUIUserContent(userMessage, existingHTML string, designs model.DesignSet) model.ChatMessage {
	text := BuildUIUserMessage(userMessage, existingHTML)
	if designs.Empty() {
		return model.TextMessage(model.RoleUser, text)
	}

	parts := []model.ContentPart{{Type: model.PartText, Text: text}}
	for _, group := range [][]model.DesignAsset{designs.Logos, designs.UXDesigns} {
		for _, d := range group {
			parts = append(parts, model.ContentPart{Type: model.PartImage, ImageURL: d.DataURL()})
		}
	}
	return model.ChatMessage{Role: model.RoleUser, Parts: parts}
}

func uiToolsSection(tools []model.ToolDescriptor) string {
	var details []string
	for _, t := range model.EnabledTools(tools) {
		var info strings.Builder
		fmt.Fprintf(&info, "\n    - Tool ID: %s\n    - Tool Name: %s\n    - Tool Description: %s", t.ID, t.Name, t.Description)
		if t.Title != "" {
			fmt.Fprintf(&info, "\n    - Tool Title: %s", t.Title)
		}
		if len(t.InputSchema) > 0 {
			fmt.Fprintf(&info, "\n    - Input Schema (JSON Schema for parameters):\n%s", indentJSON(t.InputSchema))
		}
		if len(t.OutputSchema) > 0 {
			fmt.Fprintf(&info, "\n    - Output Schema (JSON Schema for return value):\n%s", indentJSON(t.OutputSchema))
		}
		details = append(details, info.String())
	}
	if len(details) == 0 {
		return noTools
	}
	return strings.Join(details, "\n\n")
}

func indentJSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

func designsSection(designs model.DesignSet) string {
	if designs.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n- Available Designs for Visual Inspiration:\n")

	if len(designs.Logos) > 0 {
		b.WriteString("  * Logos (included as images in the message - you can see them visually):\n")
		writeAssets(&b, designs.Logos)
		b.WriteString(`    CRITICAL: These logo images are included in the message content as image blocks. You MUST:
    - Look at these logos to understand the brand identity, color scheme, and visual style
    - Use these logos as visual inspiration for the UI design (colors, style, branding elements)
    - Incorporate the logos directly into the generated UI by converting them to base64 data URLs in <img> tags
    - Match the color palette, typography, and overall aesthetic from these logos
`)
	}

	if len(designs.UXDesigns) > 0 {
		b.WriteString("  * UX Designs (included as images in the message - you can see them visually):\n")
		writeAssets(&b, designs.UXDesigns)
		b.WriteString(`    CRITICAL: These UX design images are included in the message content as image blocks. You MUST:
    - Study these UX designs carefully to understand the layout patterns, component styles, and visual hierarchy
    - Use these designs as visual inspiration for layout, spacing, typography, and component design
    - Match the overall aesthetic, color schemes, and design patterns shown in these images
    - Adapt the design principles (not copy exactly) to create a cohesive UI that matches the visual style
`)
	}

	return b.String()
}

func writeAssets(b *strings.Builder, assets []model.DesignAsset) {
	for _, d := range assets {
		fmt.Fprintf(b, "    - %s (%s, %d bytes)\n", d.Filename, d.ContentType, d.FileSize)
	}
}

const editBlock = `
CRITICAL - MODIFYING EXISTING UI - ABSOLUTE REQUIREMENTS:

THERE IS AN EXISTING UI. YOU MUST FOLLOW THESE RULES WITH ABSOLUTE PRECISION.

Step 1: Read the user's request carefully and identify EXACTLY what they want changed
Step 2: Locate the EXACT code section in the existing HTML that needs modification
Step 3: Make ONLY the minimal change required - nothing more
Step 4: Copy ALL other code exactly as it appears - character by character
Step 5: Verify that your change doesn't affect any other part of the code
Step 6: Ensure the change integrates seamlessly without breaking anything

## EXAMPLES OF CORRECT BEHAVIOR
   User: "change the button color to blue"
   ✓ CORRECT: Find the button, change ONLY its color property, keep everything else identical
   ✗ WRONG: Change button color AND modify layout, spacing, or other styles

   User: "add a new input field"
   ✓ CORRECT: Add ONLY the new input field, keep all existing fields and code unchanged
   ✗ WRONG: Add input field AND modify existing fields, styles, or structure

   User: "remove the header"
   ✓ CORRECT: Remove ONLY the header element, keep everything else exactly as it was
   ✗ WRONG: Remove header AND modify layout, spacing, or other components

REMEMBER: Your ONLY job is to make the EXACT change requested. Everything else must remain IDENTICAL to the existing code.
`

const createBlock = `
CREATING A NEW UI:

There is no existing UI for this widget. Build a complete document from scratch:
- Design the layout around the tools listed above and the user's request
- Wire every interactive element that needs data to the matching tool
- Show loading and error states while tool calls are in flight
- Keep the interface focused: one clear primary action, compact secondary details
`

const qualityBlock = `
CODE QUALITY REQUIREMENTS (CRITICAL - FOLLOW STRICTLY):

1. STRUCTURAL VALIDITY:
   - Every opening tag MUST have a matching closing tag
   - All JSX expressions MUST be properly closed: <Component /> or <Component></Component>
   - All function calls and object literals MUST have balanced braces { }
   - All parentheses must be balanced
   - DO NOT leave components or functions incomplete

2. REACT SPECIFIC RULES:
   - Use React.createElement syntax OR JSX with Babel standalone
   - All component definitions MUST be complete (opening and closing)
   - All useState, useEffect, and other hooks MUST have complete implementations
   - All event handlers must be fully defined
   - All conditional rendering ({condition && <Component />} or {condition ? <A /> : <B />}) must be properly closed

3. JAVASCRIPT VALIDITY:
   - All functions must have complete bodies (no truncated code)
   - All object literals must have balanced braces
   - All arrays must have balanced brackets
   - All template literals (backticks) must be properly closed
   - All strings must have matching quotes

4. HTML STRUCTURE:
   - MUST include complete <!DOCTYPE html> declaration
   - MUST include opening <html> tag with lang attribute
   - MUST include complete <head> section with:
     * <meta charset="UTF-8">
     * <meta name="viewport" content="width=device-width, initial-scale=1.0">
     * <title> tag with appropriate title
     * React CDN scripts (react@18, react-dom@18)
     * Babel standalone for JSX transformation
     * <script src="` + SDKScriptPath + `"></script> (REQUIRED - must be included)
     * Any additional libraries (Chart.js, etc.) if needed
   - MUST include complete <body> section
   - MUST include <div id="root"></div> for React mounting
   - MUST include complete <script type="text/babel"> section
   - MUST close all tags: </script>, </body>, </html>
   - MUST ensure html content height is less than 500px

5. COMPLETENESS CHECKS:
   - Before finishing, count all opening and closing tags - they MUST match
   - Verify all React components render properly (must call ReactDOM.render at the end)
   - Ensure all imported libraries are actually used or remove unused imports
   - All CSS classes referenced in JSX must be defined in <style> tag
   - All JavaScript variables referenced must be defined

6. FUNCTIONAL REQUIREMENTS:
   - Code MUST be immediately runnable in a browser
   - No syntax errors that would prevent execution
   - All interactive elements must have proper event handlers
   - Error handling for edge cases (empty arrays, null values, etc.)

7. TOOL CALLING (CRITICAL):
   - The PixieAppsSdk bundle provides window.pixie object with tool calling capabilities
   - To call tools, use: window.pixie.callTool(tool_name, tool_params)
   - Example: window.pixie.callTool('get_weather', { location: 'New York' })
   - Look at the output Schema for the tool to understand the expected output structure.
   - Always handle tool calls with async/await or .then()/.catch()
   - The PixieAppsSdk automatically initializes and attaches to window.pixie when the script loads
   - Available tool names are listed in the Tools section above - use the exact Tool Name when calling

8. CODE GENERATION PROCESS:
   - Write code step-by-step, ensuring each section is complete before moving on
   - After writing each major section (HTML structure, React components, styling), verify it's complete
   - Before outputting, mentally trace through the code structure:
     * Count opening/closing tags
     * Verify all functions are complete
     * Ensure React component tree is complete
     * Check that all required imports are present`

const outputBlock = `

OUTPUT FORMAT REQUIREMENTS:
- Return ONLY raw HTML code starting with <!DOCTYPE html>
- NO markdown code blocks (no ` + "```html or ```" + ` markers)
- NO explanatory text before or after the HTML
- NO comments like "Here's the HTML:" or "Here's the updated code:"
- NO code comments explaining what you did
- The response must START with <!DOCTYPE html> or <html
- The response must END with </html>
- Return the complete, valid HTML document with no wrapping text

VALIDATION CHECKLIST (apply before outputting):
[ ] All HTML tags are properly closed
[ ] All JSX components are complete
[ ] All JavaScript functions have complete bodies
[ ] ReactDOM.render() is called with proper component
[ ] All braces, brackets, and parentheses are balanced
[ ] All strings are properly quoted and closed
[ ] Document has <!DOCTYPE html>, <html>, <head>, <body> tags
[ ] All CDN scripts are included and properly closed
[ ] <script src="` + SDKScriptPath + `"></script> is included in <head>
[ ] Tool calls use window.pixie.callTool(tool_name, tool_params) syntax
[ ] <div id="root"> exists and React component renders into it
[ ] The total height of the page should be less than 500px

PIXIEAPPS SDK INFORMATION:
The PixieAppsSdk bundle (` + SDKScriptPath + `) provides:
- window.pixie.callTool(name, params): Call tools asynchronously (returns Promise)
- window.pixie.sendFollowUpMessage({ prompt }): Send follow-up messages
- window.pixie.openExternal({ href }): Open external links
- window.pixie.toolInput: Access tool input parameters
- window.pixie.toolOutput: Access tool output data
- window.pixie.widgetState: Access and modify widget state
- window.pixie.setWidgetState(state): Update widget state
- window.pixie.theme: Current theme ('light' or 'dark')
- window.pixie.locale: Current locale
- window.pixie.userAgent: User agent information

When calling tools:
1. Use the exact Tool Name from the Tools section above
2. Pass tool parameters as an object: { param1: value1, param2: value2 }
3. Handle the Promise response: const result = await window.pixie.callTool('tool_name', { param: value })
4. Always include error handling for tool calls`
