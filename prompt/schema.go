package prompt

import (
	"encoding/json"
	"fmt"
)

// SchemaSystem is the system prompt paired with BuildOutputSchemaInference.
const SchemaSystem = "You are a JSON Schema expert. Return only valid JSON."

// BuildOutputSchemaInference asks for a draft-7+ JSON Schema describing a
// sample tool output. The sample is embedded as pretty-printed JSON.
func BuildOutputSchemaInference(toolName, toolDescription string, toolOutput any) string {
	output := fmt.Sprintf("%v", toolOutput)
	if raw, err := json.MarshalIndent(toolOutput, "", "  "); err == nil {
		output = string(raw)
	}

	return fmt.Sprintf(`You are a JSON Schema expert. Your task is to analyze a tool's output and generate a valid JSON Schema that describes its structure.

Tool Information:
- Name: %s
- Description: %s

Tool Output:
%s

CRITICAL REQUIREMENTS:
1. Analyze the structure of the tool output above
2. Generate a valid JSON Schema (draft 7 or later) that accurately describes the output structure
3. Include appropriate types, required fields, descriptions, and constraints
4. For nested objects, include complete schema definitions
5. For arrays, include the schema for array items
6. Use descriptive titles and descriptions for properties when possible
7. The schema should be comprehensive but not overly restrictive

OUTPUT FORMAT:
Return ONLY a valid JSON Schema object. Do not include any markdown formatting, code blocks, or explanatory text.
The response must be valid JSON that can be parsed directly.

Example of expected output format:
{
  "type": "object",
  "properties": {
    "field1": {
      "type": "string",
      "description": "..."
    },
    "field2": {
      "type": "number",
      "description": "..."
    }
  },
  "required": ["field1"]
}

Generate the JSON Schema now:`, toolName, toolDescription, output)
}
