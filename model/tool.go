package model

// ToolDescriptor describes a callable tool bound to a widget. Name is the
// call key; Title is for display only.
type ToolDescriptor struct {
	ID           string
	ToolkitID    string
	Name         string
	Title        string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
	IsEnabled    bool
}

// EnabledTools returns the subset of tools with IsEnabled set, preserving
// order. Prompts must only ever be built from this subset.
func EnabledTools(tools []ToolDescriptor) []ToolDescriptor {
	enabled := make([]ToolDescriptor, 0, len(tools))
	for _, t := range tools {
		if t.IsEnabled {
			enabled = append(enabled, t)
		}
	}
	return enabled
}

// ToolCallDecision is one entry of the model's tool-decision JSON array.
type ToolCallDecision struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolCallRecord is the transient outcome of executing one tool call.
// Exactly one of Result and Error is set.
type ToolCallRecord struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
	Result    *string        `json:"result,omitempty"`
	Error     *string        `json:"error,omitempty"`
}

// ResultOrError returns the result text, else the error text, else "No result".
func (r ToolCallRecord) ResultOrError() string {
	switch {
	case r.Result != nil && *r.Result != "":
		return *r.Result
	case r.Error != nil:
		return *r.Error
	}
	return "No result"
}
