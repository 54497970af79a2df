package mcp

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pixie/model"
	"pixie/prompt"
	"pixie/provider/testutil"
)

type fakeCaller struct {
	text     string
	result   *mcptypes.CallToolResult
	err      error
	closeErr error

	mu     sync.Mutex
	calls  []mcptypes.CallToolRequest
	closed atomic.Bool
}

func (f *fakeCaller) CallTool(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	switch {
	case f.err != nil:
		return nil, f.err
	case f.result != nil:
		return f.result, nil
	}
	return mcptypes.NewToolResultText(f.text), nil
}

func (f *fakeCaller) Close() error {
	f.closed.Store(true)
	return f.closeErr
}

func (f *fakeCaller) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestParseToolDecision(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []model.ToolCallDecision
		wantErr bool
	}{
		{
			name: "bare array",
			text: `[{"tool_name": "greet", "arguments": {"name": "Alice"}}]`,
			want: []model.ToolCallDecision{{ToolName: "greet", Arguments: map[string]any{"name": "Alice"}}},
		},
		{
			name: "fenced",
			text: "Sure:\n```json\n[{\"tool_name\": \"ping\", \"arguments\": {}}]\n```",
			want: []model.ToolCallDecision{{ToolName: "ping", Arguments: map[string]any{}}},
		},
		{name: "empty array", text: "[]", want: []model.ToolCallDecision{}},
		{name: "prose", text: "no tools needed", wantErr: true},
		{name: "object", text: `{"tool_name": "x"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToolDecision(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecideToolCalls(t *testing.T) {
	tools := []Tool{{Name: "search", Description: "Find", Title: "Search"}}
	history := []model.ChatMessage{
		model.TextMessage(model.RoleSystem, "ignored"),
		model.TextMessage(model.RoleUser, "earlier"),
		model.TextMessage(model.RoleAssistant, "reply"),
	}

	p := testutil.NewScriptedProvider(testutil.Response{Text: `[{"tool_name":"search","arguments":{"q":"go"}}]`})
	calls := NewService(p).DecideToolCalls(context.Background(), "find go", tools, history)

	require.Len(t, calls, 1)
	assert.Equal(t, "search", calls[0].ToolName)

	req := p.LastCall()
	assert.Equal(t, decisionMaxTokens, req.MaxTokens)
	assert.Contains(t, req.System, "- search: Find (Title: Search)")
	assert.Equal(t, []model.ChatMessage{
		model.TextMessage(model.RoleUser, "earlier"),
		model.TextMessage(model.RoleAssistant, "reply"),
		model.TextMessage(model.RoleUser, "find go"),
	}, req.Messages)
}

func TestDecideToolCallsDefaultsToNone(t *testing.T) {
	for name, resp := range map[string]testutil.Response{
		"not json":       {Text: "no tools needed"},
		"provider error": {Err: errors.New("down")},
	} {
		t.Run(name, func(t *testing.T) {
			p := testutil.NewScriptedProvider(resp)
			assert.Empty(t, NewService(p).DecideToolCalls(context.Background(), "hi", nil, nil))
		})
	}

	assert.Empty(t, NewService(nil).DecideToolCalls(context.Background(), "hi", nil, nil))
}

func TestExecuteToolCalls(t *testing.T) {
	ok := &fakeCaller{text: "42"}
	broken := &fakeCaller{err: errors.New("connection reset")}
	multi := &fakeCaller{result: &mcptypes.CallToolResult{Content: []mcptypes.Content{
		mcptypes.NewTextContent("a"),
		mcptypes.NewTextContent("b"),
	}}}
	routes := map[string]ToolCaller{"answer": ok, "flaky": broken, "multi": multi}

	records := NewService(nil).ExecuteToolCalls(context.Background(), routes, []model.ToolCallDecision{
		{Arguments: map[string]any{"x": 1}},
		{ToolName: "missing"},
		{ToolName: "flaky"},
		{ToolName: "answer", Arguments: map[string]any{"q": "life"}},
		{ToolName: "multi"},
	})

	require.Len(t, records, 5)

	assert.Equal(t, "unknown", records[0].ToolName)
	assert.Equal(t, "Tool name missing", *records[0].Error)

	assert.Equal(t, "Tool 'missing' not found in any connected MCP server", *records[1].Error)
	assert.Equal(t, map[string]any{}, records[1].Arguments)

	assert.Equal(t, "connection reset", *records[2].Error)
	assert.Nil(t, records[2].Result)

	require.NotNil(t, records[3].Result)
	assert.Equal(t, "42", *records[3].Result)
	assert.Nil(t, records[3].Error)
	assert.Equal(t, "answer", ok.calls[0].Params.Name)

	assert.Equal(t, "a\nb", *records[4].Result)
}

func TestExecuteToolCallsRoutesToLaterServer(t *testing.T) {
	a := &fakeCaller{text: "from A"}
	b := &fakeCaller{text: "from B"}

	store := NewSessionStore()
	s, err := store.Create(&Connection{URL: "http://a", Caller: a, Tools: []Tool{{Name: "search"}, {Name: "only_a"}}})
	require.NoError(t, err)
	store.AddServer(s, &Connection{URL: "http://b", Caller: b, Tools: []Tool{{Name: "search"}}})

	svc := NewService(nil)
	for i := 0; i < 3; i++ {
		records := svc.ExecuteToolCalls(context.Background(), s.Routes(), []model.ToolCallDecision{{ToolName: "search"}})
		assert.Equal(t, "from B", *records[0].Result)
	}
	assert.Equal(t, 0, a.callCount())
	assert.Equal(t, 3, b.callCount())

	records := svc.ExecuteToolCalls(context.Background(), s.Routes(), []model.ToolCallDecision{{ToolName: "only_a"}})
	assert.Equal(t, "from A", *records[0].Result)
	assert.Len(t, s.Tools(), 3)
}

func TestGenerateResponse(t *testing.T) {
	result := "sunny"
	records := []model.ToolCallRecord{{ToolName: "weather", Arguments: map[string]any{}, Result: &result}}
	history := []model.ChatMessage{model.TextMessage(model.RoleSystem, "x"), model.TextMessage(model.RoleUser, "before")}

	p := testutil.NewScriptedProvider(testutil.Response{Text: "It is **sunny**."})
	got := NewService(p).GenerateResponse(context.Background(), "weather?", records, history)
	assert.Equal(t, "It is **sunny**.", got)

	req := p.LastCall()
	assert.Equal(t, prompt.ToolSynthesisSystem, req.System)
	assert.Equal(t, synthesisMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "before", req.Messages[0].Content)
	assert.Equal(t, "weather?", req.Messages[1].Content)
	assert.Equal(t, model.RoleAssistant, req.Messages[2].Role)
	assert.Contains(t, req.Messages[2].Content, "Tool: weather")
	assert.Equal(t, prompt.FollowUpRequest, req.Messages[3].Content)

	p = testutil.NewScriptedProvider(testutil.Response{Text: "hello"})
	NewService(p).GenerateResponse(context.Background(), "hi", nil, nil)
	assert.Len(t, p.LastCall().Messages, 1)
}

func TestGenerateResponseFallbacks(t *testing.T) {
	result := "sunny"
	records := []model.ToolCallRecord{{ToolName: "weather", Result: &result}}

	failing := testutil.NewScriptedProvider(testutil.Response{Err: errors.New("overloaded")})
	assert.Equal(t,
		"I executed the following tools:\n- weather: sunny\n\nBased on the results, here's the answer to your question: 'q'",
		NewService(failing).GenerateResponse(context.Background(), "q", records, nil))
	assert.Equal(t,
		"Thank you for your message: 'q'. I encountered an error while processing your request.",
		NewService(failing).GenerateResponse(context.Background(), "q", nil, nil))
	assert.Equal(t,
		"Thank you for your message: 'q'. I don't have any tools available to help with this request.",
		NewService(nil).GenerateResponse(context.Background(), "q", nil, nil))
}
