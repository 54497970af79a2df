package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pixie/model"
	"pixie/provider/testutil"
)

type fakeResources struct {
	latest *model.StoredResource
	err    error
}

func (f fakeResources) LatestByWidget(ctx context.Context, widgetID string) (*model.StoredResource, error) {
	return f.latest, f.err
}

type fakeDesigns struct {
	byType map[model.DesignType][]model.DesignAsset
	err    error
}

func (f fakeDesigns) ListByType(ctx context.Context, t model.DesignType) ([]model.DesignAsset, error) {
	return f.byType[t], f.err
}

// branchProvider answers the UI branch and the text branch separately, told
// apart by temperature.
func branchProvider(ui, text testutil.Response) *testutil.MockProvider {
	mock := testutil.NewMockProvider("mock-model")
	mock.GenerateFunc = func(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error) {
		r := text
		if req.Temperature == uiTemperature {
			r = ui
		}
		return r.Text, r.Usage, r.Err
	}
	return mock
}

func stopUsage() model.Usage {
	return model.Usage{FinishReason: model.FinishStop}
}

func tools() []model.ToolDescriptor {
	return []model.ToolDescriptor{
		{ID: "1", Name: "list_orders", Description: "Orders", IsEnabled: true},
		{ID: "2", Name: "drop_tables", Description: "Hidden", IsEnabled: false},
	}
}

func TestConversationContextRoundTrip(t *testing.T) {
	previous := []model.Message{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	}

	ctxText := BuildConversationContext(previous)
	assert.Equal(t, "User: hi\nAssistant: hello", ctxText)

	assert.Equal(t, []model.ChatMessage{
		model.TextMessage(model.RoleUser, "hi"),
		model.TextMessage(model.RoleAssistant, "hello"),
	}, ParseConversation(ctxText))

	assert.Equal(t, NoHistory, BuildConversationContext(nil))
	assert.Empty(t, ParseConversation(NoHistory))
}

func TestParseConversation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []model.ChatMessage
	}{
		{"blank lines skipped", "User: a\n\n  \nAssistant: b", []model.ChatMessage{
			model.TextMessage(model.RoleUser, "a"),
			model.TextMessage(model.RoleAssistant, "b"),
		}},
		{"unknown role dropped", "Tool: x\nSystem: s", []model.ChatMessage{
			model.TextMessage(model.RoleSystem, "s"),
		}},
		{"content keeps later separators", "User: key: value", []model.ChatMessage{
			model.TextMessage(model.RoleUser, "key: value"),
		}},
		{"no separator", "just words", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseConversation(tt.in))
		})
	}
}

func TestGenerateResponse(t *testing.T) {
	p := branchProvider(
		testutil.Response{Text: "```html\n" + testutil.MinimalReactHTML + "\n```", Usage: stopUsage()},
		testutil.Response{Text: "**Try** adding a filter.", Usage: stopUsage()},
	)
	c := NewLlmChat(p, nil, nil, 500)

	text, res := c.GenerateResponse(context.Background(), "w1", tools(), "show orders", []model.Message{
		{Role: model.RoleUser, Content: "earlier"},
	})

	assert.Equal(t, "**Try** adding a filter.", text)
	require.NotNil(t, res)
	assert.Equal(t, "resource", res.Type)
	assert.Equal(t, "ui://widget/w1", res.Resource.URI)
	assert.Equal(t, model.HTMLMimeType, res.Resource.MimeType)
	assert.Equal(t, testutil.MinimalReactHTML, res.HTML())

	calls := p.Calls()
	require.Len(t, calls, 2)

	ui := calls[0]
	assert.Equal(t, 500, ui.MaxTokens)
	assert.Contains(t, ui.System, "CREATING A NEW UI")
	assert.NotContains(t, ui.System, "drop_tables")
	require.Len(t, ui.Messages, 1)

	txt := calls[1]
	assert.Equal(t, textMaxTokens, txt.MaxTokens)
	require.Len(t, txt.Messages, 2)
	assert.Equal(t, model.TextMessage(model.RoleUser, "earlier"), txt.Messages[0])
	last := txt.Messages[1].Content
	assert.True(t, strings.HasPrefix(last, "Required UI description or improvements to the HTML content: show orders"))
	assert.Contains(t, last, "Following is the HTML content generated for the user's request: <!DOCTYPE html>")
	assert.NotContains(t, txt.System, "drop_tables")
}

func TestGenerateResponseTextFailureStillReturnsUI(t *testing.T) {
	p := branchProvider(
		testutil.Response{Text: testutil.MinimalReactHTML, Usage: stopUsage()},
		testutil.Response{Err: errors.New("rate limited")},
	)
	c := NewLlmChat(p, nil, nil, 0)

	text, res := c.GenerateResponse(context.Background(), "w1", tools(), "x", nil)

	assert.Equal(t, Apology, text)
	require.NotNil(t, res)
	assert.Equal(t, testutil.MinimalReactHTML, res.HTML())
}

func TestGenerateResponseUIFailure(t *testing.T) {
	p := branchProvider(
		testutil.Response{Err: errors.New("boom")},
		testutil.Response{Text: "plain reply", Usage: stopUsage()},
	)
	c := NewLlmChat(p, nil, nil, 0)

	text, res := c.GenerateResponse(context.Background(), "w1", nil, "make a chart", nil)

	assert.Nil(t, res)
	assert.Equal(t, "plain reply", text)
	assert.Equal(t, "make a chart", p.LastCall().Messages[0].Content, "no HTML should be spliced in")
}

func TestGenerateResponseStripsMarkupFromText(t *testing.T) {
	p := branchProvider(
		testutil.Response{Text: testutil.MinimalReactHTML, Usage: stopUsage()},
		testutil.Response{Text: "<p>Use <b>filters</b></p>", Usage: stopUsage()},
	)
	text, _ := NewLlmChat(p, nil, nil, 0).GenerateResponse(context.Background(), "w", nil, "x", nil)
	assert.Equal(t, "Use filters", text)
}

func TestGenerateResponseEditsExistingUI(t *testing.T) {
	stored, err := json.Marshal(model.NewWidgetResource("w1", "<html>OLD</html>"))
	require.NoError(t, err)

	p := branchProvider(
		testutil.Response{Text: testutil.MinimalReactHTML, Usage: stopUsage()},
		testutil.Response{Text: "done", Usage: stopUsage()},
	)
	c := NewLlmChat(p, fakeResources{latest: &model.StoredResource{Resource: stored}}, nil, 0)
	c.GenerateResponse(context.Background(), "w1", nil, "make it red", nil)

	ui := p.Calls()[0]
	assert.Contains(t, ui.System, "MODIFYING EXISTING UI")
	assert.Contains(t, ui.Messages[0].Text(), "<html>OLD</html>")
}

func TestGenerateResponseToleratesResourceLookupFailure(t *testing.T) {
	p := branchProvider(
		testutil.Response{Text: testutil.MinimalReactHTML, Usage: stopUsage()},
		testutil.Response{Text: "ok", Usage: stopUsage()},
	)
	c := NewLlmChat(p, fakeResources{err: errors.New("db down")}, fakeDesigns{err: errors.New("db down")}, 0)

	text, res := c.GenerateResponse(context.Background(), "w1", nil, "x", nil)
	assert.Equal(t, "ok", text)
	assert.NotNil(t, res)
	assert.Contains(t, p.Calls()[0].System, "CREATING A NEW UI")
}

func TestSelectDesigns(t *testing.T) {
	img := func(id string, size int64) model.DesignAsset {
		return model.DesignAsset{ID: id, ContentType: "image/png", FileSize: size, Data: []byte{1}}
	}
	logos := []model.DesignAsset{
		img("l0", 10),
		img("big", maxDesignBytes),
		img("l2", 10),
		{ID: "txt", ContentType: "text/plain", FileSize: 10},
		img("l4", 10),
		img("l5", 10),
	}
	ux := []model.DesignAsset{img("u0", 1), img("u1", 1)}

	c := NewLlmChat(testutil.NewMockProvider("m"), nil, fakeDesigns{byType: map[model.DesignType][]model.DesignAsset{
		model.DesignLogo:     logos,
		model.DesignUXDesign: ux,
	}}, 0)

	set := c.SelectDesigns(context.Background())

	var ids []string
	for _, d := range set.Logos {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"l0", "l2", "l4"}, ids)
	assert.Len(t, set.UXDesigns, 2)
}

func TestSelectDesignsOnlyConsidersFiveNewest(t *testing.T) {
	logos := []model.DesignAsset{
		{ID: "a", ContentType: "application/pdf"},
		{ID: "b", ContentType: "application/pdf"},
		{ID: "c", ContentType: "application/pdf"},
		{ID: "d", ContentType: "application/pdf"},
		{ID: "e", ContentType: "image/png"},
		{ID: "f", ContentType: "image/png"},
	}
	c := NewLlmChat(testutil.NewMockProvider("m"), nil, fakeDesigns{byType: map[model.DesignType][]model.DesignAsset{
		model.DesignLogo: logos,
	}}, 0)

	set := c.SelectDesigns(context.Background())
	require.Len(t, set.Logos, 1)
	assert.Equal(t, "e", set.Logos[0].ID)
}

func TestGenerateResponseSendsDesignImages(t *testing.T) {
	p := branchProvider(
		testutil.Response{Text: testutil.MinimalReactHTML, Usage: stopUsage()},
		testutil.Response{Text: "ok", Usage: stopUsage()},
	)
	designs := fakeDesigns{byType: map[model.DesignType][]model.DesignAsset{
		model.DesignLogo:     {{ID: "l", Filename: "logo.png", ContentType: "image/png", FileSize: 3, Data: []byte{1, 2, 3}}},
		model.DesignUXDesign: {{ID: "u", Filename: "ux.jpg", ContentType: "image/jpeg", FileSize: 1, Data: []byte{9}}},
	}}
	NewLlmChat(p, nil, designs, 0).GenerateResponse(context.Background(), "w", nil, "x", nil)

	ui := p.Calls()[0]
	assert.Contains(t, ui.System, "logo.png (image/png, 3 bytes)")
	assert.Equal(t, []string{"data:image/png;base64,AQID", "data:image/jpeg;base64,CQ=="}, ui.Messages[0].Images())
}

func TestInferOutputSchema(t *testing.T) {
	tests := []struct {
		name  string
		reply testutil.Response
		want  map[string]any
	}{
		{
			name:  "json fence",
			reply: testutil.Response{Text: "Here:\n```json\n{\"type\": \"array\"}\n```\nbye"},
			want:  map[string]any{"type": "array"},
		},
		{
			name:  "bare fence",
			reply: testutil.Response{Text: "```\n{\"type\": \"string\"}\n```"},
			want:  map[string]any{"type": "string"},
		},
		{
			name:  "unfenced",
			reply: testutil.Response{Text: `{"type": "object"}`},
			want:  map[string]any{"type": "object"},
		},
		{
			name:  "not json",
			reply: testutil.Response{Text: "I think it is an object"},
			want: map[string]any{
				"type":        "object",
				"description": "Schema inference failed. Please review the tool output manually.",
			},
		},
		{
			name:  "provider error",
			reply: testutil.Response{Err: errors.New("timeout")},
			want: map[string]any{
				"type":        "object",
				"description": "Schema inference failed: timeout",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.NewScriptedProvider(tt.reply)
			got := NewLlmChat(p, nil, nil, 0).InferOutputSchema(context.Background(), "get_x", "desc", map[string]any{"a": 1})
			assert.Equal(t, tt.want, got)

			call := p.LastCall()
			assert.Equal(t, schemaMaxTokens, call.MaxTokens)
			assert.Contains(t, call.Messages[1].Content, "- Name: get_x")
		})
	}
}
