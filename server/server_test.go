package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixie/config"
	"pixie/mcp"
	"pixie/model"
	"pixie/provider/testutil"
	"pixie/storage"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.LLM.OpenAI.APIKey = "sk-test"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, p *testutil.MockProvider) (*Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var (
		prov model.Provider
		svc  *mcp.Service
	)
	if p != nil {
		prov = p
		svc = mcp.NewService(p)
	} else {
		svc = mcp.NewService(nil)
	}
	handler := mcp.NewHandler(svc, mcp.NewSessionStore(), mcp.Dialer(5*time.Second))
	return New(cfg, db, prov, handler), db
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"0.1.0"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWidgetChat(t *testing.T) {
	p := testutil.NewScriptedProvider(
		testutil.Response{
			Text:  "```html\n" + testutil.MinimalReactHTML + "\n```",
			Usage: model.Usage{FinishReason: model.FinishStop},
		},
		testutil.Response{Text: "I built a greeting widget."},
	)
	s, db := newTestServer(t, testConfig(), p)
	ctx := context.Background()

	tool := &model.ToolDescriptor{Name: "greet", Description: "Say hello", IsEnabled: true}
	require.NoError(t, db.CreateTool(ctx, tool))
	require.NoError(t, db.AttachTool(ctx, "w1", tool.ID))

	rec := doJSON(t, s, http.MethodPost, "/api/v1/widgets/w1/chat", chatRequest{Content: "make a greeting"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "I built a greeting widget.", resp.Message.Content)
	assert.Equal(t, "assistant", resp.Message.Role)
	assert.Equal(t, "markdown", resp.ContentFormat)
	require.NotNil(t, resp.UIResource)
	assert.Equal(t, "ui://widget/w1", resp.UIResource.Resource.URI)
	assert.Equal(t, testutil.MinimalReactHTML, resp.UIResource.Resource.Text)
	assert.NotEmpty(t, resp.Message.UIResourceID)

	assert.Contains(t, p.Calls()[0].System, "greet", "enabled tool reaches the UI prompt")

	msgs, err := db.ListMessages(ctx, resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "make a greeting", msgs[0].Content)
	assert.Equal(t, resp.Message.UIResourceID, msgs[1].UIResourceID)

	latest, err := db.LatestByWidget(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, resp.Message.UIResourceID, latest.ID)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/widgets/w1/conversation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"make a greeting"`)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/widgets/w1/resources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resources []resourceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resources))
	require.Len(t, resources, 1)
	assert.Equal(t, testutil.MinimalReactHTML, model.ExtractHTML(resources[0].Resource))
}

func TestWidgetChatProviderFailure(t *testing.T) {
	p := testutil.NewScriptedProvider(testutil.Response{Err: errors.New("boom")})
	s, db := newTestServer(t, testConfig(), p)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/widgets/w1/chat", chatRequest{Content: "hello"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.UIResource)
	assert.Empty(t, resp.Message.UIResourceID)
	assert.NotEmpty(t, resp.Message.Content)

	latest, err := db.LatestByWidget(context.Background(), "w1")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestWidgetChatRejects(t *testing.T) {
	noKeys := config.DefaultConfig()

	tests := []struct {
		name     string
		cfg      *config.Config
		provider *testutil.MockProvider
		body     any
		want     int
	}{
		{"no provider", testConfig(), nil, chatRequest{Content: "hi"}, http.StatusServiceUnavailable},
		{"no keys", noKeys, testutil.NewMockProvider("m"), chatRequest{Content: "hi"}, http.StatusServiceUnavailable},
		{"empty content", testConfig(), testutil.NewMockProvider("m"), chatRequest{Content: "  "}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.cfg, tt.provider)
			rec := doJSON(t, s, http.MethodPost, "/api/v1/widgets/w1/chat", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestWidgetChatOllamaWithoutKeys(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	s, _ := newTestServer(t, cfg, testutil.NewMockProvider("llama"))

	rec := doJSON(t, s, http.MethodPost, "/api/v1/widgets/w1/chat", chatRequest{Content: "hi"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestToolRoutes(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/tools", toolRequest{Name: "search", Description: "Find things"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created toolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.IsEnabled)
	assert.Equal(t, map[string]any{}, created.InputSchema)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/tools", toolRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/widgets/w1/tools/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, s, http.MethodPost, "/api/v1/widgets/w1/tools/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	off := false
	rec = doJSON(t, s, http.MethodPatch, "/api/v1/tools/"+created.ID, toolRequest{IsEnabled: &off})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/widgets/w1/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tools []toolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tools))
	require.Len(t, tools, 1)
	assert.Equal(t, "search", tools[0].Name)
	assert.False(t, tools[0].IsEnabled)
}

func TestInferSchema(t *testing.T) {
	p := testutil.NewScriptedProvider(testutil.Response{
		Text: "```json\n{\"type\":\"object\",\"properties\":{\"temp\":{\"type\":\"number\"}}}\n```",
	})
	s, _ := newTestServer(t, testConfig(), p)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/tools/infer-schema", inferSchemaRequest{
		ToolName:   "get_weather",
		ToolOutput: map[string]any{"temp": 21.5},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"inferred_schema": {"type":"object","properties":{"temp":{"type":"number"}}},
		"tool_output": {"temp": 21.5}
	}`, rec.Body.String())

	rec = doJSON(t, s, http.MethodPost, "/api/v1/tools/infer-schema", inferSchemaRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDesignRoutes(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name string
		body designRequest
		want int
	}{
		{"logo", designRequest{DesignType: model.DesignLogo, Filename: "logo.png", ContentType: "image/png", Data: []byte{1, 2, 3}}, http.StatusCreated},
		{"ux design", designRequest{DesignType: model.DesignUXDesign, ContentType: "image/jpeg", Data: []byte{4}}, http.StatusCreated},
		{"bad type", designRequest{DesignType: "banner", ContentType: "image/png", Data: []byte{1}}, http.StatusBadRequest},
		{"not an image", designRequest{DesignType: model.DesignLogo, ContentType: "application/pdf", Data: []byte{1}}, http.StatusBadRequest},
		{"empty", designRequest{DesignType: model.DesignLogo, ContentType: "image/png"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/v1/designs", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec := doJSON(t, s, http.MethodGet, "/api/v1/designs?type=logo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logos []designResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logos))
	require.Len(t, logos, 1)
	assert.Equal(t, "logo.png", logos[0].Filename)
	assert.Equal(t, int64(3), logos[0].FileSize)

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/designs/"+logos[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/designs/"+logos[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMCPChatWebSocket(t *testing.T) {
	tools := mcpserver.NewMCPServer("tools", "1.0.0")
	tools.AddTool(
		mcptypes.NewTool("ping", mcptypes.WithDescription("Replies with pong")),
		func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
			return mcptypes.NewToolResultText("pong"), nil
		},
	)
	mcpTS := mcpserver.NewTestStreamableHTTPServer(tools)
	defer mcpTS.Close()

	p := testutil.NewScriptedProvider(
		testutil.Response{Text: `[{"tool_name": "ping", "arguments": {}}]`},
		testutil.Response{Text: "The server answered pong."},
	)
	s, _ := newTestServer(t, testConfig(), p)
	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/mcp-chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	send := func(v any) mcp.Response {
		t.Helper()
		require.NoError(t, conn.WriteJSON(v))
		var resp mcp.Response
		require.NoError(t, conn.ReadJSON(&resp))
		return resp
	}

	init := send(mcp.Request{Type: mcp.FrameInit, MCPServer: &mcp.ServerConfig{ServerURL: mcpTS.URL, Transport: mcp.TransportStreamableHTTP}})
	require.Equal(t, mcp.FrameInit, init.Type, init.Content)
	assert.Equal(t, "Connected to MCP server. Found 1 available tool(s). How can I help you?", init.Content)
	assert.Equal(t, 1, s.mcp.Store().Len())

	reply := send(mcp.Request{Type: mcp.FrameMessage, SessionID: init.SessionID, Content: "ping the server"})
	require.Equal(t, mcp.FrameMessage, reply.Type, reply.Content)
	assert.Equal(t, "The server answered pong.", reply.Content)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "pong", *reply.ToolCalls[0].Result)

	bad := send(json.RawMessage(`"not a frame"`))
	assert.Equal(t, mcp.FrameError, bad.Type)
	assert.Equal(t, "Invalid JSON format", bad.Content)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.mcp.Store().Len() == 0 }, 5*time.Second, 20*time.Millisecond,
		"sessions are cleaned up on disconnect")
}
