package mcp

import (
	"context"
	"testing"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pixie/model"
)

func TestConvertTool(t *testing.T) {
	tests := []struct {
		name     string
		input    mcptypes.Tool
		validate func(t *testing.T, got Tool)
	}{
		{
			name:  "bare tool gets empty input schema",
			input: mcptypes.Tool{Name: "ping"},
			validate: func(t *testing.T, got Tool) {
				assert.Equal(t, "ping", got.Name)
				assert.Equal(t, "", got.Description)
				assert.Equal(t, "", got.Title)
				assert.NotNil(t, got.InputSchema)
				assert.Nil(t, got.OutputSchema)
			},
		},
		{
			name: "schema and annotation title",
			input: mcptypes.Tool{
				Name:        "get_weather",
				Description: "Get current weather",
				InputSchema: mcptypes.ToolInputSchema{
					Type:       "object",
					Properties: map[string]any{"city": map[string]any{"type": "string"}},
					Required:   []string{"city"},
				},
				Annotations: mcptypes.ToolAnnotation{Title: "Weather"},
			},
			validate: func(t *testing.T, got Tool) {
				assert.Equal(t, "Weather", got.Title)
				assert.Equal(t, "Get current weather", got.Description)
				assert.Equal(t, "object", got.InputSchema["type"])
				assert.Equal(t, []any{"city"}, got.InputSchema["required"])
				props, ok := got.InputSchema["properties"].(map[string]any)
				require.True(t, ok)
				assert.Contains(t, props, "city")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, ConvertTool(tt.input))
		})
	}
}

func TestDescriptors(t *testing.T) {
	got := Descriptors([]Tool{{Name: "a", Title: "A", Description: "first"}})
	require.Len(t, got, 1)
	assert.True(t, got[0].IsEnabled)
	assert.Equal(t, "A", got[0].Title)
}

func TestResultText(t *testing.T) {
	assert.Equal(t, "", ResultText(nil))
	assert.Equal(t, "done", ResultText(mcptypes.NewToolResultText("done")))

	img := &mcptypes.CallToolResult{Content: []mcptypes.Content{mcptypes.NewImageContent("AAAA", "image/png")}}
	assert.Contains(t, ResultText(img), `"mimeType":"image/png"`)
}

func TestConnectRejectsUnsupportedTransport(t *testing.T) {
	for _, tr := range []Transport{TransportSSE, TransportStdio, ""} {
		_, err := Connect(context.Background(), ServerConfig{ServerURL: "http://localhost:1", Transport: tr}, time.Second)
		assert.ErrorIs(t, err, ErrUnsupportedTransport)
	}
}

func TestConnectStreamableHTTP(t *testing.T) {
	srv := server.NewMCPServer("test-server", "1.0.0")
	srv.AddTool(
		mcptypes.NewTool("ping",
			mcptypes.WithDescription("Replies with pong"),
			mcptypes.WithTitleAnnotation("Ping"),
		),
		func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
			return mcptypes.NewToolResultText("pong"), nil
		},
	)
	ts := server.NewTestStreamableHTTPServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := Dialer(5*time.Second)(ctx, ServerConfig{ServerURL: ts.URL, Transport: TransportStreamableHTTP})
	require.NoError(t, err)
	defer conn.Caller.Close()

	require.Len(t, conn.Tools, 1)
	assert.Equal(t, "ping", conn.Tools[0].Name)
	assert.Equal(t, "Ping", conn.Tools[0].Title)

	records := NewService(nil).ExecuteToolCalls(ctx, map[string]ToolCaller{"ping": conn.Caller}, []model.ToolCallDecision{{ToolName: "ping"}})
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Result)
	assert.Equal(t, "pong", *records[0].Result)
}
