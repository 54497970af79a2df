package mcp

import (
	"context"
	"errors"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

var (
	ErrUnsupportedTransport   = errors.New("unsupported transport type")
	ErrSessionNotFound        = errors.New("session not found")
	ErrServerAlreadyConnected = errors.New("server already connected")
)

// Transport names an MCP transport kind. Only streamable HTTP can be dialed.
type Transport string

const (
	TransportStreamableHTTP Transport = "streamable-http"
	TransportStdio          Transport = "stdio"
	TransportSSE            Transport = "sse"
)

type AuthType string

const (
	AuthNone   AuthType = "no_auth"
	AuthBearer AuthType = "bearer_token"
	AuthOAuth2 AuthType = "oauth2"
)

type AuthConfig struct {
	Type        AuthType `json:"type"`
	BearerToken string   `json:"bearer_token,omitempty"`
}

// ServerConfig describes one MCP server to connect to.
type ServerConfig struct {
	ServerURL      string            `json:"server_url"`
	Transport      Transport         `json:"transport"`
	AuthConfig     AuthConfig        `json:"auth_config"`
	CustomHeaders  map[string]string `json:"custom_headers,omitempty"`
	Credentials    map[string]string `json:"credentials,omitempty"`
	RequestTimeout float64           `json:"request_timeout,omitempty"` // seconds
}

// Headers merges credentials, then custom headers, then the bearer token.
func (c ServerConfig) Headers() map[string]string {
	headers := make(map[string]string, len(c.Credentials)+len(c.CustomHeaders)+1)
	for k, v := range c.Credentials {
		headers[k] = v
	}
	for k, v := range c.CustomHeaders {
		headers[k] = v
	}
	if c.AuthConfig.Type == AuthBearer && c.AuthConfig.BearerToken != "" {
		headers["Authorization"] = "Bearer " + c.AuthConfig.BearerToken
	}
	return headers
}

// Timeout returns the per-request timeout, falling back to def.
func (c ServerConfig) Timeout(def time.Duration) time.Duration {
	if c.RequestTimeout > 0 {
		return time.Duration(c.RequestTimeout * float64(time.Second))
	}
	return def
}

// Tool is a tool as enumerated from a server, in the shape sent to clients.
type Tool struct {
	Name         string         `json:"name"`
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
}

// ToolCaller is the part of an MCP client session the orchestrator drives.
// *client.Client from mcp-go satisfies it.
type ToolCaller interface {
	CallTool(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error)
	Close() error
}

// Connection is one live, initialised server session and the tools it
// exposed at connect time.
type Connection struct {
	URL    string
	Caller ToolCaller
	Tools  []Tool
}

// ConnectFunc opens a Connection. Connect is the production implementation.
type ConnectFunc func(ctx context.Context, cfg ServerConfig) (*Connection, error)
