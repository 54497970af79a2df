package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"pixie/config"
)

const (
	protocolVersion = "2025-06-18"
	clientName      = "Pixie"
	clientVersion   = "1.0.0"
)

// Dialer returns a ConnectFunc that applies defaultTimeout to servers that do
// not set their own request timeout.
func Dialer(defaultTimeout time.Duration) ConnectFunc {
	return func(ctx context.Context, cfg ServerConfig) (*Connection, error) {
		return Connect(ctx, cfg, defaultTimeout)
	}
}

// Connect opens a streamable HTTP session, performs the initialize handshake
// and lists the server's tools. The session stays open until the returned
// Connection's Caller is closed.
func Connect(ctx context.Context, cfg ServerConfig, defaultTimeout time.Duration) (*Connection, error) {
	log := config.Logger("mcp")

	if cfg.Transport != TransportStreamableHTTP {
		return nil, fmt.Errorf("%w: %s. Only '%s' is currently supported", ErrUnsupportedTransport, cfg.Transport, TransportStreamableHTTP)
	}

	opts := []transport.StreamableHTTPCOption{
		transport.WithHTTPTimeout(cfg.Timeout(defaultTimeout)),
	}
	if headers := cfg.Headers(); len(headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(headers))
	}

	mcpClient, err := client.NewStreamableHttpClient(cfg.ServerURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", cfg.ServerURL, err)
	}

	// Start HTTP transport (required before Initialize/ListTools)
	if err := mcpClient.GetTransport().Start(ctx); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to start HTTP transport for %s: %w", cfg.ServerURL, err)
	}

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: protocolVersion,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize session with %s: %w", cfg.ServerURL, err)
	}

	listed, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to list tools for %s: %w", cfg.ServerURL, err)
	}

	tools := ConvertTools(listed.Tools)
	log.Info("Connected to MCP server", "url", cfg.ServerURL, "tools", len(tools))

	return &Connection{
		URL:    cfg.ServerURL,
		Caller: mcpClient,
		Tools:  tools,
	}, nil
}
