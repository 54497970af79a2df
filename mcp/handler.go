package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"pixie/config"
	"pixie/model"
)

// Frame types of the chat protocol.
const (
	FrameInit      = "init"
	FrameAddServer = "add_server"
	FrameMessage   = "message"
	FrameError     = "error"
)

const contentFormatMarkdown = "markdown"

// Request is an inbound protocol frame.
type Request struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	MCPServer *ServerConfig `json:"mcp_server,omitempty"`
	Content   string        `json:"content,omitempty"`
}

// Response is an outbound protocol frame. Empty optional fields are omitted.
type Response struct {
	Type          string                 `json:"type"`
	SessionID     string                 `json:"session_id,omitempty"`
	Content       string                 `json:"content"`
	ContentFormat string                 `json:"content_format"`
	Tools         []Tool                 `json:"tools,omitempty"`
	ToolCalls     []model.ToolCallRecord `json:"tool_calls,omitempty"`
	ServerCount   int                    `json:"server_count,omitempty"`
}

// Handler implements the chat protocol on top of a Service and a
// SessionStore. It knows nothing about the transport carrying the frames.
type Handler struct {
	service *Service
	store   *SessionStore
	connect ConnectFunc
	log     *slog.Logger
}

func NewHandler(service *Service, store *SessionStore, connect ConnectFunc) *Handler {
	return &Handler{
		service: service,
		store:   store,
		connect: connect,
		log:     config.Logger("mcp"),
	}
}

// Store exposes the session store, for cleanup by the transport.
func (h *Handler) Store() *SessionStore {
	return h.store
}

// HandleFrame decodes and answers one raw frame. current is the session the
// connection is bound to so far and is echoed on errors. Every failure is
// reported as an error frame.
func (h *Handler) HandleFrame(ctx context.Context, data []byte, current string) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		h.log.Error("Invalid JSON received", "error", err)
		return errorResponse(current, "Invalid JSON format")
	}

	resp, err := h.Handle(ctx, req)
	if err != nil {
		h.log.Error("Error processing message", "type", req.Type, "error", err)
		return errorResponse(current, err.Error())
	}
	return resp
}

// Handle dispatches a decoded frame.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	switch req.Type {
	case FrameInit:
		return h.init(ctx, req)
	case FrameAddServer:
		return h.addServer(ctx, req)
	case FrameMessage:
		return h.message(ctx, req)
	}
	return Response{}, fmt.Errorf("Unknown message type: %s", req.Type)
}

func (h *Handler) init(ctx context.Context, req Request) (Response, error) {
	if req.MCPServer == nil {
		return Response{}, errors.New("Error initializing MCP chat session: mcp_server is required")
	}

	conn, err := h.connect(ctx, *req.MCPServer)
	if err != nil {
		return Response{}, fmt.Errorf("Error initializing MCP chat session: %w", err)
	}

	s, err := h.store.Create(conn)
	if err != nil {
		conn.Caller.Close()
		return Response{}, fmt.Errorf("Error initializing MCP chat session: %w", err)
	}

	return Response{
		Type:          FrameInit,
		SessionID:     s.ID,
		Content:       fmt.Sprintf("Connected to MCP server. Found %d available tool(s). How can I help you?", len(conn.Tools)),
		ContentFormat: contentFormatMarkdown,
		Tools:         conn.Tools,
		ServerCount:   1,
	}, nil
}

func (h *Handler) addServer(ctx context.Context, req Request) (Response, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return Response{}, err
	}
	if req.MCPServer == nil {
		return Response{}, errors.New("Error adding MCP server: mcp_server is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkNewServer(req.MCPServer.ServerURL); err != nil {
		return Response{}, fmt.Errorf("MCP server at %s is already connected", req.MCPServer.ServerURL)
	}

	conn, err := h.connect(ctx, *req.MCPServer)
	if err != nil {
		return Response{}, fmt.Errorf("Error adding MCP server: %w", err)
	}
	h.store.AddServer(s, conn)

	tools := s.Tools()
	return Response{
		Type:          FrameAddServer,
		SessionID:     s.ID,
		Content:       fmt.Sprintf("Successfully added MCP server. Now connected to %d server(s) with %d total tool(s).", s.ServerCount(), len(tools)),
		ContentFormat: contentFormatMarkdown,
		Tools:         tools,
		ServerCount:   s.ServerCount(),
	}, nil
}

func (h *Handler) message(ctx context.Context, req Request) (Response, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return Response{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.History()
	calls := h.service.DecideToolCalls(ctx, req.Content, s.Tools(), history)

	var records []model.ToolCallRecord
	if len(calls) > 0 {
		records = h.service.ExecuteToolCalls(ctx, s.Routes(), calls)
	}

	answer := h.service.GenerateResponse(ctx, req.Content, records, history)
	s.appendTurn(req.Content, answer)

	return Response{
		Type:          FrameMessage,
		SessionID:     s.ID,
		Content:       answer,
		ContentFormat: contentFormatMarkdown,
		ToolCalls:     records,
	}, nil
}

func (h *Handler) session(id string) (*Session, error) {
	s, err := h.store.Get(id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("Session not found: %s", id)
	}
	return s, err
}

func errorResponse(sessionID, content string) Response {
	return Response{
		Type:          FrameError,
		SessionID:     sessionID,
		Content:       content,
		ContentFormat: contentFormatMarkdown,
	}
}
