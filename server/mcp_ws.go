package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"

	"pixie/mcp"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 1 << 20
)

// mcpChat serves the MCP chat protocol over one websocket. Frames are
// handled one at a time, so turns on a session never overlap. Sessions
// opened on the connection are closed when it goes away.
func (s *Server) mcpChat(c *echo.Context) error {
	if s.mcp == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "MCP chat is not configured")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Error("Failed to upgrade WebSocket", "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	owned := map[string]struct{}{}
	defer func() {
		cancel()
		conn.Close()
		for id := range owned {
			s.mcp.Store().Cleanup(id)
		}
		s.log.Info("MCP chat connection closed", "sessions", len(owned))
	}()

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go s.keepAlive(ctx, conn)

	current := ""
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn("WebSocket read error", "error", err)
			}
			return nil
		}

		resp := s.mcp.HandleFrame(ctx, data, current)
		if resp.Type == mcp.FrameInit && resp.SessionID != "" {
			owned[resp.SessionID] = struct{}{}
			current = resp.SessionID
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Warn("Failed to write WebSocket frame", "error", err)
			return nil
		}
	}
}

// keepAlive pings until ctx ends. WriteControl may run concurrently with
// the frame writer.
func (s *Server) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
