// Package server exposes the widget chat, tool, design and MCP chat APIs
// over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v5"

	"pixie/chat"
	"pixie/config"
	"pixie/mcp"
	"pixie/model"
	"pixie/storage"
)

const shutdownTimeout = 10 * time.Second

// Server wires the HTTP routes to storage and the chat orchestrators.
type Server struct {
	cfg  *config.Config
	db   *storage.DB
	chat *chat.LlmChat // nil when no provider could be built
	mcp  *mcp.Handler
	echo *echo.Echo
	log  *slog.Logger
}

// New builds the router. A nil provider leaves the LLM-backed routes
// answering 503.
func New(cfg *config.Config, db *storage.DB, p model.Provider, mcpHandler *mcp.Handler) *Server {
	s := &Server{
		cfg: cfg,
		db:  db,
		mcp: mcpHandler,
		log: config.Logger("server"),
	}
	if p != nil {
		s.chat = chat.NewLlmChat(p, db, db, cfg.LLM.UIMaxTokens)
	}

	e := echo.New()
	e.Use(s.cors)
	s.registerRoutes(e)
	s.echo = e
	return s
}

func (s *Server) registerRoutes(e *echo.Echo) {
	e.GET("/health", s.health)

	g := e.Group("/api/v1")
	g.POST("/widgets/:widget_id/chat", s.widgetChat)
	g.GET("/widgets/:widget_id/conversation", s.widgetConversation)
	g.GET("/widgets/:widget_id/resources", s.listWidgetResources)
	g.GET("/widgets/:widget_id/tools", s.listWidgetTools)
	g.POST("/widgets/:widget_id/tools/:tool_id", s.attachWidgetTool)

	g.POST("/tools", s.createTool)
	g.PATCH("/tools/:tool_id", s.updateTool)
	g.POST("/tools/infer-schema", s.inferSchema)

	g.POST("/designs", s.uploadDesign)
	g.GET("/designs", s.listDesigns)
	g.DELETE("/designs/:design_id", s.deleteDesign)

	g.GET("/mcp-chat/ws", s.mcpChat)
}

// ServeHTTP lets the server be mounted on any http.Server or httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully and closes every live MCP session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", "addr", srv.Addr, "provider", s.cfg.LLM.Provider)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if s.mcp != nil {
		if cerr := s.mcp.Store().CloseAll(shutdownCtx); cerr != nil {
			s.log.Warn("Failed to close MCP sessions", "error", cerr)
		}
	}
	return err
}

func (s *Server) health(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.cfg.App.Version,
	})
}

// cors answers preflight requests and tags responses for allowed origins.
func (s *Server) cors(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		origin := c.Request().Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			h := c.Response().Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if c.Request().Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				return c.NoContent(http.StatusNoContent)
			}
		}
		return next(c)
	}
}

func (s *Server) originAllowed(origin string) bool {
	return slices.Contains(s.cfg.Server.CORSOrigins, "*") || slices.Contains(s.cfg.Server.CORSOrigins, origin)
}

const llmUnavailable = "LLM functionality is unavailable. " +
	"Please configure OPENAI_API_KEY, ANTHROPIC_API_KEY or GEMINI_API_KEY in your environment variables."

// requireLLM rejects requests that need a model when none is configured.
// Ollama runs without a key, so it only needs a built provider.
func (s *Server) requireLLM() error {
	if s.chat == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, llmUnavailable)
	}
	if !s.cfg.HasLLMKeys() && s.cfg.LLM.Provider != "ollama" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, llmUnavailable)
	}
	return nil
}

// storageError maps repository errors to HTTP errors.
func storageError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
