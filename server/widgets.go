package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"pixie/model"
)

type chatRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	ID           string `json:"message_id"`
	Role         string `json:"role"`
	Content      string `json:"content"`
	UIResourceID string `json:"ui_resource_id,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type chatResponse struct {
	ConversationID string                  `json:"conversation_id"`
	Message        messageResponse         `json:"message"`
	ContentFormat  string                  `json:"content_format"`
	UIResource     *model.ResourceEnvelope `json:"ui_resource"`
}

type resourceResponse struct {
	ID        string          `json:"id"`
	WidgetID  string          `json:"widget_id"`
	Resource  json.RawMessage `json:"resource"`
	CreatedAt string          `json:"created_at"`
}

func toMessageResponse(m model.Message) messageResponse {
	return messageResponse{
		ID:           m.ID,
		Role:         string(m.Role),
		Content:      m.Content,
		UIResourceID: m.UIResourceID,
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// widgetChat runs one chat turn: the reply and any regenerated UI are
// persisted along with the user's message.
func (s *Server) widgetChat(c *echo.Context) error {
	if err := s.requireLLM(); err != nil {
		return err
	}

	widgetID := c.Param("widget_id")
	var req chatRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content required")
	}

	ctx := c.Request().Context()
	convID, err := s.db.ConversationForWidget(ctx, widgetID)
	if err != nil {
		return storageError(err)
	}
	tools, err := s.db.ToolsByWidget(ctx, widgetID)
	if err != nil {
		return storageError(err)
	}
	previous, err := s.db.ListMessages(ctx, convID)
	if err != nil {
		return storageError(err)
	}

	if err := s.db.CreateMessage(ctx, &model.Message{
		ConversationID: convID,
		Role:           model.RoleUser,
		Content:        req.Content,
	}); err != nil {
		return storageError(err)
	}

	reply, resource := s.chat.GenerateResponse(ctx, widgetID, tools, req.Content, previous)

	assistant := &model.Message{
		ConversationID: convID,
		Role:           model.RoleAssistant,
		Content:        reply,
	}
	if resource != nil {
		stored, err := s.db.CreateResource(ctx, widgetID, resource)
		if err != nil {
			return storageError(err)
		}
		assistant.UIResourceID = stored.ID
	}
	if err := s.db.CreateMessage(ctx, assistant); err != nil {
		return storageError(err)
	}

	return c.JSON(http.StatusOK, chatResponse{
		ConversationID: convID,
		Message:        toMessageResponse(*assistant),
		ContentFormat:  "markdown",
		UIResource:     resource,
	})
}

func (s *Server) widgetConversation(c *echo.Context) error {
	widgetID := c.Param("widget_id")
	ctx := c.Request().Context()

	convID, err := s.db.ConversationForWidget(ctx, widgetID)
	if err != nil {
		return storageError(err)
	}
	msgs, err := s.db.ListMessages(ctx, convID)
	if err != nil {
		return storageError(err)
	}

	list := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		list = append(list, toMessageResponse(m))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"conversation_id": convID,
		"widget_id":       widgetID,
		"messages":        list,
	})
}

func (s *Server) listWidgetResources(c *echo.Context) error {
	list, err := s.db.ListResources(c.Request().Context(), c.Param("widget_id"))
	if err != nil {
		return storageError(err)
	}

	resp := make([]resourceResponse, 0, len(list))
	for _, r := range list {
		resp = append(resp, resourceResponse{
			ID:        r.ID,
			WidgetID:  r.WidgetID,
			Resource:  r.Resource,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listWidgetTools(c *echo.Context) error {
	tools, err := s.db.ToolsByWidget(c.Request().Context(), c.Param("widget_id"))
	if err != nil {
		return storageError(err)
	}
	resp := make([]toolResponse, 0, len(tools))
	for _, t := range tools {
		resp = append(resp, toToolResponse(t))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) attachWidgetTool(c *echo.Context) error {
	if err := s.db.AttachTool(c.Request().Context(), c.Param("widget_id"), c.Param("tool_id")); err != nil {
		return storageError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
