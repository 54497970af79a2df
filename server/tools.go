package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"pixie/model"
)

type toolRequest struct {
	ToolkitID    string         `json:"toolkit_id"`
	Name         string         `json:"name"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	OutputSchema map[string]any `json:"output_schema"`
	IsEnabled    *bool          `json:"is_enabled"`
}

type toolResponse struct {
	ID           string         `json:"id"`
	ToolkitID    string         `json:"toolkit_id"`
	Name         string         `json:"name"`
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	OutputSchema map[string]any `json:"output_schema,omitempty"`
	IsEnabled    bool           `json:"is_enabled"`
}

func toToolResponse(t model.ToolDescriptor) toolResponse {
	return toolResponse{
		ID:           t.ID,
		ToolkitID:    t.ToolkitID,
		Name:         t.Name,
		Title:        t.Title,
		Description:  t.Description,
		InputSchema:  t.InputSchema,
		OutputSchema: t.OutputSchema,
		IsEnabled:    t.IsEnabled,
	}
}

func (s *Server) createTool(c *echo.Context) error {
	var req toolRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}

	tool := model.ToolDescriptor{
		ToolkitID:    req.ToolkitID,
		Name:         req.Name,
		Title:        req.Title,
		Description:  req.Description,
		InputSchema:  req.InputSchema,
		OutputSchema: req.OutputSchema,
		IsEnabled:    req.IsEnabled == nil || *req.IsEnabled,
	}
	if tool.InputSchema == nil {
		tool.InputSchema = map[string]any{}
	}
	if err := s.db.CreateTool(c.Request().Context(), &tool); err != nil {
		return storageError(err)
	}
	return c.JSON(http.StatusCreated, toToolResponse(tool))
}

// updateTool only toggles is_enabled; other fields are immutable here.
func (s *Server) updateTool(c *echo.Context) error {
	var req toolRequest
	if err := c.Bind(&req); err != nil || req.IsEnabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "is_enabled required")
	}
	if err := s.db.SetToolEnabled(c.Request().Context(), c.Param("tool_id"), *req.IsEnabled); err != nil {
		return storageError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type inferSchemaRequest struct {
	ToolName        string `json:"tool_name"`
	ToolDescription string `json:"tool_description"`
	ToolOutput      any    `json:"tool_output"`
}

func (s *Server) inferSchema(c *echo.Context) error {
	if err := s.requireLLM(); err != nil {
		return err
	}

	var req inferSchemaRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.ToolName) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tool_name required")
	}

	schema := s.chat.InferOutputSchema(c.Request().Context(), req.ToolName, req.ToolDescription, req.ToolOutput)
	return c.JSON(http.StatusOK, map[string]any{
		"inferred_schema": schema,
		"tool_output":     req.ToolOutput,
	})
}
