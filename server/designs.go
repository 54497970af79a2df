package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"pixie/model"
)

const maxDesignSize = 10 * 1024 * 1024

type designRequest struct {
	DesignType  model.DesignType `json:"design_type"`
	Filename    string           `json:"filename"`
	ContentType string           `json:"content_type"`
	Data        []byte           `json:"data"` // base64 in JSON
}

type designResponse struct {
	ID          string `json:"id"`
	DesignType  string `json:"design_type"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
	CreatedAt   string `json:"created_at"`
}

func toDesignResponse(d model.DesignAsset) designResponse {
	return designResponse{
		ID:          d.ID,
		DesignType:  string(d.Type),
		Filename:    d.Filename,
		ContentType: d.ContentType,
		FileSize:    d.FileSize,
		CreatedAt:   d.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func parseDesignType(s string) (model.DesignType, error) {
	switch t := model.DesignType(s); t {
	case model.DesignLogo, model.DesignUXDesign:
		return t, nil
	}
	return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("design_type must be %q or %q", model.DesignLogo, model.DesignUXDesign))
}

func (s *Server) uploadDesign(c *echo.Context) error {
	var req designRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid design upload")
	}
	typ, err := parseDesignType(string(req.DesignType))
	if err != nil {
		return err
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		return echo.NewHTTPError(http.StatusBadRequest, "File must be an image. Supported formats: PNG, JPEG, SVG, etc.")
	}
	switch {
	case len(req.Data) == 0:
		return echo.NewHTTPError(http.StatusBadRequest, "File is empty")
	case len(req.Data) > maxDesignSize:
		return echo.NewHTTPError(http.StatusBadRequest, "File size exceeds maximum allowed size of 10MB")
	}
	if req.Filename == "" {
		req.Filename = string(typ)
	}

	asset, err := s.db.CreateDesign(c.Request().Context(), typ, req.Filename, req.ContentType, req.Data)
	if err != nil {
		return storageError(err)
	}
	return c.JSON(http.StatusCreated, toDesignResponse(*asset))
}

func (s *Server) listDesigns(c *echo.Context) error {
	typ, err := parseDesignType(c.QueryParam("type"))
	if err != nil {
		return err
	}
	list, err := s.db.ListByType(c.Request().Context(), typ)
	if err != nil {
		return storageError(err)
	}
	resp := make([]designResponse, 0, len(list))
	for _, d := range list {
		resp = append(resp, toDesignResponse(d))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteDesign(c *echo.Context) error {
	if err := s.db.DeleteDesign(c.Request().Context(), c.Param("design_id")); err != nil {
		return storageError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
