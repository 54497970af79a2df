package model

import (
	"encoding/json"
	"time"
)

// HTMLMimeType is the only mime type produced for widget resources.
const HTMLMimeType = "text/html"

// UiResource is the generated widget markup addressed by a ui:// URI.
type UiResource struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// ResourceEnvelope wraps a UiResource as {"type":"resource","resource":{...}}.
type ResourceEnvelope struct {
	Type     string     `json:"type"`
	Resource UiResource `json:"resource"`
}

// WidgetURI returns the deterministic resource URI for a widget.
func WidgetURI(widgetID string) string {
	return "ui://widget/" + widgetID
}

// NewWidgetResource builds the envelope for freshly generated widget HTML.
func NewWidgetResource(widgetID, html string) *ResourceEnvelope {
	return &ResourceEnvelope{
		Type: "resource",
		Resource: UiResource{
			URI:      WidgetURI(widgetID),
			MimeType: HTMLMimeType,
			Text:     html,
		},
	}
}

// HTML returns the embedded markup, or "" for a nil envelope.
func (e *ResourceEnvelope) HTML() string {
	if e == nil {
		return ""
	}
	return e.Resource.Text
}

// StoredResource is one persisted version of a widget's UI resource.
type StoredResource struct {
	ID        string
	WidgetID  string
	Resource  json.RawMessage
	CreatedAt time.Time
}

// ExtractHTML pulls the markup out of a stored resource document. Both the
// enveloped form and a flat {"text": ...} object are accepted; it returns ""
// when neither carries text.
func ExtractHTML(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var doc struct {
		Resource *struct {
			Text string `json:"text"`
		} `json:"resource"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	if doc.Resource != nil && doc.Resource.Text != "" {
		return doc.Resource.Text
	}
	return doc.Text
}
