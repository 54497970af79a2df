package model

import (
	"strings"
	"time"
)

// Role identifies who authored a message in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a lower-case role name to a Role. The second result is false
// for anything outside user, assistant and system.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(s)) {
	case RoleUser:
		return RoleUser, true
	case RoleAssistant:
		return RoleAssistant, true
	case RoleSystem:
		return RoleSystem, true
	}
	return "", false
}

// Message is a persisted conversation turn. Messages are immutable once
// created and their creation order is the transcript order.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	UIResourceID   string // empty when the turn produced no UI
	CreatedAt      time.Time
}

// ContentPartType distinguishes text parts from image parts of a ChatMessage.
type ContentPartType string

const (
	PartText  ContentPartType = "text"
	PartImage ContentPartType = "image_url"
)

// ContentPart is one block of a multimodal message. Image parts carry a
// data URL of the form data:<media type>;base64,<payload>.
type ContentPart struct {
	Type     ContentPartType
	Text     string
	ImageURL string
}

// ChatMessage is the provider-facing message shape. Content holds plain text;
// Parts, when non-empty, replaces Content with a multimodal block list.
type ChatMessage struct {
	Role    Role
	Content string
	Parts   []ContentPart
}

// Text returns the textual content of the message, joining text parts when
// the message is multimodal.
func (m ChatMessage) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var texts []string
	for _, p := range m.Parts {
		if p.Type == PartText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Images returns the data URLs of all image parts.
func (m ChatMessage) Images() []string {
	var urls []string
	for _, p := range m.Parts {
		if p.Type == PartImage && p.ImageURL != "" {
			urls = append(urls, p.ImageURL)
		}
	}
	return urls
}

// TextMessage builds a plain-text ChatMessage.
func TextMessage(role Role, content string) ChatMessage {
	return ChatMessage{Role: role, Content: content}
}
