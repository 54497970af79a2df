package chat

import (
	"strings"

	"pixie/model"
)

// NoHistory is the conversation context used when there are no previous turns.
const NoHistory = "No previous conversation history."

// BuildConversationContext renders previous turns as "Role: content" lines in
// transcript order.
func BuildConversationContext(previous []model.Message) string {
	if len(previous) == 0 {
		return NoHistory
	}

	lines := make([]string, 0, len(previous))
	for _, m := range previous {
		lines = append(lines, capitalize(string(m.Role))+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// ParseConversation is the inverse of BuildConversationContext. Lines without
// a recognised "role: " prefix are skipped, so continuation lines of a
// multi-line message are lost.
func ParseConversation(context string) []model.ChatMessage {
	if context == NoHistory {
		return nil
	}

	var msgs []model.ChatMessage
	for _, line := range strings.Split(context, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		prefix, content, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		if role, ok := model.ParseRole(prefix); ok {
			msgs = append(msgs, model.TextMessage(role, content))
		}
	}
	return msgs
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
