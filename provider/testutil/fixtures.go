package testutil

import (
	"pixie/model"
)

// TestMessages returns a sample conversation for testing
func TestMessages() []model.ChatMessage {
	return []model.ChatMessage{
		model.TextMessage(model.RoleUser, "Hello, how are you?"),
		model.TextMessage(model.RoleAssistant, "I'm doing well, thank you!"),
		model.TextMessage(model.RoleUser, "Can you help me with a task?"),
	}
}

// SingleUserMessage returns a single user message for simple tests
func SingleUserMessage(content string) []model.ChatMessage {
	return []model.ChatMessage{model.TextMessage(model.RoleUser, content)}
}

// PNGDataURL is a 1x1 transparent PNG as a data URL.
const PNGDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// MultimodalMessage returns a user message with one text part and one image.
func MultimodalMessage(text string) model.ChatMessage {
	return model.ChatMessage{
		Role: model.RoleUser,
		Parts: []model.ContentPart{
			{Type: model.PartText, Text: text},
			{Type: model.PartImage, ImageURL: PNGDataURL},
		},
	}
}

// MinimalReactHTML is a complete document that passes every structural check.
const MinimalReactHTML = `<!DOCTYPE html>
<html>
<head>
<script src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
<script src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
<script src="https://unpkg.com/@babel/standalone/babel.min.js"></script>
</head>
<body>
<div id="root"></div>
<script type="text/babel">
function App() { return (<div>Hello</div>); }
ReactDOM.render(<App />, document.getElementById('root'));
</script>
</body>
</html>`
