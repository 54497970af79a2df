package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pixie/config"
	"pixie/model"
	"pixie/provider/testutil"
)

func TestPrepareMessages(t *testing.T) {
	user := model.TextMessage(model.RoleUser, "hi")
	oldSystem := model.TextMessage(model.RoleSystem, "old")

	tests := []struct {
		name     string
		messages []model.ChatMessage
		system   string
		want     []model.ChatMessage
		wantErr  error
	}{
		{
			name:     "system is prepended",
			messages: []model.ChatMessage{user},
			system:   "be brief",
			want:     []model.ChatMessage{model.TextMessage(model.RoleSystem, "be brief"), user},
		},
		{
			name:     "leading system message is replaced, not duplicated",
			messages: []model.ChatMessage{oldSystem, user},
			system:   "new",
			want:     []model.ChatMessage{model.TextMessage(model.RoleSystem, "new"), user},
		},
		{
			name:     "no system leaves messages untouched",
			messages: []model.ChatMessage{oldSystem, user},
			want:     []model.ChatMessage{oldSystem, user},
		},
		{
			name:   "system alone seeds the conversation",
			system: "only system",
			want:   []model.ChatMessage{model.TextMessage(model.RoleSystem, "only system")},
		},
		{
			name:    "nothing at all is rejected",
			wantErr: ErrNoMessages,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := append([]model.ChatMessage(nil), tt.messages...)

			got, err := PrepareMessages(input, tt.system)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.messages, input, "input must not be modified")
		})
	}
}

func TestSplitSystem(t *testing.T) {
	systems, turns := splitSystem([]model.ChatMessage{
		model.TextMessage(model.RoleSystem, "rules"),
		model.TextMessage(model.RoleUser, "hi"),
	})
	assert.Equal(t, []string{"rules"}, systems)
	assert.Equal(t, []model.ChatMessage{model.TextMessage(model.RoleUser, "hi")}, turns)

	systems, turns = splitSystem([]model.ChatMessage{model.TextMessage(model.RoleSystem, "seed")})
	assert.Equal(t, []string{"seed"}, systems)
	require.Len(t, turns, 1)
	assert.Equal(t, model.RoleUser, turns[0].Role, "system-only requests replay the system text as a user turn")
}

func TestParseDataURL(t *testing.T) {
	mediaType, payload, err := parseDataURL("data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, "AAAA", payload)

	for _, bad := range []string{"https://example.com/a.png", "data:image/png;base64", "data:text/plain,hello"} {
		_, _, err := parseDataURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestConvertToOllamaMessages(t *testing.T) {
	msgs := []model.ChatMessage{
		model.TextMessage(model.RoleSystem, "sys"),
		testutil.MultimodalMessage("describe"),
		model.TextMessage(model.RoleAssistant, "a logo"),
	}

	got := ConvertToOllamaMessages(msgs)
	require.Len(t, got, 3)

	assert.Equal(t, "system", got[0].Role)
	assert.Equal(t, "describe", got[1].Content)
	require.Len(t, got[1].Images, 1)
	assert.Equal(t, []byte("\x89PNG"), []byte(got[1].Images[0][:4]))
	assert.Equal(t, "assistant", got[2].Role)
}

func TestConvertToAnthropicMessages(t *testing.T) {
	msgs := []model.ChatMessage{
		model.TextMessage(model.RoleSystem, "sys"),
		testutil.MultimodalMessage("describe"),
		model.TextMessage(model.RoleAssistant, "ok"),
	}

	converted, system := convertToAnthropicMessages(msgs, config.Logger("test"))
	require.Len(t, system, 1)
	assert.Equal(t, "sys", system[0].Text)
	require.Len(t, converted, 2)
	assert.Len(t, converted[0].Content, 2, "text and image blocks")
	assert.Equal(t, "assistant", string(converted[1].Role))
}

func TestConvertToGeminiContents(t *testing.T) {
	contents, system := convertToGeminiContents([]model.ChatMessage{
		model.TextMessage(model.RoleSystem, "sys"),
		testutil.MultimodalMessage("describe"),
		model.TextMessage(model.RoleAssistant, "ok"),
	}, config.Logger("test"))

	require.NotNil(t, system)
	assert.Equal(t, "sys", system.Parts[0].Text)
	require.Len(t, contents, 2)
	require.Len(t, contents[0].Parts, 2)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, "model", string(contents[1].Role))
}

func TestNormalizeFinishReasons(t *testing.T) {
	assert.Equal(t, model.FinishStop, normalizeAnthropicStop("end_turn"))
	assert.Equal(t, model.FinishLength, normalizeAnthropicStop("max_tokens"))
	assert.Equal(t, "tool_use", normalizeAnthropicStop("tool_use"))
	assert.Equal(t, model.FinishStop, normalizeGeminiFinish("STOP"))
	assert.Equal(t, model.FinishLength, normalizeGeminiFinish("MAX_TOKENS"))
	assert.Equal(t, "safety", normalizeGeminiFinish("SAFETY"))
}
