package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalFrame(t *testing.T, f Frame) map[string]any {
	t.Helper()
	data, err := json.Marshal(f)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestTranslateChatStarted(t *testing.T) {
	chat := map[string]any{"id": "7"}
	f := Translate(Internal{Kind: EventChatStarted, Fields: map[string]any{"chat": chat}}, nil)

	wire := marshalFrame(t, f)
	assert.Equal(t, "chat_started", wire["event"])
	assert.Equal(t, chat, wire["data"])
	_, hasPayload := wire["payload"]
	assert.False(t, hasPayload)
}

// new_message is the one kind whose body rides under "payload", and its
// message shape always carries every key, null when the sender left one out.
func TestTranslateNewMessage(t *testing.T) {
	f := Translate(Internal{Kind: EventNewMessage, Fields: map[string]any{
		"message": map[string]any{
			"id":      "101",
			"sender":  map[string]any{"id": "1", "username": "ada", "email": "dropped"},
			"content": "hello",
		},
	}}, nil)

	wire := marshalFrame(t, f)
	assert.Equal(t, "new_message", wire["event"])
	_, hasData := wire["data"]
	assert.False(t, hasData)

	msg := wire["payload"].(map[string]any)["message"].(map[string]any)
	assert.Equal(t, "101", msg["id"])
	assert.Equal(t, "hello", msg["content"])
	assert.Equal(t, map[string]any{"id": "1", "username": "ada"}, msg["sender"])

	// keys the sender omitted are still on the wire as null
	v, ok := msg["mediaType"]
	assert.True(t, ok)
	assert.Nil(t, v)
	v, ok = msg["timestamp"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestTranslateNewMessageNoSender(t *testing.T) {
	f := Translate(Internal{Kind: EventNewMessage, Fields: map[string]any{
		"message": map[string]any{"content": "x"},
	}}, nil)

	msg := f.Payload.(map[string]any)["message"].(map[string]any)
	sender := msg["sender"].(map[string]any)
	assert.Nil(t, sender["id"])
	assert.Nil(t, sender["username"])
}

func TestTranslateChatDeleted(t *testing.T) {
	f := Translate(Internal{Kind: EventChatDeleted, Fields: map[string]any{"chat_id": "13"}}, nil)
	wire := marshalFrame(t, f)
	assert.Equal(t, "chat_deleted", wire["event"])
	assert.Equal(t, map[string]any{"chat_id": "13"}, wire["data"])
}

func TestTranslateProfileUpdated(t *testing.T) {
	profile := map[string]any{"bio": "hi"}
	f := Translate(Internal{Kind: EventProfileUpdated, Fields: map[string]any{"profile": profile}}, nil)
	assert.Equal(t, EventProfileUpdated, f.Event)
	assert.Equal(t, profile, f.Data)
	assert.Nil(t, f.Payload)
}

func TestTranslateUserScopedKinds(t *testing.T) {
	for _, kind := range []EventKind{EventUserTyping, EventUserOnline, EventUserOffline} {
		f := Translate(Internal{Kind: kind, Fields: map[string]any{"user_id": "5"}}, nil)
		wire := marshalFrame(t, f)
		assert.Equal(t, string(kind), wire["event"])
		assert.Equal(t, map[string]any{"user_id": "5"}, wire["data"])
	}
}
