package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func route(t *testing.T, event EventKind, payload map[string]any) Delivery {
	t.Helper()
	c := newTestClient("c1", "1", 8)
	deliveries, err := Route(c, Envelope{Event: event, Payload: payload})
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	return deliveries[0]
}

func TestRouteStartChat(t *testing.T) {
	chat := map[string]any{"id": "7"}
	d := route(t, EventStartChat, map[string]any{
		"recipient_id": "9",
		"chat":         chat,
	})
	assert.Equal(t, UserGroup("9"), d.Group)
	assert.Equal(t, EventChatStarted, d.Msg.Kind)
	assert.Equal(t, chat, d.Msg.Fields["chat"])
}

func TestRouteNewMessage(t *testing.T) {
	d := route(t, EventNewMessage, map[string]any{
		"chat_id": "42",
		"message": map[string]any{"content": "hello"},
	})
	assert.Equal(t, ChatGroup("42"), d.Group)
	assert.Equal(t, EventNewMessage, d.Msg.Kind)
	msg := d.Msg.Fields["message"].(map[string]any)
	assert.Equal(t, "hello", msg["content"])
}

func TestRouteNewMessageContentFallback(t *testing.T) {
	for name, payload := range map[string]map[string]any{
		"missing message": {"chat_id": "42"},
		"missing content": {"chat_id": "42", "message": map[string]any{"id": "1"}},
		"nil content":     {"chat_id": "42", "message": map[string]any{"content": nil}},
	} {
		d := route(t, EventNewMessage, payload)
		msg := d.Msg.Fields["message"].(map[string]any)
		assert.Equal(t, "No content", msg["content"], name)
	}
}

// JSON numbers arrive as float64; ids must still land in string groups.
func TestRouteNumericIDs(t *testing.T) {
	d := route(t, EventNewMessage, map[string]any{
		"chat_id": float64(42),
		"message": map[string]any{"content": "x"},
	})
	assert.Equal(t, ChatGroup("42"), d.Group)
}

func TestRouteUpdateProfile(t *testing.T) {
	profile := map[string]any{"bio": "hi"}
	d := route(t, EventUpdateProfile, map[string]any{"profile": profile})
	assert.Equal(t, GroupOnline, d.Group)
	assert.Equal(t, EventProfileUpdated, d.Msg.Kind)
	assert.Equal(t, profile, d.Msg.Fields["profile"])
}

func TestRouteDeleteChat(t *testing.T) {
	d := route(t, EventDeleteChat, map[string]any{"chat_id": "13"})
	assert.Equal(t, ChatGroup("13"), d.Group)
	assert.Equal(t, EventChatDeleted, d.Msg.Kind)
	assert.Equal(t, "13", d.Msg.Fields["chat_id"])
}

// The router forwards whatever identity the payload claims; the sender's
// authenticated user id is not substituted.
func TestRouteTypingUsesPayloadIdentity(t *testing.T) {
	c := newTestClient("c1", "1", 8)
	deliveries, err := Route(c, Envelope{Event: EventTypingIndicator, Payload: map[string]any{
		"recipient_id": "2",
		"user_id":      "999",
	}})
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, UserGroup("2"), deliveries[0].Group)
	assert.Equal(t, EventUserTyping, deliveries[0].Msg.Kind)
	assert.Equal(t, "999", deliveries[0].Msg.Fields["user_id"])
}

func TestRoutePresence(t *testing.T) {
	for _, kind := range []EventKind{EventUserOnline, EventUserOffline} {
		d := route(t, kind, map[string]any{"user_id": "5"})
		assert.Equal(t, GroupOnline, d.Group)
		assert.Equal(t, kind, d.Msg.Kind)
		assert.Equal(t, "5", d.Msg.Fields["user_id"])
	}
}

func TestRouteUnknownEvent(t *testing.T) {
	c := newTestClient("c1", "1", 8)
	deliveries, err := Route(c, Envelope{Event: "ping"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.Nil(t, deliveries)

	deliveries, err = Route(c, Envelope{Event: ""})
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.Nil(t, deliveries)
}

// Outbound kinds are not valid inbound: a client echoing chat_started back
// is outside the taxonomy.
func TestRouteRejectsOutboundKinds(t *testing.T) {
	c := newTestClient("c1", "1", 8)
	for _, kind := range []EventKind{EventChatStarted, EventProfileUpdated, EventChatDeleted, EventUserTyping} {
		_, err := Route(c, Envelope{Event: kind})
		assert.ErrorIs(t, err, ErrUnknownEvent, string(kind))
	}
}
