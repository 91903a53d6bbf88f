package hub

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// EventKind is the closed set of event names carried in the wire envelope.
type EventKind string

// Inbound kinds (what clients send).
const (
	EventStartChat       EventKind = "start_chat"
	EventNewMessage      EventKind = "new_message"
	EventUpdateProfile   EventKind = "update_profile"
	EventDeleteChat      EventKind = "delete_chat"
	EventTypingIndicator EventKind = "typing_indicator"
	EventUserOnline      EventKind = "user_online"
	EventUserOffline     EventKind = "user_offline"
)

// Outbound kinds (what the gateway sends back).
const (
	EventChatStarted    EventKind = "chat_started"
	EventProfileUpdated EventKind = "profile_updated"
	EventChatDeleted    EventKind = "chat_deleted"
	EventUserTyping     EventKind = "user_typing"
)

// ErrUnknownEvent marks an envelope whose event name is outside the
// taxonomy. Callers log it and keep the connection alive; no error frame
// is defined in this protocol.
var ErrUnknownEvent = errors.New("unknown event kind")

// Envelope is the {event, payload} wrapper used on the wire in both
// directions.
type Envelope struct {
	Event   EventKind      `json:"event"`
	Payload map[string]any `json:"payload"`
}

// Internal is the bridge between the router and the translator. It lives
// only for the duration of one dispatch and is never persisted.
type Internal struct {
	Kind   EventKind      `json:"kind"`
	Fields map[string]any `json:"fields"`
}

// Delivery pairs an internal message with one target group.
type Delivery struct {
	Group GroupKey `json:"group"`
	Msg   Internal `json:"msg"`
}

// Per-kind payload shapes. Ids arrive as JSON numbers or strings
// depending on the client; weak decoding normalizes both to strings.

type startChatPayload struct {
	RecipientID string `json:"recipient_id"`
	Chat        any    `json:"chat"`
}

type newMessagePayload struct {
	ChatID  string         `json:"chat_id"`
	Message map[string]any `json:"message"`
}

type updateProfilePayload struct {
	Profile any `json:"profile"`
}

type deleteChatPayload struct {
	ChatID string `json:"chat_id"`
}

type typingPayload struct {
	RecipientID string `json:"recipient_id"`
	UserID      string `json:"user_id"`
}

type presencePayload struct {
	UserID string `json:"user_id"`
}

// decodePayload maps the raw payload onto a typed struct. Missing keys
// stay at their zero value; the router never fails a connection over a
// malformed payload.
func decodePayload[T any](payload map[string]any) (*T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new decoder")
	}
	if err := dec.Decode(payload); err != nil {
		return nil, errors.Wrap(err, "decode payload")
	}
	return &out, nil
}
