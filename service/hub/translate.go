package hub

// Frame is the outbound wire envelope. The protocol is asymmetric:
// new_message carries its body under "payload", every other kind under
// "data". Both keys are kept so recipients see exactly one of them.
type Frame struct {
	Event   EventKind `json:"event"`
	Data    any       `json:"data,omitempty"`
	Payload any       `json:"payload,omitempty"`
}

// Translate shapes one internal message into the wire frame for a single
// recipient. It is a pure function of the internal message: nothing is
// re-fetched or validated, the sender's client supplied every field the
// recipients will see. The recipient only matters for routing; today no
// kind shapes per-recipient fields.
func Translate(msg Internal, _ *Client) Frame {
	switch msg.Kind {
	case EventChatStarted:
		return Frame{Event: EventChatStarted, Data: msg.Fields["chat"]}

	case EventNewMessage:
		return Frame{Event: EventNewMessage, Payload: map[string]any{
			"message": shapeMessage(msg.Fields["message"]),
		}}

	case EventProfileUpdated:
		return Frame{Event: EventProfileUpdated, Data: msg.Fields["profile"]}

	case EventChatDeleted:
		return Frame{Event: EventChatDeleted, Data: map[string]any{
			"chat_id": msg.Fields["chat_id"],
		}}

	case EventUserTyping, EventUserOnline, EventUserOffline:
		return Frame{Event: msg.Kind, Data: map[string]any{
			"user_id": msg.Fields["user_id"],
		}}
	}

	// Router and translator share one closed enumeration, so this only
	// triggers if a new kind is routed without a translation case.
	return Frame{Event: msg.Kind, Data: msg.Fields}
}

// shapeMessage pins the new_message body to its documented shape. Every
// key is emitted even when the sender left it out (null on the wire),
// and the nested sender is reduced to id + username.
func shapeMessage(v any) map[string]any {
	msg, _ := v.(map[string]any)
	sender, _ := msg["sender"].(map[string]any)
	return map[string]any{
		"id": msg["id"],
		"sender": map[string]any{
			"id":       sender["id"],
			"username": sender["username"],
		},
		"content":   msg["content"],
		"mediaType": msg["mediaType"],
		"timestamp": msg["timestamp"],
	}
}
