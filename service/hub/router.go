package hub

// Route turns one inbound envelope into its broadcast deliveries.
//
// The mapping is the event taxonomy of the protocol: each inbound kind
// targets exactly one group and carries the payload fields forward as-is.
// Presence and typing events trust the ids the payload claims; the
// router deliberately does not substitute the sender's authenticated
// identity (see DESIGN.md). Payload fields are read permissively —
// whatever is missing is forwarded as absent, never an error.
func Route(c *Client, env Envelope) ([]Delivery, error) {
	switch env.Event {
	case EventStartChat:
		p, err := decodePayload[startChatPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return []Delivery{{
			Group: UserGroup(p.RecipientID),
			Msg:   Internal{Kind: EventChatStarted, Fields: map[string]any{"chat": p.Chat}},
		}}, nil

	case EventNewMessage:
		p, err := decodePayload[newMessagePayload](env.Payload)
		if err != nil {
			return nil, err
		}
		msg := p.Message
		if msg == nil {
			msg = map[string]any{}
		}
		// Absent content is not an error; the protocol substitutes a
		// sentinel so recipients always see the field.
		if v, ok := msg["content"]; !ok || v == nil {
			msg["content"] = "No content"
		}
		return []Delivery{{
			Group: ChatGroup(p.ChatID),
			Msg:   Internal{Kind: EventNewMessage, Fields: map[string]any{"message": msg}},
		}}, nil

	case EventUpdateProfile:
		p, err := decodePayload[updateProfilePayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return []Delivery{{
			Group: GroupOnline,
			Msg:   Internal{Kind: EventProfileUpdated, Fields: map[string]any{"profile": p.Profile}},
		}}, nil

	case EventDeleteChat:
		p, err := decodePayload[deleteChatPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return []Delivery{{
			Group: ChatGroup(p.ChatID),
			Msg:   Internal{Kind: EventChatDeleted, Fields: map[string]any{"chat_id": p.ChatID}},
		}}, nil

	case EventTypingIndicator:
		p, err := decodePayload[typingPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return []Delivery{{
			Group: UserGroup(p.RecipientID),
			Msg:   Internal{Kind: EventUserTyping, Fields: map[string]any{"user_id": p.UserID}},
		}}, nil

	case EventUserOnline, EventUserOffline:
		p, err := decodePayload[presencePayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return []Delivery{{
			Group: GroupOnline,
			Msg:   Internal{Kind: env.Event, Fields: map[string]any{"user_id": p.UserID}},
		}}, nil
	}

	return nil, ErrUnknownEvent
}
