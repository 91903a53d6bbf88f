package service

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"

	"ChatProject/module/chat/model"
	"ChatProject/module/chat/store"
	"ChatProject/tools/ids"
)

var ErrNotParticipant = errors.New("user is not a chat participant")

// UserLookup is the slice of the user domain this service needs (the
// sender's username is denormalized into each archived message).
type UserLookup interface {
	Username(ctx context.Context, userID int64) (string, error)
}

type Service struct {
	chats    *store.Chats
	messages *store.Messages
	users    UserLookup
}

func New(chats *store.Chats, messages *store.Messages, users UserLookup) *Service {
	return &Service{chats: chats, messages: messages, users: users}
}

// EncodeContent applies the archive's opaque encoding.
func EncodeContent(content string) string {
	return base64.StdEncoding.EncodeToString([]byte(content))
}

// DecodeContent reverses EncodeContent; on garbage it returns the stored
// value untouched rather than failing the read.
func DecodeContent(stored string) string {
	b, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return stored
	}
	return string(b)
}

// StartChat returns the unique chat between two users, creating it on
// first use.
func (s *Service) StartChat(ctx context.Context, user1, user2 int64) (model.Chat, bool, error) {
	return s.chats.GetOrCreate(ctx, user1, user2)
}

func (s *Service) Chat(ctx context.Context, chatID int64) (model.Chat, error) {
	return s.chats.ByID(ctx, chatID)
}

func (s *Service) Chats(ctx context.Context, userID int64) ([]model.Chat, error) {
	return s.chats.ListForUser(ctx, userID)
}

// DeleteChat removes the chat row (participants cascade) and purges the
// message archive.
func (s *Service) DeleteChat(ctx context.Context, chatID int64) error {
	if err := s.chats.Delete(ctx, chatID); err != nil {
		return err
	}
	return s.messages.DeleteByChat(ctx, chatID)
}

// SendMessage archives one message. The sender must participate in the
// chat; content is stored encoded and returned decoded.
func (s *Service) SendMessage(ctx context.Context, chatID, senderID int64, content, mediaType string) (model.Message, error) {
	ok, err := s.chats.IsParticipant(ctx, chatID, senderID)
	if err != nil {
		return model.Message{}, err
	}
	if !ok {
		return model.Message{}, ErrNotParticipant
	}
	username, err := s.users.Username(ctx, senderID)
	if err != nil {
		return model.Message{}, err
	}
	if mediaType == "" {
		mediaType = "text"
	}

	msg := model.Message{
		ID:         ids.Generate(),
		ChatID:     chatID,
		SenderID:   senderID,
		SenderName: username,
		Content:    EncodeContent(content),
		MediaType:  mediaType,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return model.Message{}, err
	}
	msg.Content = content
	return msg, nil
}

func (s *Service) Messages(ctx context.Context, chatID int64) ([]model.Message, error) {
	msgs, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	decodeAll(msgs)
	return msgs, nil
}

func (s *Service) LatestMessage(ctx context.Context, chatID int64) (model.Message, error) {
	msg, err := s.messages.LatestByChat(ctx, chatID)
	if err != nil {
		return model.Message{}, err
	}
	msg.Content = DecodeContent(msg.Content)
	return msg, nil
}

func (s *Service) UserMessages(ctx context.Context, userID int64) ([]model.Message, error) {
	msgs, err := s.messages.ListBySender(ctx, userID)
	if err != nil {
		return nil, err
	}
	decodeAll(msgs)
	return msgs, nil
}

func (s *Service) DeleteMessage(ctx context.Context, messageID int64) error {
	return s.messages.Delete(ctx, messageID)
}

// MarkMessagesRead flags the given sender's messages in the chat as read.
func (s *Service) MarkMessagesRead(ctx context.Context, chatID, senderID int64) error {
	return s.messages.MarkRead(ctx, chatID, senderID)
}

func decodeAll(msgs []model.Message) {
	for i := range msgs {
		msgs[i].Content = DecodeContent(msgs[i].Content)
	}
}
