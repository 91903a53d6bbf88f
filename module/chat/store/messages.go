package store

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ChatProject/module/chat/model"
)

var ErrMessageNotFound = errors.New("message not found")

// Messages is the archive side, one mongo collection holding every
// message ever sent.
type Messages struct {
	coll *mongo.Collection
}

func NewMessages(db *mongo.Database) *Messages {
	return &Messages{coll: db.Collection("messages")}
}

func (s *Messages) Insert(ctx context.Context, msg model.Message) error {
	_, err := s.coll.InsertOne(ctx, msg)
	return errors.Wrap(err, "insert message")
}

// ListByChat returns the chat's history oldest-first.
func (s *Messages) ListByChat(ctx context.Context, chatID int64) ([]model.Message, error) {
	cur, err := s.coll.Find(ctx, bson.M{"chat_id": chatID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find messages")
	}
	var out []model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}
	return out, nil
}

func (s *Messages) LatestByChat(ctx context.Context, chatID int64) (model.Message, error) {
	var msg model.Message
	err := s.coll.FindOne(ctx, bson.M{"chat_id": chatID},
		options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return model.Message{}, errors.Wrap(err, "find latest")
	}
	return msg, nil
}

// ListBySender returns a user's messages newest-first.
func (s *Messages) ListBySender(ctx context.Context, senderID int64) ([]model.Message, error) {
	cur, err := s.coll.Find(ctx, bson.M{"sender_id": senderID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find sender messages")
	}
	var out []model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode sender messages")
	}
	return out, nil
}

func (s *Messages) Delete(ctx context.Context, messageID int64) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"message_id": messageID})
	if err != nil {
		return errors.Wrap(err, "delete message")
	}
	if res.DeletedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// DeleteByChat purges the archive when a chat is removed.
func (s *Messages) DeleteByChat(ctx context.Context, chatID int64) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"chat_id": chatID})
	return errors.Wrap(err, "delete chat messages")
}

// MarkRead flags the given sender's messages in a chat as read.
func (s *Messages) MarkRead(ctx context.Context, chatID, senderID int64) error {
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"chat_id": chatID, "sender_id": senderID},
		bson.M{"$set": bson.M{"read": true}})
	return errors.Wrap(err, "mark read")
}
