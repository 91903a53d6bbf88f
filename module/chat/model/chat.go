package model

import "time"

// Chat is a private conversation between two users.
type Chat struct {
	ID           int64         `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	Participants []Participant `json:"participants"`
}

type Participant struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Message lives in the mongo archive. Content is stored base64-encoded
// (opaque encoding, not cryptographic protection) and decoded on read.
type Message struct {
	ID         int64     `bson:"message_id" json:"id"`
	ChatID     int64     `bson:"chat_id" json:"chat_id"`
	SenderID   int64     `bson:"sender_id" json:"sender_id"`
	SenderName string    `bson:"sender_name" json:"sender_name"`
	Content    string    `bson:"content" json:"content"`
	MediaType  string    `bson:"media_type" json:"media_type"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	Read       bool      `bson:"read" json:"read"`
}
