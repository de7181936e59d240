package models

import (
	"fmt"
	"time"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

func ParseSender(s string) (Sender, error) {
	switch Sender(s) {
	case SenderUser, SenderBot, SenderSystem:
		return Sender(s), nil
	}
	return "", &ValidationError{Field: "sender", Message: fmt.Sprintf("unknown sender %q", s)}
}

// Chat is a conversation. Messages is nil unless it was loaded explicitly.
type Chat struct {
	ID        string
	UserID    string
	Title     string
	Messages  []Message
	CreatedAt time.Time
}

// Message is immutable once stored.
type Message struct {
	ID        string
	ChatID    string
	Sender    Sender
	Content   string
	Timestamp time.Time
}

// ChatDTO is a chat as read from the local store or a remote payload.
type ChatDTO struct {
	ID             FlexString   `json:"id"`
	ServerID       FlexString   `json:"server_id"`
	LocalID        FlexString   `json:"local_id"`
	UserID         FlexString   `json:"user_id"`
	UserIDCamel    FlexString   `json:"userId"`
	Title          string       `json:"title"`
	Timestamp      FlexString   `json:"timestamp"`
	CreatedAt      FlexString   `json:"created_at"`
	CreatedAtCamel FlexString   `json:"createdAt"`
	Messages       []MessageDTO `json:"messages"`
}

// MessageDTO is a message as read from the local store or a remote payload.
type MessageDTO struct {
	ID             FlexString `json:"id"`
	ServerID       FlexString `json:"server_id"`
	LocalID        FlexString `json:"local_id"`
	ChatID         FlexString `json:"chat_id"`
	ChatIDCamel    FlexString `json:"chatId"`
	Sender         string     `json:"sender"`
	Content        string     `json:"content"`
	Timestamp      FlexString `json:"timestamp"`
	CreatedAt      FlexString `json:"created_at"`
	CreatedAtCamel FlexString `json:"createdAt"`
}

// ChatFromDTO maps d with these precedences:
//
//	ID:        id, server_id, local_id
//	UserID:    user_id, userId
//	CreatedAt: timestamp, created_at, createdAt
//
// Messages are mapped only when d carries them.
func ChatFromDTO(d ChatDTO) Chat {
	c := Chat{
		ID:        string(firstOf(d.ID, d.ServerID, d.LocalID)),
		UserID:    string(firstOf(d.UserID, d.UserIDCamel)),
		Title:     d.Title,
		CreatedAt: ParseTime(string(firstOf(d.Timestamp, d.CreatedAt, d.CreatedAtCamel))),
	}
	if d.Messages != nil {
		c.Messages = make([]Message, 0, len(d.Messages))
		for _, m := range d.Messages {
			c.Messages = append(c.Messages, MessageFromDTO(m))
		}
	}
	return c
}

// MessageFromDTO maps d with these precedences:
//
//	ID:        id, server_id, local_id
//	ChatID:    chat_id, chatId
//	Timestamp: timestamp, created_at, createdAt
//
// An unknown sender is kept verbatim.
func MessageFromDTO(d MessageDTO) Message {
	return Message{
		ID:        string(firstOf(d.ID, d.ServerID, d.LocalID)),
		ChatID:    string(firstOf(d.ChatID, d.ChatIDCamel)),
		Sender:    Sender(d.Sender),
		Content:   d.Content,
		Timestamp: ParseTime(string(firstOf(d.Timestamp, d.CreatedAt, d.CreatedAtCamel))),
	}
}
