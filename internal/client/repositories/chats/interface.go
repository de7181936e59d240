// Package chats persists chats and their messages in the local store only.
package chats

import (
	"context"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
)

type Repository interface {
	CreateChat(ctx context.Context, userID, title string) (models.Chat, error)
	GetChats(ctx context.Context, userID string) ([]models.Chat, error)
	// GetChatByID returns nil, nil when the chat does not exist.
	GetChatByID(ctx context.Context, id string) (*models.Chat, error)
	GetChatWithMessages(ctx context.Context, id string) (*models.Chat, error)
	UpdateChatTitle(ctx context.Context, id, title string) error
	DeleteChat(ctx context.Context, id string) error
	ClearHistory(ctx context.Context, userID string) error
	AddMessage(ctx context.Context, chatID string, sender models.Sender, content string) (models.Message, error)
	GetMessagesByChatID(ctx context.Context, chatID string) ([]models.Message, error)
}
