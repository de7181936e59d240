package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
	"github.com/dmitrijs2005/pocketlend/internal/client/repositories/chats"
	"github.com/dmitrijs2005/pocketlend/internal/common"
)

// DefaultChatTitle names a chat until its first user message gives it one.
const DefaultChatTitle = "New chat"

const maxTitleRunes = 40

// ChatService defines the chat use cases. All data is local.
type ChatService interface {
	StartChat(ctx context.Context, userID, title string) (models.Chat, error)
	Chats(ctx context.Context, userID string) ([]models.Chat, error)
	// Send stores a message. The first user message of a chat still
	// carrying DefaultChatTitle also becomes its title.
	Send(ctx context.Context, chatID, sender, content string) (models.Message, error)
	History(ctx context.Context, chatID string) (models.Chat, error)
	Rename(ctx context.Context, chatID, title string) error
	Delete(ctx context.Context, chatID string) error
	Clear(ctx context.Context, userID string) error
}

type chatService struct {
	repo chats.Repository
}

func NewChatService(repo chats.Repository) ChatService {
	return &chatService{repo: repo}
}

func (s *chatService) StartChat(ctx context.Context, userID, title string) (models.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultChatTitle
	}
	c, err := s.repo.CreateChat(ctx, userID, title)
	if err != nil {
		return models.Chat{}, toAppError("error creating chat", err)
	}
	return c, nil
}

func (s *chatService) Chats(ctx context.Context, userID string) ([]models.Chat, error) {
	out, err := s.repo.GetChats(ctx, userID)
	if err != nil {
		return nil, toAppError("error listing chats", err)
	}
	return out, nil
}

func (s *chatService) Send(ctx context.Context, chatID, sender, content string) (models.Message, error) {
	snd, err := models.ParseSender(sender)
	if err != nil {
		return models.Message{}, toAppError("invalid message", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, toAppError("invalid message", &models.ValidationError{Field: "content", Message: "must not be blank"})
	}

	c, err := s.repo.GetChatByID(ctx, chatID)
	if err != nil {
		return models.Message{}, toAppError("error loading chat", err)
	}
	if c == nil {
		return models.Message{}, common.NewAppError(common.CodeNotFound, "chat "+chatID+" not found", common.ErrorNotFound)
	}

	m, err := s.repo.AddMessage(ctx, c.ID, snd, content)
	if err != nil {
		return models.Message{}, toAppError("error storing message", err)
	}

	if snd == models.SenderUser && c.Title == DefaultChatTitle {
		if err := s.repo.UpdateChatTitle(ctx, c.ID, titleFrom(content)); err != nil {
			return models.Message{}, toAppError("error naming chat", err)
		}
	}
	return m, nil
}

// titleFrom derives a chat title from the first line of a message.
func titleFrom(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxTitleRunes {
		return line
	}
	r := []rune(line)
	return strings.TrimSpace(string(r[:maxTitleRunes])) + "…"
}

func (s *chatService) History(ctx context.Context, chatID string) (models.Chat, error) {
	c, err := s.repo.GetChatWithMessages(ctx, chatID)
	if err != nil {
		return models.Chat{}, toAppError("error loading chat", err)
	}
	if c == nil {
		return models.Chat{}, common.NewAppError(common.CodeNotFound, "chat "+chatID+" not found", common.ErrorNotFound)
	}
	return *c, nil
}

func (s *chatService) Rename(ctx context.Context, chatID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return toAppError("invalid title", &models.ValidationError{Field: "title", Message: "must not be blank"})
	}
	if err := s.repo.UpdateChatTitle(ctx, chatID, title); err != nil {
		return toAppError("error renaming chat", err)
	}
	return nil
}

func (s *chatService) Delete(ctx context.Context, chatID string) error {
	if err := s.repo.DeleteChat(ctx, chatID); err != nil {
		return toAppError("error deleting chat", err)
	}
	return nil
}

func (s *chatService) Clear(ctx context.Context, userID string) error {
	if err := s.repo.ClearHistory(ctx, userID); err != nil {
		return toAppError("error clearing history", err)
	}
	return nil
}
