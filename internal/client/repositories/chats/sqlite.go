package chats

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
	"github.com/dmitrijs2005/pocketlend/internal/client/store"
	"github.com/dmitrijs2005/pocketlend/internal/common"
	"github.com/dmitrijs2005/pocketlend/internal/dbx"
)

const (
	chatsTable = "chats"
	chatsDDL   = `local_id TEXT PRIMARY KEY, server_id TEXT, user_id TEXT, title TEXT NOT NULL, created_at TEXT NOT NULL`

	messagesTable = "messages"
	messagesDDL   = `local_id TEXT PRIMARY KEY, server_id TEXT, chat_id TEXT NOT NULL, sender TEXT NOT NULL, content TEXT NOT NULL, created_at TEXT NOT NULL`
)

type SQLiteRepository struct {
	st  *store.Store
	now func() time.Time
}

func NewSQLiteRepository(st *store.Store) *SQLiteRepository {
	return &SQLiteRepository{st: st, now: time.Now}
}

func (r *SQLiteRepository) ensure(ctx context.Context) error {
	if err := r.st.EnsureTable(ctx, chatsTable, chatsDDL); err != nil {
		return err
	}
	return r.st.EnsureTable(ctx, messagesTable, messagesDDL)
}

func (r *SQLiteRepository) CreateChat(ctx context.Context, userID, title string) (models.Chat, error) {
	if err := r.ensure(ctx); err != nil {
		return models.Chat{}, err
	}

	c := models.Chat{
		ID:        store.NewLocalID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: r.now().UTC(),
	}
	_, err := r.st.Execute(ctx, `INSERT INTO chats (local_id, user_id, title, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, userID, title, models.FormatTime(c.CreatedAt))
	if err != nil {
		return models.Chat{}, fmt.Errorf("failed to insert chat: %w", err)
	}
	return c, nil
}

// GetChats returns the user's chats, newest first.
func (r *SQLiteRepository) GetChats(ctx context.Context, userID string) ([]models.Chat, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}

	res, err := r.st.Execute(ctx, `SELECT local_id, server_id, user_id, title, created_at FROM chats
		WHERE user_id = ? ORDER BY created_at DESC, local_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select chats: %w", err)
	}

	out := make([]models.Chat, 0, len(res.Rows))
	for _, row := range res.Rows {
		c, err := chatFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *SQLiteRepository) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}

	res, err := r.st.Execute(ctx, `SELECT local_id, server_id, user_id, title, created_at FROM chats
		WHERE local_id = ? OR server_id = ?`, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select chat: %w", err)
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	c, err := chatFromRow(res.Rows[0])
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChatWithMessages is GetChatByID with Messages loaded, oldest first.
func (r *SQLiteRepository) GetChatWithMessages(ctx context.Context, id string) (*models.Chat, error) {
	c, err := r.GetChatByID(ctx, id)
	if err != nil || c == nil {
		return c, err
	}
	msgs, err := r.GetMessagesByChatID(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Messages = msgs
	return c, nil
}

func (r *SQLiteRepository) UpdateChatTitle(ctx context.Context, id, title string) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	res, err := r.st.Execute(ctx, `UPDATE chats SET title = ? WHERE local_id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	if res.RowsAffected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteChat removes the chat's messages and then the chat, in one
// transaction.
func (r *SQLiteRepository) DeleteChat(ctx context.Context, id string) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	return r.st.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := store.Exec(ctx, tx, `DELETE FROM messages WHERE chat_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		res, err := store.Exec(ctx, tx, `DELETE FROM chats WHERE local_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}
		if res.RowsAffected == 0 {
			return common.ErrorNotFound
		}
		return nil
	})
}

// ClearHistory deletes every chat of the user together with its messages.
func (r *SQLiteRepository) ClearHistory(ctx context.Context, userID string) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	return r.st.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := store.Exec(ctx, tx,
			`DELETE FROM messages WHERE chat_id IN (SELECT local_id FROM chats WHERE user_id = ?)`, userID); err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if _, err := store.Exec(ctx, tx, `DELETE FROM chats WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to delete chats: %w", err)
		}
		return nil
	})
}

// AddMessage appends a message to an existing chat.
func (r *SQLiteRepository) AddMessage(ctx context.Context, chatID string, sender models.Sender, content string) (models.Message, error) {
	if err := r.ensure(ctx); err != nil {
		return models.Message{}, err
	}

	m := models.Message{
		ID:        store.NewLocalID(),
		ChatID:    chatID,
		Sender:    sender,
		Content:   content,
		Timestamp: r.now().UTC(),
	}

	err := r.st.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := store.Exec(ctx, tx, `SELECT 1 FROM chats WHERE local_id = ?`, chatID)
		if err != nil {
			return err
		}
		if len(res.Rows) == 0 {
			return common.ErrorNotFound
		}
		_, err = store.Exec(ctx, tx, `INSERT INTO messages (local_id, chat_id, sender, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			m.ID, chatID, string(sender), content, models.FormatTime(m.Timestamp))
		return err
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) GetMessagesByChatID(ctx context.Context, chatID string) ([]models.Message, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}

	res, err := r.st.Execute(ctx, `SELECT local_id, server_id, chat_id, sender, content, created_at FROM messages
		WHERE chat_id = ? ORDER BY created_at, rowid`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}

	out := make([]models.Message, 0, len(res.Rows))
	for _, row := range res.Rows {
		var d models.MessageDTO
		if err := row.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, models.MessageFromDTO(d))
	}
	return out, nil
}

func chatFromRow(row store.Row) (models.Chat, error) {
	var d models.ChatDTO
	if err := row.Decode(&d); err != nil {
		return models.Chat{}, err
	}
	return models.ChatFromDTO(d), nil
}
