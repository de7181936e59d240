package chats

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
	"github.com/dmitrijs2005/pocketlend/internal/client/store"
	"github.com/dmitrijs2005/pocketlend/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (*SQLiteRepository, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	r := NewSQLiteRepository(st)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return r, st
}

func TestCreateAndGetChat(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	c, err := r.CreateChat(ctx, "u1", "First")
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)

	got, err := r.GetChatByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "First", got.Title)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.Messages, "messages are not loaded by GetChatByID")

	missing, err := r.GetChatByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetChats_NewestFirstPerUser(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	a, err := r.CreateChat(ctx, "u1", "a")
	require.NoError(t, err)
	b, err := r.CreateChat(ctx, "u1", "b")
	require.NoError(t, err)
	_, err = r.CreateChat(ctx, "u2", "other")
	require.NoError(t, err)

	chats, err := r.GetChats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, b.ID, chats[0].ID)
	assert.Equal(t, a.ID, chats[1].ID)

	none, err := r.GetChats(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMessages(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	c, err := r.CreateChat(ctx, "u1", "chat")
	require.NoError(t, err)

	_, err = r.AddMessage(ctx, c.ID, models.SenderUser, "hello")
	require.NoError(t, err)
	_, err = r.AddMessage(ctx, c.ID, models.SenderBot, "hi there")
	require.NoError(t, err)

	msgs, err := r.GetMessagesByChatID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, c.ID, msgs[0].ChatID)
	assert.Equal(t, models.SenderBot, msgs[1].Sender)
	assert.True(t, msgs[0].Timestamp.Before(msgs[1].Timestamp))

	full, err := r.GetChatWithMessages(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, full)
	assert.Len(t, full.Messages, 2)

	_, err = r.AddMessage(ctx, "missing", models.SenderUser, "x")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetChatWithMessages_EmptyIsNotNil(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	c, err := r.CreateChat(ctx, "u1", "empty")
	require.NoError(t, err)

	full, err := r.GetChatWithMessages(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, full)
	assert.NotNil(t, full.Messages)
	assert.Empty(t, full.Messages)

	none, err := r.GetChatWithMessages(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpdateChatTitle(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	c, err := r.CreateChat(ctx, "u1", "New chat")
	require.NoError(t, err)
	require.NoError(t, r.UpdateChatTitle(ctx, c.ID, "Loan questions"))

	got, err := r.GetChatByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loan questions", got.Title)

	assert.ErrorIs(t, r.UpdateChatTitle(ctx, "missing", "x"), common.ErrorNotFound)
}

func TestDeleteChat_CascadesToMessages(t *testing.T) {
	r, st := setupRepo(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		c, err := r.CreateChat(ctx, "u1", "chat")
		require.NoError(t, err)
		for j := 0; j <= i; j++ {
			_, err := r.AddMessage(ctx, c.ID, models.SenderUser, "m")
			require.NoError(t, err)
		}
		ids = append(ids, c.ID)
	}

	for _, id := range ids {
		require.NoError(t, r.DeleteChat(ctx, id))

		msgs, err := r.GetMessagesByChatID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		c, err := r.GetChatByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, c)
	}

	res, err := st.Execute(ctx, `SELECT count(*) AS n FROM messages`)
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Rows[0].Int("n"))

	assert.ErrorIs(t, r.DeleteChat(ctx, ids[0]), common.ErrorNotFound)
}

func TestClearHistory(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	mine, err := r.CreateChat(ctx, "u1", "mine")
	require.NoError(t, err)
	_, err = r.AddMessage(ctx, mine.ID, models.SenderUser, "m")
	require.NoError(t, err)
	theirs, err := r.CreateChat(ctx, "u2", "theirs")
	require.NoError(t, err)
	_, err = r.AddMessage(ctx, theirs.ID, models.SenderUser, "m")
	require.NoError(t, err)

	require.NoError(t, r.ClearHistory(ctx, "u1"))

	chats, err := r.GetChats(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, chats)
	msgs, err := r.GetMessagesByChatID(ctx, mine.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = r.GetMessagesByChatID(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
