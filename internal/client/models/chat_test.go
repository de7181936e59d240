package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatFromDTO_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		wantID string
		wantTS time.Time
	}{
		{"id wins", `{"id":"s1","local_id":"l1","timestamp":"2026-01-01T00:00:00Z"}`, "s1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"server_id next", `{"server_id":"s2","local_id":"l2","created_at":"2026-01-02"}`, "s2", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"local_id last", `{"local_id":"l3","createdAt":"2026-01-03 04:05:06"}`, "l3", time.Date(2026, 1, 3, 4, 5, 6, 0, time.UTC)},
		{"timestamp beats created_at", `{"local_id":"l4","timestamp":"2026-02-01","created_at":"2026-03-01"}`, "l4", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"missing everything", `{}`, "", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d ChatDTO
			require.NoError(t, json.Unmarshal([]byte(tt.in), &d))
			c := ChatFromDTO(d)
			assert.Equal(t, tt.wantID, c.ID)
			assert.True(t, tt.wantTS.Equal(c.CreatedAt), "got %v", c.CreatedAt)
			assert.Nil(t, c.Messages)
		})
	}
}

func TestChatFromDTO_WithMessages(t *testing.T) {
	var d ChatDTO
	require.NoError(t, json.Unmarshal([]byte(`{"local_id":"c1","userId":"u1","title":"T","messages":[]}`), &d))
	c := ChatFromDTO(d)
	assert.Equal(t, "u1", c.UserID)
	assert.NotNil(t, c.Messages)
	assert.Empty(t, c.Messages)
}

func TestMessageFromDTO(t *testing.T) {
	var d MessageDTO
	require.NoError(t, json.Unmarshal([]byte(`{"local_id":"m1","chatId":"c1","sender":"bot","content":"hi","created_at":1767225600000}`), &d))
	m := MessageFromDTO(d)

	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "c1", m.ChatID)
	assert.Equal(t, SenderBot, m.Sender)
	assert.Equal(t, "hi", m.Content)
	assert.True(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Equal(m.Timestamp))
}

func TestParseSender(t *testing.T) {
	for _, s := range []string{"user", "bot", "system"} {
		got, err := ParseSender(s)
		require.NoError(t, err)
		assert.Equal(t, Sender(s), got)
	}
	_, err := ParseSender("robot")
	assert.Error(t, err)
}
