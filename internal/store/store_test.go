package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"AssistDesk/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTranscript_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveSession(ctx, session.ChatSession{ID: "s1", Title: "AI助手會話 2025/7/1 10:00:00", CreatedAt: ts}))

	turns := []session.ChatMessage{
		{
			ID: "t1", Role: session.RoleUser, Content: "看看這張圖", Position: 1, Timestamp: ts,
			Attachments: []session.FileRef{{Name: "a.png", URL: "https://cdn/a.png", Type: "image/png"}},
			Links:       []string{"https://drive.google.com/file/d/x"},
		},
		{ID: "t2", Role: session.RoleAssistant, Content: "<div>form</div>", Raw: true, Position: 2, Timestamp: ts.Add(time.Second)},
	}
	for _, turn := range turns {
		require.NoError(t, s.AppendTurn(ctx, "s1", turn))
	}

	got, err := s.Transcript(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, session.RoleUser, got[0].Role)
	assert.Equal(t, turns[0].Attachments, got[0].Attachments)
	assert.Equal(t, turns[0].Links, got[0].Links)
	assert.True(t, got[0].Timestamp.Equal(ts))

	assert.True(t, got[1].Raw)
	assert.Equal(t, "<div>form</div>", got[1].Content)
	assert.Nil(t, got[1].Attachments)
}

func TestTranscript_UnknownSession(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Transcript(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	older := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	require.NoError(t, s.SaveSession(ctx, session.ChatSession{ID: "old", Title: "first", CreatedAt: older}))
	require.NoError(t, s.AppendTurn(ctx, "new", session.ChatMessage{ID: "t1", Role: session.RoleUser, Content: "hi", Position: 1, Timestamp: newer}))
	require.NoError(t, s.AppendTurn(ctx, "new", session.ChatMessage{ID: "t2", Role: session.RoleAssistant, Content: "hello", Position: 2, Timestamp: newer}))

	// An empty title does not overwrite a stored one
	require.NoError(t, s.SaveSession(ctx, session.ChatSession{ID: "old", CreatedAt: older}))

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, 2, sessions[0].Turns)
	assert.Equal(t, "old", sessions[1].ID)
	assert.Equal(t, "first", sessions[1].Title)
	assert.Zero(t, sessions[1].Turns)
}
