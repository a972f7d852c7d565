package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"AssistDesk/internal/backend"
	"AssistDesk/internal/config"
	"AssistDesk/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	calls   int
	lastIn  any
	lastURL string
	data    string
	err     error
}

func (f *fakeAPI) DoJSON(ctx context.Context, method, path string, in, out any) (*transport.Response, error) {
	f.calls++
	f.lastIn = in
	f.lastURL = path
	if f.err != nil {
		return nil, f.err
	}
	if out != nil {
		if err := json.Unmarshal([]byte(f.data), out); err != nil {
			return nil, err
		}
	}
	return &transport.Response{Status: http.StatusOK}, nil
}

func newTestManager(api API) *Manager {
	m := NewManager(api, "current_user", slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.now = func() time.Time { return time.Date(2024, 7, 1, 10, 30, 0, 0, time.UTC) }
	return m
}

func TestManager_Create(t *testing.T) {
	api := &fakeAPI{data: `{"session_id": "sess-1"}`}
	m := newTestManager(api)

	id, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)
	assert.Equal(t, "sess-1", m.Current())
	assert.Equal(t, config.PathSessions, api.lastURL)

	req, ok := api.lastIn.(backend.CreateSessionRequest)
	require.True(t, ok)
	assert.Equal(t, "current_user", req.UserID)
	assert.True(t, strings.HasPrefix(req.Title, TitlePrefix))
	assert.Equal(t, "AI助手會話 2024/7/1 10:30:00", req.Title)

	sess, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, req.Title, sess.Title)
}

func TestManager_CreateFailureLeavesSessionUnset(t *testing.T) {
	api := &fakeAPI{err: errors.New("connection refused")}
	m := newTestManager(api)

	_, err := m.Create(context.Background())
	require.Error(t, err)
	assert.Empty(t, m.Current())

	_, ok := m.Session()
	assert.False(t, ok)
}

func TestManager_CreateWithoutIdentifier(t *testing.T) {
	m := newTestManager(&fakeAPI{data: `{}`})

	_, err := m.Create(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Empty(t, m.Current())
}

func TestManager_EnsureCreatesOnce(t *testing.T) {
	api := &fakeAPI{data: `{"session_id": "sess-1"}`}
	m := newTestManager(api)

	for i := 0; i < 3; i++ {
		id, err := m.Ensure(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "sess-1", id)
	}
	assert.Equal(t, 1, api.calls)
}

func TestManager_EnsureRetriesAfterFailure(t *testing.T) {
	api := &fakeAPI{err: errors.New("down")}
	m := newTestManager(api)

	_, err := m.Ensure(context.Background())
	require.Error(t, err)

	api.err = nil
	api.data = `{"session_id": "sess-2"}`
	id, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-2", id)
	assert.Equal(t, 2, api.calls)
}

func TestManager_Adopt(t *testing.T) {
	m := newTestManager(&fakeAPI{data: `{"session_id": "sess-1"}`})

	m.Adopt("")
	assert.Empty(t, m.Current())

	m.Adopt("resumed")
	assert.Equal(t, "resumed", m.Current())

	m.Adopt("rotated")
	assert.Equal(t, "rotated", m.Current())
}
