package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"AssistDesk/internal/backend"
	"AssistDesk/internal/config"
	"AssistDesk/internal/transport"
)

// ErrNoSession is returned when no session identifier is available
var ErrNoSession = errors.New("no chat session")

// TitlePrefix starts every generated session title
const TitlePrefix = "AI助手會話 "

// API is the slice of the transport the manager needs
type API interface {
	DoJSON(ctx context.Context, method, path string, in, out any) (*transport.Response, error)
}

// Manager owns the current chat session identifier
type Manager struct {
	api    API
	userID string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *ChatSession
}

// NewManager creates a manager with no current session
func NewManager(api API, userID string, logger *slog.Logger) *Manager {
	return &Manager{
		api:    api,
		userID: userID,
		logger: logger,
		now:    time.Now,
	}
}

// Create asks the backend for a new session and makes it current. On failure
// the current session is left as it was.
func (m *Manager) Create(ctx context.Context) (string, error) {
	now := m.now()
	title := TitlePrefix + now.Format("2006/1/2 15:04:05")

	var data backend.SessionData
	_, err := m.api.DoJSON(ctx, http.MethodPost, config.PathSessions, backend.CreateSessionRequest{
		UserID: m.userID,
		Title:  title,
	}, &data)
	if err != nil {
		m.logger.Error("failed to create chat session", "error", err)
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	if data.SessionID == "" {
		m.logger.Error("session creation returned no identifier")
		return "", fmt.Errorf("failed to create session: %w", ErrNoSession)
	}
	if data.Title != "" {
		title = data.Title
	}

	m.mu.Lock()
	m.current = &ChatSession{ID: data.SessionID, Title: title, CreatedAt: now}
	m.mu.Unlock()

	m.logger.Info("created chat session", "session_id", data.SessionID)
	return data.SessionID, nil
}

// Ensure returns the current session, creating one first if none exists
func (m *Manager) Ensure(ctx context.Context) (string, error) {
	if id := m.Current(); id != "" {
		return id, nil
	}
	return m.Create(ctx)
}

// Current returns the current session identifier, or "" if none
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.ID
}

// Session returns a copy of the current session
func (m *Manager) Session() (ChatSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ChatSession{}, false
	}
	return *m.current, true
}

// Adopt makes id the current session identifier. The server may confirm or
// rotate the session with every reply, so each reply is authoritative.
func (m *Manager) Adopt(id string) {
	if id == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		m.current = &ChatSession{ID: id, CreatedAt: m.now()}
		m.logger.Info("adopted chat session", "session_id", id)
		return
	}
	if m.current.ID != id {
		m.logger.Info("chat session rotated by server", "previous", m.current.ID, "session_id", id)
		m.current.ID = id
	}
}
