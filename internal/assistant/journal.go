package assistant

import (
	"context"
	"log/slog"
	"sync"

	"AssistDesk/internal/render"
	"AssistDesk/internal/session"
	"AssistDesk/internal/store"
)

// Journal records every rendered turn in the transcript store under the
// session that is current when the turn appears. Typing placeholders and turns
// rendered before any session exists are not recorded.
type Journal struct {
	store    *store.Store
	sessions *session.Manager
	logger   *slog.Logger

	mu    sync.Mutex
	saved string
}

// NewJournal creates a journal view
func NewJournal(st *store.Store, sessions *session.Manager, logger *slog.Logger) *Journal {
	return &Journal{store: st, sessions: sessions, logger: logger}
}

// Rendered journals t
func (j *Journal) Rendered(t render.Turn) {
	if t.Typing {
		return
	}
	sess, ok := j.sessions.Session()
	if !ok {
		j.logger.Debug("turn not journaled, no session", "turn_id", t.ID)
		return
	}

	ctx := context.Background()

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.saved != sess.ID {
		if err := j.store.SaveSession(ctx, sess); err != nil {
			j.logger.Error("failed to journal session", "session_id", sess.ID, "error", err)
		} else {
			j.saved = sess.ID
		}
	}
	if err := j.store.AppendTurn(ctx, sess.ID, t.ChatMessage); err != nil {
		j.logger.Error("failed to journal turn", "session_id", sess.ID, "turn_id", t.ID, "error", err)
	}
}

// Removed is a no-op; only typing placeholders are ever removed
func (j *Journal) Removed(t render.Turn) {}
