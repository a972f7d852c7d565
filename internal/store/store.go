// Package store keeps a local SQLite journal of assistant sessions and the
// turns rendered in them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"AssistDesk/internal/session"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT,
	start_time DATETIME
);
CREATE TABLE IF NOT EXISTS turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT,
	turn_id TEXT,
	role TEXT,
	content TEXT,
	raw INTEGER,
	position INTEGER,
	attachments TEXT,
	links TEXT,
	timestamp DATETIME,
	FOREIGN KEY(session_id) REFERENCES sessions(id)
);
CREATE INDEX IF NOT EXISTS turns_session ON turns(session_id, position);`

// Store is the transcript journal
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// SessionSummary is a journaled session with its turn count
type SessionSummary struct {
	session.ChatSession
	Turns int
}

// Open opens or creates the journal at path
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession records a session. A later save with an empty title keeps the stored one.
func (s *Store) SaveSession(ctx context.Context, sess session.ChatSession) error {
	startTime := sess.CreatedAt
	if startTime.IsZero() {
		startTime = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, start_time) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title WHERE excluded.title != ''`,
		sess.ID, sess.Title, startTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// AppendTurn journals one turn under sessionID, registering the session if needed
func (s *Store) AppendTurn(ctx context.Context, sessionID string, msg session.ChatMessage) error {
	attachments, err := json.Marshal(msg.Attachments)
	if err != nil {
		return fmt.Errorf("failed to marshal attachments: %w", err)
	}
	links, err := json.Marshal(msg.Links)
	if err != nil {
		return fmt.Errorf("failed to marshal links: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (id, title, start_time) VALUES (?, '', ?)",
		sessionID, msg.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to register session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (session_id, turn_id, role, content, raw, position, attachments, links, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, msg.ID, string(msg.Role), msg.Content, msg.Raw, msg.Position,
		string(attachments), string(links), msg.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Debug("turn journaled", "session_id", sessionID, "turn_id", msg.ID, "role", msg.Role)
	return nil
}

// Sessions lists journaled sessions, newest first
func (s *Store) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.start_time,
			(SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id)
		FROM sessions s
		ORDER BY s.start_time DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	summaries := []SessionSummary{}
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.CreatedAt, &sum.Turns); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Transcript returns the journaled turns of sessionID in display order
func (s *Store) Transcript(ctx context.Context, sessionID string) ([]session.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT turn_id, role, content, raw, position, attachments, links, timestamp
		FROM turns WHERE session_id = ? ORDER BY position, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	defer rows.Close()

	messages := []session.ChatMessage{}
	for rows.Next() {
		var (
			msg                session.ChatMessage
			role               string
			attachments, links string
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Raw, &msg.Position,
			&attachments, &links, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		msg.Role = session.Role(role)
		if err := json.Unmarshal([]byte(attachments), &msg.Attachments); err != nil {
			return nil, fmt.Errorf("failed to decode attachments: %w", err)
		}
		if err := json.Unmarshal([]byte(links), &msg.Links); err != nil {
			return nil, fmt.Errorf("failed to decode links: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
