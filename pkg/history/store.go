// Package history keeps a local log of pictures sent from the booth.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sends (
    id           TEXT PRIMARY KEY,
    created_ns   INTEGER NOT NULL,
    recipients   TEXT NOT NULL,
    caption      TEXT NOT NULL DEFAULT '',
    frame_id     TEXT NOT NULL DEFAULT '',
    mime_type    TEXT NOT NULL,
    size         INTEGER NOT NULL,
    success      INTEGER NOT NULL,
    message_ids  TEXT NOT NULL DEFAULT '[]',
    error        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sends_created ON sends(created_ns);
`

// MaxRecent caps Recent.
const MaxRecent = 500

// ErrClosed is returned after Close.
var ErrClosed = errors.New("history: store closed")

// Entry is one send attempt.
type Entry struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Recipients []string  `json:"recipients"`
	Caption    string    `json:"caption"`
	FrameID    string    `json:"frame_id"`
	MimeType   string    `json:"mime_type"`
	Size       int       `json:"size"`
	Success    bool      `json:"success"`
	MessageIDs []string  `json:"message_ids"`
	Error      string    `json:"error,omitempty"`
}

// Store is the SQLite-backed send log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory store.
func Open(path string) (*Store, error) {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: create database directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	// One writer keeps WAL happy and makes in-memory databases survive.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record stores e, filling in ID and CreatedAt when empty.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if s.db == nil {
		return ErrClosed
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	recipients, err := json.Marshal(nonNil(e.Recipients))
	if err != nil {
		return fmt.Errorf("history: encode recipients: %w", err)
	}
	ids, err := json.Marshal(nonNil(e.MessageIDs))
	if err != nil {
		return fmt.Errorf("history: encode message ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sends (id, created_ns, recipients, caption, frame_id, mime_type, size, success, message_ids, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.UnixNano(), string(recipients), e.Caption, e.FrameID, e.MimeType, e.Size, e.Success, string(ids), e.Error,
	)
	if err != nil {
		return fmt.Errorf("history: insert send: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_ns, recipients, caption, frame_id, mime_type, size, success, message_ids, error
		FROM sends ORDER BY created_ns DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query sends: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			createdNs  int64
			recipients string
			ids        string
		)
		if err := rows.Scan(&e.ID, &createdNs, &recipients, &e.Caption, &e.FrameID, &e.MimeType, &e.Size, &e.Success, &ids, &e.Error); err != nil {
			return nil, fmt.Errorf("history: scan send: %w", err)
		}
		e.CreatedAt = time.Unix(0, createdNs)
		if err := json.Unmarshal([]byte(recipients), &e.Recipients); err != nil {
			return nil, fmt.Errorf("history: decode recipients: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &e.MessageIDs); err != nil {
			return nil, fmt.Errorf("history: decode message ids: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of recorded sends and how many succeeded.
func (s *Store) Count(ctx context.Context) (total, succeeded int, err error) {
	if s.db == nil {
		return 0, 0, ErrClosed
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(success), 0) FROM sends`).Scan(&total, &succeeded)
	if err != nil {
		return 0, 0, fmt.Errorf("history: count sends: %w", err)
	}
	return total, succeeded, nil
}

// Prune deletes entries older than before and returns how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sends WHERE created_ns < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
