// Package sessioninfo stores the user's annotations on conversations
// (custom names, pins, archive flags, continuation links) in SQLite.
//
// Claude Code's own logs are append-only and owned by Claude Code, so
// annotations live in a separate database keyed by session id.
package sessioninfo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kylesnowschwartz/claude-history/history"
)

const schema = `CREATE TABLE IF NOT EXISTS session_info (
	session_id              TEXT PRIMARY KEY,
	custom_name             TEXT NOT NULL DEFAULT '',
	created_at              TEXT NOT NULL,
	updated_at              TEXT NOT NULL,
	version                 INTEGER NOT NULL DEFAULT 4,
	pinned                  INTEGER NOT NULL DEFAULT 0,
	archived                INTEGER NOT NULL DEFAULT 0,
	continuation_session_id TEXT NOT NULL DEFAULT '',
	initial_commit_head     TEXT NOT NULL DEFAULT '',
	permission_mode         TEXT NOT NULL DEFAULT 'default'
);`

// pragmas keep sqlite responsive when a browser and a CLI write at once.
var pragmas = []string{
	"PRAGMA busy_timeout = 5000;",
	"PRAGMA journal_mode = WAL;",
}

// Store is a SQLite-backed history.SessionInfoProvider.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ history.SessionInfoProvider = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sessioninfo: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", strings.TrimSuffix(p, ";"), err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SessionInfo returns the stored annotations for sessionID. A session that
// was never annotated gets history.DefaultSessionInfo.
func (s *Store) SessionInfo(ctx context.Context, sessionID string) (history.SessionInfo, error) {
	var info history.SessionInfo
	err := s.db.QueryRowContext(ctx, `SELECT custom_name, created_at, updated_at, version,
		pinned, archived, continuation_session_id, initial_commit_head, permission_mode
		FROM session_info WHERE session_id = ?`, sessionID).Scan(
		&info.CustomName, &info.CreatedAt, &info.UpdatedAt, &info.Version,
		&info.Pinned, &info.Archived, &info.ContinuationSessionID,
		&info.InitialCommitHead, &info.PermissionMode,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return history.DefaultSessionInfo(s.now()), nil
	}
	if err != nil {
		return history.SessionInfo{}, fmt.Errorf("reading session %s: %w", sessionID, err)
	}
	return info, nil
}

// SetPinned pins or unpins a session.
func (s *Store) SetPinned(ctx context.Context, sessionID string, pinned bool) error {
	return s.set(ctx, sessionID, "pinned", pinned)
}

// SetArchived archives or restores a session.
func (s *Store) SetArchived(ctx context.Context, sessionID string, archived bool) error {
	return s.set(ctx, sessionID, "archived", archived)
}

// SetCustomName names a session. An empty name clears it.
func (s *Store) SetCustomName(ctx context.Context, sessionID, name string) error {
	return s.set(ctx, sessionID, "custom_name", strings.TrimSpace(name))
}

// SetContinuation records the session that continues sessionID.
func (s *Store) SetContinuation(ctx context.Context, sessionID, continuationID string) error {
	return s.set(ctx, sessionID, "continuation_session_id", continuationID)
}

// set upserts one column. column is never user input.
func (s *Store) set(ctx context.Context, sessionID, column string, value any) error {
	if sessionID == "" {
		return errors.New("sessioninfo: empty session id")
	}
	ts := history.DefaultSessionInfo(s.now()).UpdatedAt
	query := fmt.Sprintf(`INSERT INTO session_info (session_id, created_at, updated_at, %[1]s)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET %[1]s = excluded.%[1]s, updated_at = excluded.updated_at`, column)
	if _, err := s.db.ExecContext(ctx, query, sessionID, ts, ts, value); err != nil {
		return fmt.Errorf("updating %s for session %s: %w", column, sessionID, err)
	}
	return nil
}
