// File: internal/journal/journal.go

// Package journal persists engine events in an embedded SQLite database
// so page-cleanup activity survives the process and can be inspected
// after a run. The journal is itself a sink and plugs into the router
// like any other consumer.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/wildmooseai/pageprep/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	at         TEXT NOT NULL,
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
`

// Journal is a SQLite-backed event store.
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates or opens the journal at path and ensures the schema.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal %q: %w", path, err)
	}
	// The driver serializes access itself; one connection avoids
	// SQLITE_BUSY churn under concurrent emits.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensuring journal schema: %w", err)
	}

	logger.Named("journal").Debug("Journal opened.", zap.String("path", path))
	return &Journal{db: db, logger: logger.Named("journal")}, nil
}

// Emit records one event. Implements sink.Sink.
func (j *Journal) Emit(ctx context.Context, ev schemas.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO events (session_id, kind, at, payload) VALUES (?, ?, ?, ?)`,
		ev.SessionID, string(ev.Kind), ev.At.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("journaling event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]schemas.Event, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT payload FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var events []schemas.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		var ev schemas.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decoding journaled event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountByKind returns how many events of each kind have been recorded
// for a session. An empty sessionID counts across all sessions.
func (j *Journal) CountByKind(ctx context.Context, sessionID string) (map[schemas.EventKind]int, error) {
	query := `SELECT kind, COUNT(*) FROM events GROUP BY kind`
	args := []any{}
	if sessionID != "" {
		query = `SELECT kind, COUNT(*) FROM events WHERE session_id = ? GROUP BY kind`
		args = append(args, sessionID)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting journal events: %w", err)
	}
	defer rows.Close()

	counts := make(map[schemas.EventKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning journal count: %w", err)
		}
		counts[schemas.EventKind(kind)] = n
	}
	return counts, rows.Err()
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
