// Package ledger keeps an append-only SQLite journal of override decisions,
// warnings and shutdowns. It is an audit trail only: nothing in the agent or
// the override gate reads it back to make a decision.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/logger"
	"github.com/julianstephens/lightsout/internal/migration"
	"github.com/julianstephens/lightsout/migrations"
)

// tsLayout is fixed-width UTC so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Event is one journal entry.
type Event struct {
	ID      string
	At      time.Time
	Kind    constants.EventKind
	NightID string
	Code    string
	Detail  string
	PID     int
}

// Journal is the write side of the ledger.
type Journal interface {
	Record(ctx context.Context, e Event) error
}

type discard struct{}

func (discard) Record(context.Context, Event) error { return nil }

// Discard is a Journal that drops every event.
var Discard Journal = discard{}

// Ledger is a Journal backed by an SQLite file.
type Ledger struct {
	path string
	db   *sql.DB
}

// Open opens (creating if needed) the ledger at path and migrates its schema.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.StateDirMode); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	// The agent and short-lived override processes share the file.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	l := &Ledger{path: path, db: db}
	if err := l.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate(ctx context.Context) error {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	runner := migration.NewRunner(l.db, subFS)
	_, err = runner.Apply(ctx, func(msg string, keyvals ...any) {
		logger.Info(msg, append([]any{"db", l.path}, keyvals...)...)
	})
	return err
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Record appends e. A missing ID, timestamp or PID is filled in.
func (l *Ledger) Record(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.PID == 0 {
		e.PID = os.Getpid()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO events (id, at, kind, night_id, code, detail, pid) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.At.UTC().Format(tsLayout), string(e.Kind), e.NightID, e.Code, e.Detail, e.PID)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", e.Kind, err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, at, kind, night_id, code, detail, pid FROM events ORDER BY at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e    Event
			at   string
			kind string
		)
		if err := rows.Scan(&e.ID, &at, &kind, &e.NightID, &e.Code, &e.Detail, &e.PID); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = constants.EventKind(kind)
		if e.At, err = time.Parse(tsLayout, at); err != nil {
			return nil, fmt.Errorf("event %s: bad timestamp %q: %w", e.ID, at, err)
		}
		e.At = e.At.Local()
		events = append(events, e)
	}
	return events, rows.Err()
}

func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Log records e on j and logs, rather than returns, any failure.
func Log(ctx context.Context, j Journal, e Event) {
	if j == nil {
		return
	}
	if err := j.Record(ctx, e); err != nil {
		logger.Warn("Failed to journal event", "kind", e.Kind, "error", err)
	}
}
