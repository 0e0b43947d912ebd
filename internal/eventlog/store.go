package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/voxnotelabs/voxnote/internal/config"
)

// Event types recorded on the capture timeline.
const (
	TypeCaptureStarted     = "capture.started"
	TypeCaptureStopped     = "capture.stopped"
	TypeCaptureError       = "capture.error"
	TypeTranscriptFinal    = "transcript.final"
	TypeNoteCreated        = "note.created"
	TypeNoteDeleted        = "note.deleted"
	TypeNotesCleared       = "notes.cleared"
	TypeSummarizeFailed    = "summarize.failed"
	TypePersistenceRecover = "persistence.recovered"
)

// Event is one recorded timeline entry for a capture session.
type Event struct {
	ID        int64
	CaptureID string
	Type      string
	Detail    string
	Language  string
	CreatedAt time.Time
}

// Store is an append-only SQLite log of capture lifecycle events. It is an
// observability aid; the note pipeline never reads it back on the hot path.
type Store struct {
	db    *sql.DB
	cfg   config.EventLogConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the event log according to config. A disabled log returns
// a store whose appends are no-ops.
func Open(ctx context.Context, cfg config.EventLogConfig, log *slog.Logger) (*Store, error) {
	if !cfg.Enabled {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("event log vacuum failed", slog.String("error", err.Error()))
		}
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("event log prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS captures (
    capture_id TEXT PRIMARY KEY,
    language TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS capture_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    capture_id TEXT REFERENCES captures(capture_id) ON DELETE CASCADE,
    event_type TEXT NOT NULL,
    detail TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_capture_events_capture_created
    ON capture_events(capture_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginCapture records the start of a capture session.
func (s *Store) BeginCapture(ctx context.Context, captureID, language string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO captures(capture_id, language, created_at) VALUES(?, ?, ?)
		 ON CONFLICT(capture_id) DO UPDATE SET language=excluded.language`,
		captureID, language, s.clock().UTC())
	return err
}

// Append writes an event onto the timeline. Events outside any capture
// session (store-wide mutations, persistence recoveries) carry a NULL
// capture id, keeping them out of the capture cascade.
func (s *Store) Append(ctx context.Context, evt Event) error {
	if s.db == nil {
		return nil
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = s.clock().UTC()
	}
	captureID := sql.NullString{String: evt.CaptureID, Valid: evt.CaptureID != ""}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO capture_events(capture_id, event_type, detail, created_at)
		 VALUES(?, ?, ?, ?)`,
		captureID, evt.Type, evt.Detail, evt.CreatedAt)
	return err
}

// ListCaptureEvents retrieves up to limit events for one capture, oldest
// first.
func (s *Store) ListCaptureEvents(ctx context.Context, captureID string, limit int) ([]Event, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, capture_id, event_type, detail, created_at
		 FROM capture_events WHERE capture_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`,
		captureID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var created string
		if err := rows.Scan(&e.ID, &e.CaptureID, &e.Type, &e.Detail, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune applies configured retention: events older than retention_days and
// captures beyond max_captures are dropped. Deleting a capture cascades to
// its events.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour).UTC()
		if _, err = tx.ExecContext(ctx, `DELETE FROM capture_events WHERE created_at < ?`, cutoff); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM captures WHERE created_at < ?`, cutoff); err != nil {
			return err
		}
	}
	if s.cfg.MaxCaptures > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM captures WHERE capture_id IN (
			SELECT capture_id FROM captures ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxCaptures)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
