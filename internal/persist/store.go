package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/voxnotelabs/voxnote/internal/config"
	"github.com/voxnotelabs/voxnote/internal/notes"
)

const notesKey = "notes"

// Store is a SQLite-backed string-keyed blob store holding the full note
// list as one JSON snapshot. Corrupt or missing data loads as an empty list;
// the recovery is logged and counted rather than surfaced as an error.
type Store struct {
	db         *sql.DB
	log        *slog.Logger
	clock      func() time.Time
	recoveries atomic.Int64
	onRecover  func(op string, err error)
}

// Open initializes the store, creating the data directory and schema as
// needed.
func Open(ctx context.Context, cfg config.PersistConfig, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{
		db:    db,
		log:   log.With(slog.String("component", "persist")),
		clock: time.Now,
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save serializes the full note list and overwrites the stored blob
// unconditionally.
func (s *Store) Save(ctx context.Context, list []notes.Note) error {
	if list == nil {
		list = []notes.Note{}
	}
	blob, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		notesKey, blob, s.clock().UTC())
	if err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	return nil
}

// Load returns the persisted note list. Absent or corrupt data yields an
// empty list, never an error; corrupt data is discarded and counted.
func (s *Store) Load(ctx context.Context) []notes.Note {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, notesKey).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.recover("read notes blob", err)
		return nil
	}

	var list []notes.Note
	if err := json.Unmarshal(blob, &list); err != nil {
		s.recover("decode notes blob", err)
		return nil
	}
	return list
}

// Recoveries reports how many times corrupt or unreadable data was discarded.
func (s *Store) Recoveries() int64 {
	return s.recoveries.Load()
}

// OnRecover registers a hook invoked whenever persisted data is discarded,
// in addition to the counter and warn log. Set it before the first Load.
func (s *Store) OnRecover(fn func(op string, err error)) {
	s.onRecover = fn
}

func (s *Store) recover(op string, err error) {
	s.recoveries.Add(1)
	s.log.Warn("persisted notes discarded, recovering with empty list",
		slog.String("op", op),
		slog.String("error", err.Error()))
	if s.onRecover != nil {
		s.onRecover(op, err)
	}
}
