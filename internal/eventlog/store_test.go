package eventlog

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/voxnotelabs/voxnote/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenDisabled(t *testing.T) {
	cfg := config.EventLogConfig{Enabled: false}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Append(context.Background(), Event{CaptureID: "c1", Type: TypeCaptureStarted}); err != nil {
		t.Fatalf("append on disabled log must be a no-op, got %v", err)
	}
	events, err := s.ListCaptureEvents(context.Background(), "c1", 10)
	if err != nil || len(events) != 0 {
		t.Fatalf("expected no events, got %v (%v)", events, err)
	}
}

func TestAppendAndList(t *testing.T) {
	cfg := config.EventLogConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "events.db")}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open event log: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	if err := s.BeginCapture(ctx, "capture-1", "en-US"); err != nil {
		t.Fatalf("begin capture: %v", err)
	}
	if err := s.Append(ctx, Event{CaptureID: "capture-1", Type: TypeCaptureStarted}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, Event{CaptureID: "capture-1", Type: TypeTranscriptFinal, Detail: "buy milk"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := s.ListCaptureEvents(ctx, "capture-1", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != TypeCaptureStarted || events[1].Type != TypeTranscriptFinal {
		t.Fatalf("unexpected order: %v, %v", events[0].Type, events[1].Type)
	}
	if events[1].Detail != "buy milk" {
		t.Fatalf("unexpected detail: %q", events[1].Detail)
	}
}

func TestPruneByDaysAndCaptures(t *testing.T) {
	cfg := config.EventLogConfig{
		Enabled:       true,
		Path:          filepath.Join(t.TempDir(), "events.db"),
		RetentionDays: 1,
		MaxCaptures:   1,
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open event log: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	s.clock = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	if err := s.BeginCapture(ctx, "old-capture", "en-US"); err != nil {
		t.Fatalf("begin capture: %v", err)
	}
	if err := s.Append(ctx, Event{CaptureID: "old-capture", Type: TypeNoteCreated}); err != nil {
		t.Fatalf("append: %v", err)
	}

	s.clock = func() time.Time { return time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC) }
	if err := s.BeginCapture(ctx, "new-capture", "en-US"); err != nil {
		t.Fatalf("begin capture: %v", err)
	}
	if err := s.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	events, err := s.ListCaptureEvents(ctx, "old-capture", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected old capture pruned, got %d events", len(events))
	}
}

func TestMaxCapturesPruneCascadesToEvents(t *testing.T) {
	cfg := config.EventLogConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "events.db"),
		MaxCaptures: 1,
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open event log: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	s.clock = func() time.Time { return time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC) }
	if err := s.BeginCapture(ctx, "old-capture", "en-US"); err != nil {
		t.Fatalf("begin capture: %v", err)
	}
	if err := s.Append(ctx, Event{CaptureID: "old-capture", Type: TypeNoteCreated}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// An event outside any capture must survive the capture cascade.
	if err := s.Append(ctx, Event{Type: TypeNotesCleared}); err != nil {
		t.Fatalf("append capture-less event: %v", err)
	}

	s.clock = func() time.Time { return time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC) }
	if err := s.BeginCapture(ctx, "new-capture", "en-US"); err != nil {
		t.Fatalf("begin capture: %v", err)
	}
	if err := s.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	events, err := s.ListCaptureEvents(ctx, "old-capture", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("pruned capture must not strand events, got %d", len(events))
	}

	var orphans int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM capture_events WHERE capture_id IS NULL`).Scan(&orphans); err != nil {
		t.Fatalf("count capture-less events: %v", err)
	}
	if orphans != 1 {
		t.Fatalf("capture-less events must survive the cascade, got %d", orphans)
	}
}
