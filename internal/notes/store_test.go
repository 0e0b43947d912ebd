package notes

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingSnap captures every snapshot handed to the persistence adapter.
type recordingSnap struct {
	mu        sync.Mutex
	snapshots [][]Note
}

func (r *recordingSnap) Save(_ context.Context, list []Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]Note, len(list))
	copy(copied, list)
	r.snapshots = append(r.snapshots, copied)
	return nil
}

func (r *recordingSnap) last() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

type countingRenderer struct {
	mu    sync.Mutex
	calls int
	last  []Note
}

func (c *countingRenderer) Render(list []Note) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.last = append([]Note(nil), list...)
	return nil
}

func TestPrependOrdering(t *testing.T) {
	snap := &recordingSnap{}
	s := NewStore(snap, nil, newLogger())

	s.Prepend(context.Background(), New(1, "first", nil))
	s.Prepend(context.Background(), New(2, "second", []string{"b"}))

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(list))
	}
	if list[0].ID != 2 || list[1].ID != 1 {
		t.Fatalf("expected newest first, got %v", list)
	}

	persisted := snap.last()
	if len(persisted) != 2 || persisted[0].ID != 2 {
		t.Fatalf("snapshot must match store order, got %v", persisted)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	snap := &recordingSnap{}
	s := NewStore(snap, nil, newLogger())
	s.Prepend(context.Background(), New(1, "keep", nil))
	s.Prepend(context.Background(), New(2, "drop", nil))

	if !s.Remove(context.Background(), 2) {
		t.Fatal("expected removal of existing note")
	}
	if s.Remove(context.Background(), 2) {
		t.Fatal("second removal must report false")
	}
	if s.Remove(context.Background(), 99) {
		t.Fatal("removal of unknown id must report false")
	}
	list := s.List()
	if len(list) != 1 || list[0].ID != 1 {
		t.Fatalf("store changed by no-op removals: %v", list)
	}
}

func TestClear(t *testing.T) {
	snap := &recordingSnap{}
	s := NewStore(snap, nil, newLogger())
	s.Prepend(context.Background(), New(1, "a", nil))
	s.Prepend(context.Background(), New(2, "b", nil))

	s.Clear(context.Background())
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
	if persisted := snap.last(); len(persisted) != 0 {
		t.Fatalf("clear must snapshot the empty list, got %v", persisted)
	}
}

func TestEveryMutationRerenders(t *testing.T) {
	r := &countingRenderer{}
	s := NewStore(nil, r, newLogger())

	s.Prepend(context.Background(), New(1, "a", nil))
	s.Prepend(context.Background(), New(2, "b", nil))
	s.Remove(context.Background(), 1)
	s.Clear(context.Background())

	if r.calls != 4 {
		t.Fatalf("expected 4 renders, got %d", r.calls)
	}
	if len(r.last) != 0 {
		t.Fatalf("final render must reflect the empty store, got %v", r.last)
	}
}

func TestSeedDoesNotSnapshot(t *testing.T) {
	snap := &recordingSnap{}
	r := &countingRenderer{}
	s := NewStore(snap, r, newLogger())

	s.Seed([]Note{New(1, "loaded", nil)})

	if len(snap.snapshots) != 0 {
		t.Fatal("seeding from persistence must not write a snapshot back")
	}
	if r.calls != 1 {
		t.Fatalf("seeding must render once, got %d", r.calls)
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := NewStore(nil, nil, newLogger())
	s.Prepend(context.Background(), New(1, "original", nil))

	list := s.List()
	list[0].Note = "mutated"

	if got := s.List()[0].Note; got != "original" {
		t.Fatalf("List must return a copy, got %q", got)
	}
}
