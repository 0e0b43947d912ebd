package notes

import (
	"context"
	"log/slog"
	"sync"
)

// Snapshotter persists the full note list after every mutation.
type Snapshotter interface {
	Save(ctx context.Context, notes []Note) error
}

// Store holds the ordered in-memory note list. Every mutation synchronously
// snapshots the full list and triggers a full re-render; both are best-effort
// and never fail the mutation itself.
type Store struct {
	mu       sync.Mutex
	items    []Note
	snap     Snapshotter
	renderer Renderer
	log      *slog.Logger
}

func NewStore(snap Snapshotter, renderer Renderer, log *slog.Logger) *Store {
	return &Store{
		snap:     snap,
		renderer: renderer,
		log:      log.With(slog.String("component", "note-store")),
	}
}

// Seed replaces the list with previously persisted notes without writing a
// snapshot back, then renders once so the output reflects the loaded state.
func (s *Store) Seed(notes []Note) {
	s.mu.Lock()
	s.items = append([]Note(nil), notes...)
	snapshot := s.listLocked()
	s.mu.Unlock()
	s.render(snapshot)
}

// Prepend inserts the note at the head of the list.
func (s *Store) Prepend(ctx context.Context, note Note) {
	s.mu.Lock()
	s.items = append([]Note{note}, s.items...)
	snapshot := s.listLocked()
	s.mu.Unlock()
	s.commit(ctx, snapshot)
}

// Remove deletes the note with the given id and reports whether it was
// present. Removing an unknown id leaves the store unchanged.
func (s *Store) Remove(ctx context.Context, id int64) bool {
	s.mu.Lock()
	idx := -1
	for i, n := range s.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	snapshot := s.listLocked()
	s.mu.Unlock()
	s.commit(ctx, snapshot)
	return true
}

// Clear empties the list.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	snapshot := s.listLocked()
	s.mu.Unlock()
	s.commit(ctx, snapshot)
}

// List returns a copy of the notes in order, newest first.
func (s *Store) List() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) listLocked() []Note {
	out := make([]Note, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) commit(ctx context.Context, snapshot []Note) {
	if s.snap != nil {
		if err := s.snap.Save(ctx, snapshot); err != nil {
			s.log.Warn("note snapshot failed", slog.String("error", err.Error()))
		}
	}
	s.render(snapshot)
}

func (s *Store) render(snapshot []Note) {
	if s.renderer == nil {
		return
	}
	if err := s.renderer.Render(snapshot); err != nil {
		s.log.Warn("note render failed", slog.String("error", err.Error()))
	}
}
