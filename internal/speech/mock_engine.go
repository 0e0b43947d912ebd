package speech

import (
	"context"
	"sync"
)

// MockEngine is a scripted recognition engine for tests and bench setups
// without a real recognizer. Scripted events are delivered synchronously on
// Start; Stop emits a single terminal end event. Tests can push further
// events with Emit.
type MockEngine struct {
	mu           sync.Mutex
	script       []Event
	h            Handler
	ended        bool
	LastLanguage string
}

func NewMockEngine(script ...Event) *MockEngine {
	return &MockEngine{script: script}
}

func (m *MockEngine) Start(_ context.Context, language string, h Handler) error {
	m.mu.Lock()
	m.h = h
	m.ended = false
	m.LastLanguage = language
	script := append([]Event(nil), m.script...)
	m.mu.Unlock()

	for _, ev := range script {
		h(ev)
	}
	return nil
}

// Emit delivers an event to the active handler, if any.
func (m *MockEngine) Emit(ev Event) {
	m.mu.Lock()
	h := m.h
	m.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (m *MockEngine) Stop() {
	m.mu.Lock()
	if m.ended || m.h == nil {
		m.mu.Unlock()
		return
	}
	m.ended = true
	h := m.h
	m.mu.Unlock()
	h(Event{Kind: KindEnd})
}
