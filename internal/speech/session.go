package speech

import (
	"strings"
	"sync"
)

// Callbacks receive session outcomes. Nil callbacks are skipped.
type Callbacks struct {
	// OnInterim receives interim fragments for transient display. Interim
	// text is never accumulated.
	OnInterim func(text string)
	// OnTranscript receives the full transcript when the stream ends with a
	// non-empty accumulator.
	OnTranscript func(transcript string)
	// OnEmpty fires when the stream ends with nothing accumulated.
	OnEmpty func()
	// OnError receives the engine error kind. Any partial accumulator is
	// abandoned.
	OnError func(kind string)
}

// Session accumulates final fragments from one recognition stream in arrival
// order. It closes on the first error or end event; events delivered after
// close are no-ops, so late engine callbacks are harmless.
type Session struct {
	mu        sync.Mutex
	closed    bool
	fragments []string
	cb        Callbacks
}

func NewSession(cb Callbacks) *Session {
	return &Session{cb: cb}
}

// Handle processes one engine event. Safe to use as an Engine Handler.
func (s *Session) Handle(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	switch ev.Kind {
	case KindResult:
		if ev.Final {
			if text := ev.Text(); text != "" {
				s.fragments = append(s.fragments, text)
			}
			s.mu.Unlock()
			return
		}
		text := ev.Text()
		s.mu.Unlock()
		if text != "" && s.cb.OnInterim != nil {
			s.cb.OnInterim(text)
		}
	case KindError:
		s.closed = true
		s.fragments = nil
		s.mu.Unlock()
		if s.cb.OnError != nil {
			s.cb.OnError(ev.ErrKind)
		}
	case KindEnd:
		s.closed = true
		transcript := strings.Join(s.fragments, "")
		s.mu.Unlock()
		if transcript == "" {
			if s.cb.OnEmpty != nil {
				s.cb.OnEmpty()
			}
			return
		}
		if s.cb.OnTranscript != nil {
			s.cb.OnTranscript(transcript)
		}
	default:
		s.mu.Unlock()
	}
}

// Transcript returns the accumulated final fragments concatenated in arrival
// order.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.fragments, "")
}

// Closed reports whether the session has seen a terminal event.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
