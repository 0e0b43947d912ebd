package speech

import "context"

// Kind discriminates engine events.
type Kind string

const (
	// KindResult carries a recognized fragment, interim or final.
	KindResult Kind = "result"
	// KindError carries a recognition error kind; recognition may still end
	// with a separate end event depending on the engine.
	KindError Kind = "error"
	// KindEnd marks the terminal end of the stream. It carries no payload.
	KindEnd Kind = "end"
)

// Event is one occurrence emitted by a recognition engine. Result events
// carry one or more alternative transcriptions ranked by confidence; only
// the first alternative is consumed downstream.
type Event struct {
	Kind         Kind
	Final        bool
	Alternatives []string
	ErrKind      string
}

// Text returns the first alternative of a result event.
func (e Event) Text() string {
	if len(e.Alternatives) == 0 {
		return ""
	}
	return e.Alternatives[0]
}

// Handler receives engine events. Engines invoke it from a single goroutine,
// so handlers observe events in emission order.
type Handler func(Event)

// Engine abstracts a continuous, interim-results-enabled recognition stream.
// Start begins recognition in the given language; Stop requests a graceful
// end, after which the engine emits a terminal end event.
type Engine interface {
	Start(ctx context.Context, language string, h Handler) error
	Stop()
}
