package speech

import (
	"context"
	"testing"
)

func result(final bool, alternatives ...string) Event {
	return Event{Kind: KindResult, Final: final, Alternatives: alternatives}
}

func TestSessionAccumulatesFinalFragmentsInOrder(t *testing.T) {
	var transcript string
	s := NewSession(Callbacks{OnTranscript: func(tr string) { transcript = tr }})

	s.Handle(result(true, "buy milk "))
	s.Handle(result(false, "and eg"))
	s.Handle(result(true, "and eggs"))
	s.Handle(Event{Kind: KindEnd})

	if transcript != "buy milk and eggs" {
		t.Fatalf("expected concatenated finals, got %q", transcript)
	}
}

func TestSessionInterimNotAccumulated(t *testing.T) {
	var interims []string
	var transcript string
	s := NewSession(Callbacks{
		OnInterim:    func(text string) { interims = append(interims, text) },
		OnTranscript: func(tr string) { transcript = tr },
	})

	s.Handle(result(false, "bu"))
	s.Handle(result(false, "buy mi"))
	s.Handle(result(true, "buy milk"))
	// A fragment still interim at session end must be excluded.
	s.Handle(result(false, "and eggs"))
	s.Handle(Event{Kind: KindEnd})

	if transcript != "buy milk" {
		t.Fatalf("interim text leaked into transcript: %q", transcript)
	}
	if len(interims) != 3 {
		t.Fatalf("expected 3 interim callbacks, got %d", len(interims))
	}
}

func TestSessionOnlyFirstAlternativeConsumed(t *testing.T) {
	s := NewSession(Callbacks{})
	s.Handle(result(true, "buy milk", "buy silk"))
	if got := s.Transcript(); got != "buy milk" {
		t.Fatalf("expected first alternative only, got %q", got)
	}
}

func TestSessionEmptyEnd(t *testing.T) {
	var empty bool
	var transcript string
	s := NewSession(Callbacks{
		OnEmpty:      func() { empty = true },
		OnTranscript: func(tr string) { transcript = tr },
	})

	s.Handle(result(false, "never finalized"))
	s.Handle(Event{Kind: KindEnd})

	if !empty {
		t.Fatal("expected OnEmpty for end with empty accumulator")
	}
	if transcript != "" {
		t.Fatalf("unexpected transcript %q", transcript)
	}
}

func TestSessionErrorAbandonsAccumulator(t *testing.T) {
	var kind string
	var transcript string
	s := NewSession(Callbacks{
		OnError:      func(k string) { kind = k },
		OnTranscript: func(tr string) { transcript = tr },
	})

	s.Handle(result(true, "buy milk"))
	s.Handle(Event{Kind: KindError, ErrKind: "not-allowed"})
	s.Handle(Event{Kind: KindEnd})

	if kind != "not-allowed" {
		t.Fatalf("expected error kind, got %q", kind)
	}
	if transcript != "" {
		t.Fatal("transcript must not be delivered after an error")
	}
	if got := s.Transcript(); got != "" {
		t.Fatalf("expected abandoned accumulator, got %q", got)
	}
}

func TestSessionLateEventsAreNoOps(t *testing.T) {
	ends := 0
	s := NewSession(Callbacks{
		OnEmpty:      func() { ends++ },
		OnTranscript: func(string) { ends++ },
	})

	s.Handle(Event{Kind: KindEnd})
	// Late deliveries after close: all ignored.
	s.Handle(result(true, "late fragment"))
	s.Handle(Event{Kind: KindEnd})
	s.Handle(Event{Kind: KindError, ErrKind: "aborted"})

	if ends != 1 {
		t.Fatalf("expected exactly one terminal callback, got %d", ends)
	}
	if !s.Closed() {
		t.Fatal("expected session closed")
	}
}

func TestMockEngineScriptAndStop(t *testing.T) {
	engine := NewMockEngine(
		result(false, "bu"),
		result(true, "buy milk "),
		result(true, "and eggs"),
	)

	var transcript string
	s := NewSession(Callbacks{OnTranscript: func(tr string) { transcript = tr }})
	if err := engine.Start(context.Background(), "en-US", s.Handle); err != nil {
		t.Fatalf("start: %v", err)
	}
	if engine.LastLanguage != "en-US" {
		t.Fatalf("expected language recorded, got %q", engine.LastLanguage)
	}

	engine.Stop()
	engine.Stop() // idempotent, no second end event

	if transcript != "buy milk and eggs" {
		t.Fatalf("unexpected transcript %q", transcript)
	}
}
