package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxnotelabs/voxnote/internal/bus"
	"github.com/voxnotelabs/voxnote/internal/config"
	"github.com/voxnotelabs/voxnote/internal/eventlog"
	"github.com/voxnotelabs/voxnote/internal/notes"
	"github.com/voxnotelabs/voxnote/internal/protocol"
	"github.com/voxnotelabs/voxnote/internal/speech"
	"github.com/voxnotelabs/voxnote/internal/summarizer"
)

// Mode is the capture state machine position.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeListening  Mode = "listening"
	ModeProcessing Mode = "processing"
)

// Status texts surfaced to the UI.
const (
	StatusIdlePrompt      = "Ready to capture"
	StatusUnavailable     = "Speech recognition unavailable"
	StatusListening       = "Listening..."
	StatusProcessing      = "Processing transcript..."
	StatusNoteSaved       = "Note saved"
	StatusSummarizeFailed = "Could not create a note, please try again"
)

// ErrEngineUnavailable is returned when no recognition engine was configured
// at startup; capture stays permanently disabled.
var ErrEngineUnavailable = errors.New("speech engine unavailable")

// State is a point-in-time snapshot for the UI surface.
type State struct {
	Mode           Mode   `json:"mode"`
	Status         string `json:"status"`
	Language       string `json:"language"`
	CaptureEnabled bool   `json:"capture_enabled"`
	CaptureID      string `json:"capture_id,omitempty"`
}

// Deps are the controller's collaborators. Bus and Events may be nil.
type Deps struct {
	Engine     speech.Engine
	Summarizer summarizer.Summarizer
	Store      *notes.Store
	Bus        *bus.Client
	Events     *eventlog.Store
	Logger     *slog.Logger
}

// Controller owns the Idle -> Listening -> Processing state machine that
// connects the speech engine, the summarizer and the note store. All shared
// state lives behind one mutex; engine callbacks arriving after a capture
// finished are no-ops.
type Controller struct {
	mu              sync.Mutex
	mode            Mode
	status          string
	language        string
	captureEnabled  bool
	engineAvailable bool
	captureID       string
	session         *speech.Session

	engine  speech.Engine
	sum     summarizer.Summarizer
	store   *notes.Store
	bus     *bus.Client
	events  *eventlog.Store
	log     *slog.Logger
	clock   func() time.Time
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	notesCreated      metric.Int64Counter
	summarizeFailures metric.Int64Counter
}

func New(parent context.Context, cfg config.Config, deps Deps) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		mode:            ModeIdle,
		status:          StatusIdlePrompt,
		language:        cfg.Speech.Language,
		captureEnabled:  deps.Engine != nil,
		engineAvailable: deps.Engine != nil,
		engine:          deps.Engine,
		sum:             deps.Summarizer,
		store:           deps.Store,
		bus:             deps.Bus,
		events:          deps.Events,
		log:             deps.Logger.With(slog.String("component", "controller")),
		clock:           time.Now,
		timeout:         time.Duration(cfg.Summarizer.TimeoutMS) * time.Millisecond,
		ctx:             ctx,
		cancel:          cancel,
	}
	if !c.engineAvailable {
		c.status = StatusUnavailable
	}

	meter := otel.Meter("voxnote/controller")
	if counter, err := meter.Int64Counter("voxnote.notes.created",
		metric.WithDescription("Notes created from summarized transcripts")); err == nil {
		c.notesCreated = counter
	}
	if counter, err := meter.Int64Counter("voxnote.summarize.failures",
		metric.WithDescription("Summarization attempts that produced no note")); err == nil {
		c.summarizeFailures = counter
	}
	return c
}

// Close stops background work and waits for an in-flight summarization to
// settle.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// Snapshot returns the current UI state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Mode:           c.mode,
		Status:         c.status,
		Language:       c.language,
		CaptureEnabled: c.captureEnabled,
		CaptureID:      c.captureID,
	}
}

// SetLanguage changes the recognition language. Only allowed while Idle.
func (c *Controller) SetLanguage(language string) error {
	if language == "" {
		return errors.New("language must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeIdle {
		return fmt.Errorf("language can only be changed while idle, current mode %s", c.mode)
	}
	c.language = language
	return nil
}

// StartCapture transitions Idle -> Listening and begins recognition.
func (c *Controller) StartCapture() error {
	c.mu.Lock()
	if !c.engineAvailable {
		c.mu.Unlock()
		return ErrEngineUnavailable
	}
	if !c.captureEnabled {
		c.mu.Unlock()
		return errors.New("capture disabled while a note is being processed")
	}
	if c.mode != ModeIdle {
		c.mu.Unlock()
		return fmt.Errorf("capture already running, current mode %s", c.mode)
	}

	captureID := uuid.NewString()
	language := c.language
	session := speech.NewSession(speech.Callbacks{
		OnInterim:    func(text string) { c.onInterim(captureID, text) },
		OnTranscript: func(transcript string) { c.onTranscript(captureID, transcript) },
		OnEmpty:      func() { c.onEmpty(captureID) },
		OnError:      func(kind string) { c.onRecognitionError(captureID, kind) },
	})
	c.captureID = captureID
	c.session = session
	c.mode = ModeListening
	c.status = StatusListening
	c.mu.Unlock()

	c.recordCaptureBegin(captureID, language)

	if err := c.engine.Start(c.ctx, language, session.Handle); err != nil {
		c.mu.Lock()
		if c.captureID == captureID {
			c.captureID = ""
			c.session = nil
			c.mode = ModeIdle
			c.status = "Recognition error: " + err.Error()
		}
		c.mu.Unlock()
		c.appendEvent(captureID, eventlog.TypeCaptureError, err.Error())
		c.publishState()
		return fmt.Errorf("start recognition: %w", err)
	}

	c.log.Info("capture started",
		slog.String("capture_id", captureID),
		slog.String("language", language))
	c.publishState()
	return nil
}

// StopCapture asks the engine to end the stream. The terminal end event
// decides whether the session moves to Processing or straight back to Idle.
func (c *Controller) StopCapture() error {
	c.mu.Lock()
	if c.mode != ModeListening {
		c.mu.Unlock()
		return fmt.Errorf("no capture running, current mode %s", c.mode)
	}
	captureID := c.captureID
	c.mu.Unlock()

	c.appendEvent(captureID, eventlog.TypeCaptureStopped, "")
	c.engine.Stop()
	return nil
}

// RemoveNote deletes one note by id. Removing an unknown id is a no-op.
func (c *Controller) RemoveNote(ctx context.Context, id int64) bool {
	removed := c.store.Remove(ctx, id)
	if removed {
		c.publish(protocol.SubjectNoteDeleted, protocol.NoteEvent{
			Action:    "deleted",
			NoteID:    id,
			Timestamp: c.clock().UTC(),
		})
		c.appendEvent("", eventlog.TypeNoteDeleted, fmt.Sprintf("id=%d", id))
	}
	return removed
}

// ClearNotes deletes all notes.
func (c *Controller) ClearNotes(ctx context.Context) {
	c.store.Clear(ctx)
	c.publish(protocol.SubjectNotesCleared, protocol.NoteEvent{
		Action:    "cleared",
		Timestamp: c.clock().UTC(),
	})
	c.appendEvent("", eventlog.TypeNotesCleared, "")
}

func (c *Controller) onInterim(captureID, text string) {
	c.mu.Lock()
	if c.captureID != captureID || c.mode != ModeListening {
		c.mu.Unlock()
		return
	}
	c.status = text
	language := c.language
	c.mu.Unlock()

	c.publish(protocol.SubjectTranscriptInterim, protocol.Transcript{
		CaptureID: captureID,
		Text:      text,
		Interim:   true,
		Language:  language,
		Timestamp: c.clock().UTC(),
	})
}

func (c *Controller) onEmpty(captureID string) {
	c.mu.Lock()
	if c.captureID != captureID {
		c.mu.Unlock()
		return
	}
	c.captureID = ""
	c.session = nil
	c.mode = ModeIdle
	c.status = StatusIdlePrompt
	c.mu.Unlock()

	c.log.Info("capture ended with empty transcript", slog.String("capture_id", captureID))
	c.publishState()
}

func (c *Controller) onRecognitionError(captureID, kind string) {
	c.mu.Lock()
	if c.captureID != captureID {
		c.mu.Unlock()
		return
	}
	c.captureID = ""
	c.session = nil
	c.mode = ModeIdle
	c.status = "Recognition error: " + kind
	c.mu.Unlock()

	c.log.Warn("recognition error", slog.String("capture_id", captureID), slog.String("kind", kind))
	c.appendEvent(captureID, eventlog.TypeCaptureError, kind)
	c.publishState()
}

func (c *Controller) onTranscript(captureID, transcript string) {
	c.mu.Lock()
	if c.captureID != captureID || c.mode != ModeListening {
		c.mu.Unlock()
		return
	}
	c.mode = ModeProcessing
	c.status = StatusProcessing
	// Cooperative mutual exclusion: the trigger is disabled for the whole
	// summarization window instead of holding a lock across it.
	c.captureEnabled = false
	language := c.language
	c.mu.Unlock()

	c.publish(protocol.SubjectTranscriptFinal, protocol.Transcript{
		CaptureID: captureID,
		Text:      transcript,
		Language:  language,
		Timestamp: c.clock().UTC(),
	})
	c.appendEvent(captureID, eventlog.TypeTranscriptFinal, transcript)
	c.publishState()

	c.wg.Add(1)
	go c.summarize(captureID, transcript, language)
}

func (c *Controller) summarize(captureID, transcript, language string) {
	defer c.wg.Done()

	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.sum.Summarize(ctx, summarizer.Request{
		Transcript: transcript,
		Language:   language,
	})

	// Controls re-enable unconditionally, success or failure.
	defer c.finishProcessing(captureID, err == nil)

	if err != nil {
		c.log.Warn("summarization failed",
			slog.String("capture_id", captureID),
			slog.String("error", err.Error()))
		if c.summarizeFailures != nil {
			c.summarizeFailures.Add(c.ctx, 1)
		}
		c.appendEvent(captureID, eventlog.TypeSummarizeFailed, err.Error())
		return
	}

	note := notes.New(c.clock().UnixMilli(), result.Note, result.Tags)
	c.store.Prepend(c.ctx, note)
	if c.notesCreated != nil {
		c.notesCreated.Add(c.ctx, 1)
	}
	c.log.Info("note created",
		slog.String("capture_id", captureID),
		slog.Int64("note_id", note.ID),
		slog.Int("tags", len(note.Tags)))
	c.publish(protocol.SubjectNoteCreated, protocol.NoteEvent{
		Action:    "created",
		Note:      &protocol.NotePayload{ID: note.ID, Note: note.Note, Tags: note.Tags},
		Timestamp: c.clock().UTC(),
	})
	c.appendEvent(captureID, eventlog.TypeNoteCreated, fmt.Sprintf("id=%d", note.ID))
}

func (c *Controller) finishProcessing(captureID string, ok bool) {
	c.mu.Lock()
	if c.captureID != captureID {
		c.mu.Unlock()
		return
	}
	c.captureID = ""
	c.session = nil
	c.mode = ModeIdle
	c.captureEnabled = c.engineAvailable
	if ok {
		c.status = StatusNoteSaved
	} else {
		c.status = StatusSummarizeFailed
	}
	c.mu.Unlock()
	c.publishState()
}

func (c *Controller) recordCaptureBegin(captureID, language string) {
	if c.events == nil {
		return
	}
	if err := c.events.BeginCapture(c.ctx, captureID, language); err != nil {
		c.log.Warn("event log begin capture failed", slog.String("error", err.Error()))
		return
	}
	c.appendEvent(captureID, eventlog.TypeCaptureStarted, "")
}

func (c *Controller) appendEvent(captureID, eventType, detail string) {
	if c.events == nil {
		return
	}
	err := c.events.Append(c.ctx, eventlog.Event{
		CaptureID: captureID,
		Type:      eventType,
		Detail:    detail,
	})
	if err != nil {
		c.log.Warn("event log append failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
	}
}

func (c *Controller) publishState() {
	snapshot := c.Snapshot()
	c.publish(protocol.SubjectCaptureState, protocol.CaptureState{
		CaptureID: snapshot.CaptureID,
		Mode:      string(snapshot.Mode),
		Status:    snapshot.Status,
		Language:  snapshot.Language,
		Timestamp: c.clock().UTC(),
	})
}

func (c *Controller) publish(subject string, v any) {
	if err := c.bus.PublishJSON(subject, v); err != nil {
		c.log.Warn("bus publish failed",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
	}
}
