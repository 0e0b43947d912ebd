package protocol

import "time"

// Transcript carries recognized speech broadcast on the bus. Interim
// transcripts are transient status updates; only final transcripts feed
// summarization.
type Transcript struct {
	CaptureID string    `json:"capture_id"`
	Text      string    `json:"text"`
	Interim   bool      `json:"interim"`
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

// NotePayload mirrors a stored note for bus consumers.
type NotePayload struct {
	ID   int64    `json:"id"`
	Note string   `json:"note"`
	Tags []string `json:"tags"`
}

// NoteEvent announces a note store mutation.
type NoteEvent struct {
	Action    string       `json:"action"` // created, deleted, cleared
	Note      *NotePayload `json:"note,omitempty"`
	NoteID    int64        `json:"note_id,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// CaptureState announces controller state machine transitions.
type CaptureState struct {
	CaptureID string    `json:"capture_id,omitempty"`
	Mode      string    `json:"mode"` // idle, listening, processing
	Status    string    `json:"status"`
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectTranscriptInterim = "speech.transcript.interim"
	SubjectTranscriptFinal   = "speech.transcript.final"
	SubjectNoteCreated       = "notes.note.created"
	SubjectNoteDeleted       = "notes.note.deleted"
	SubjectNotesCleared      = "notes.cleared"
	SubjectCaptureState      = "capture.state"
)
