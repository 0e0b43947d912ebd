package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/voxnotelabs/voxnote/internal/config"
)

// Request carries a finished transcript plus the language it was captured in.
type Request struct {
	Transcript string
	Language   string
}

// Result is the structured summarization output: a concise note plus topical
// tags, both in the transcript's language.
type Result struct {
	Note string   `json:"note"`
	Tags []string `json:"tags"`
}

// Summarizer turns a transcript into note fields. Any failure means no note:
// callers never receive a partial result.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (Result, error)
}

// New selects a backend from config.
func New(cfg config.SummarizerConfig) (Summarizer, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockSummarizer(), nil
	case "ollama":
		return NewOllamaSummarizer(cfg), nil
	case "exec":
		return NewExecSummarizer(cfg)
	default:
		return nil, fmt.Errorf("unknown summarizer mode %q", cfg.Mode)
	}
}

// parseResult validates a raw model response against the fixed schema
// {note: string, tags: []string} with both fields required. Anything else is
// a failure, and no note is created from a failed parse.
func parseResult(raw []byte) (Result, error) {
	var probe struct {
		Note *string   `json:"note"`
		Tags *[]string `json:"tags"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Result{}, fmt.Errorf("decode summarizer response: %w", err)
	}
	if probe.Note == nil || *probe.Note == "" {
		return Result{}, errors.New("summarizer response missing required field note")
	}
	if probe.Tags == nil {
		return Result{}, errors.New("summarizer response missing required field tags")
	}
	return Result{Note: *probe.Note, Tags: *probe.Tags}, nil
}
