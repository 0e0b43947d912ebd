package summarizer

import (
	"context"
	"strings"
	"time"
	"unicode"
)

type mockSummarizer struct{}

// NewMockSummarizer returns a backend that derives a note from the transcript
// itself, for development without a model.
func NewMockSummarizer() Summarizer { return &mockSummarizer{} }

func (m *mockSummarizer) Summarize(ctx context.Context, req Request) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}

	text := strings.TrimSpace(req.Transcript)
	runes := []rune(text)
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return Result{
		Note: string(runes),
		Tags: []string{"voice", "note"},
	}, nil
}
