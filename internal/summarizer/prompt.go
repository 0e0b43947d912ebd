package summarizer

import (
	"fmt"
	"strings"
)

const systemPrompt = `You turn raw voice transcripts into short notes.
Respond with a JSON object containing:
- "note": a concise summary of the transcript
- "tags": 2 to 4 short topical tags
Write the note and the tags in the same language as the transcript.`

// BuildPrompt renders the user message for one summarization request.
func BuildPrompt(req Request) string {
	var b strings.Builder
	if req.Language != "" {
		fmt.Fprintf(&b, "Language hint: %s\n\n", req.Language)
	}
	b.WriteString("Transcript:\n")
	b.WriteString(strings.TrimSpace(req.Transcript))
	return b.String()
}
