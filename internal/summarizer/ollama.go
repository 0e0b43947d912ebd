package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/voxnotelabs/voxnote/internal/config"
)

type ollamaSummarizer struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewOllamaSummarizer builds the Ollama backend. Requests are non-streaming
// chat completions with a structured-output format schema, so the model is
// constrained to the note/tags shape before parsing even starts.
func NewOllamaSummarizer(cfg config.SummarizerConfig) Summarizer {
	return &ollamaSummarizer{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type schema struct {
	Type       string                    `json:"type"`
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

type schemaProperty struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Items       *schemaProperty `json:"items,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   *schema       `json:"format,omitempty"`
	Options  chatOptions   `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// resultSchema is the fixed response-format directive: object with required
// string field note and required array-of-strings field tags.
func resultSchema() *schema {
	return &schema{
		Type: "object",
		Properties: map[string]schemaProperty{
			"note": {Type: "string", Description: "Concise summary of the transcript"},
			"tags": {Type: "array", Description: "2-4 short topical tags", Items: &schemaProperty{Type: "string"}},
		},
		Required: []string{"note", "tags"},
	}
}

func (s *ollamaSummarizer) Summarize(ctx context.Context, req Request) (Result, error) {
	payload := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(req)},
		},
		Stream: false,
		Format: resultSchema(),
		Options: chatOptions{
			Temperature: s.temperature,
			NumPredict:  s.maxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("summarization request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("summarizer returned status %s", resp.Status)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return Result{}, fmt.Errorf("decode chat response: %w", err)
	}
	return parseResult([]byte(chat.Message.Content))
}
