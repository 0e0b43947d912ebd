package summarizer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/voxnotelabs/voxnote/internal/config"
)

// execSummarizer shells out to a local model wrapper. The transcript is fed
// on stdin and the command must print a single JSON object matching the
// note/tags schema on stdout.
type execSummarizer struct {
	cmd []string
}

func NewExecSummarizer(cfg config.SummarizerConfig) (Summarizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse summarizer command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("summarizer command is empty")
	}
	return &execSummarizer{cmd: args}, nil
}

func (s *execSummarizer) Summarize(ctx context.Context, req Request) (Result, error) {
	args := append([]string{}, s.cmd[1:]...)
	if req.Language != "" {
		args = append(args, "--language", req.Language)
	}

	command := exec.CommandContext(ctx, s.cmd[0], args...)
	command.Stdin = strings.NewReader(req.Transcript)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return Result{}, fmt.Errorf("summarizer command failed: %w: %s", err, stderr.String())
	}
	return parseResult(stdout.Bytes())
}
