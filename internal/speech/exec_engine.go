package speech

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/voxnotelabs/voxnote/internal/config"
)

// execEngine runs a child recognizer process that streams one JSON event per
// stdout line:
//
//	{"type":"result","final":true,"alternatives":["buy milk "]}
//	{"type":"error","error":"no-speech"}
//
// Stop closes the child's stdin; the child is expected to flush pending
// results and exit, and EOF becomes the terminal end event.
type execEngine struct {
	cmd     []string
	interim bool
	log     *slog.Logger

	mu     sync.Mutex
	stdin  io.WriteCloser
	cancel context.CancelFunc
}

type execEvent struct {
	Type         string   `json:"type"`
	Final        bool     `json:"final"`
	Alternatives []string `json:"alternatives"`
	Error        string   `json:"error"`
}

func NewExecEngine(cfg config.SpeechConfig, log *slog.Logger) (Engine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse speech command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("speech command is empty")
	}
	return &execEngine{
		cmd:     args,
		interim: cfg.InterimResults,
		log:     log.With(slog.String("component", "speech-exec")),
	}, nil
}

func (e *execEngine) Start(ctx context.Context, language string, h Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return fmt.Errorf("recognition already running")
	}

	runCtx, cancel := context.WithCancel(ctx)

	args := append([]string{}, e.cmd[1:]...)
	args = append(args, "--language", language)
	if e.interim {
		args = append(args, "--interim")
	}
	command := exec.CommandContext(runCtx, e.cmd[0], args...)

	stdin, err := command.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("recognizer stdin: %w", err)
	}
	stdout, err := command.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("recognizer stdout: %w", err)
	}
	if err := command.Start(); err != nil {
		cancel()
		return fmt.Errorf("start recognizer: %w", err)
	}

	e.stdin = stdin
	e.cancel = cancel

	go e.consume(command, stdout, h)
	return nil
}

func (e *execEngine) consume(command *exec.Cmd, stdout io.Reader, h Handler) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev execEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			e.log.Warn("failed to decode recognizer event", slog.String("error", err.Error()))
			continue
		}
		switch ev.Type {
		case "result":
			h(Event{Kind: KindResult, Final: ev.Final, Alternatives: ev.Alternatives})
		case "error":
			h(Event{Kind: KindError, ErrKind: ev.Error})
		default:
			e.log.Warn("unknown recognizer event type", slog.String("type", ev.Type))
		}
	}
	if err := scanner.Err(); err != nil {
		e.log.Warn("recognizer stream read failed", slog.String("error", err.Error()))
	}
	if err := command.Wait(); err != nil {
		e.log.Warn("recognizer exited with error", slog.String("error", err.Error()))
	}

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.stdin = nil
	e.cancel = nil
	e.mu.Unlock()

	h(Event{Kind: KindEnd})
}

func (e *execEngine) Stop() {
	e.mu.Lock()
	stdin := e.stdin
	e.stdin = nil
	e.mu.Unlock()
	if stdin != nil {
		_ = stdin.Close()
	}
}
