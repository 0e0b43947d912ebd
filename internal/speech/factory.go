package speech

import (
	"fmt"
	"log/slog"

	"github.com/voxnotelabs/voxnote/internal/config"
)

// NewEngine selects a recognition backend from config.
func NewEngine(cfg config.SpeechConfig, log *slog.Logger) (Engine, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockEngine(
			Event{Kind: KindResult, Alternatives: []string{"this is a mock "}},
			Event{Kind: KindResult, Final: true, Alternatives: []string{"this is a mock "}},
			Event{Kind: KindResult, Final: true, Alternatives: []string{"voice transcript"}},
		), nil
	case "exec":
		return NewExecEngine(cfg, log)
	default:
		return nil, fmt.Errorf("unknown speech mode %q", cfg.Mode)
	}
}
