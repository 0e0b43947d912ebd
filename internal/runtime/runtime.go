package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxnotelabs/voxnote/internal/api"
	"github.com/voxnotelabs/voxnote/internal/bus"
	"github.com/voxnotelabs/voxnote/internal/config"
	"github.com/voxnotelabs/voxnote/internal/controller"
	"github.com/voxnotelabs/voxnote/internal/eventlog"
	"github.com/voxnotelabs/voxnote/internal/natsserver"
	"github.com/voxnotelabs/voxnote/internal/notes"
	"github.com/voxnotelabs/voxnote/internal/persist"
	"github.com/voxnotelabs/voxnote/internal/speech"
	"github.com/voxnotelabs/voxnote/internal/summarizer"
)

// Runtime assembles the voxnote daemon: telemetry, the message bus, note
// persistence, the capture controller and the HTTP surface. Start blocks
// until the context is cancelled, then shuts everything down in reverse
// order.
type Runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	httpServer *http.Server
	ready      atomic.Bool
	wg         sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tel, err := newTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	// The bus only fans events out to observers; the capture pipeline works
	// without it, so a connection failure degrades instead of aborting.
	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		r.logger.Warn("bus unavailable, running without event fan-out",
			slog.String("error", err.Error()))
		busClient = nil
	}
	defer busClient.Close()

	persistStore, err := persist.Open(ctx, r.cfg.Persist, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open note storage: %w", err)
	}
	defer persistStore.Close()
	tel.observeRecoveries(persistStore)

	events, err := eventlog.Open(ctx, r.cfg.EventLog, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer events.Close()

	persistStore.OnRecover(func(op string, cause error) {
		err := events.Append(ctx, eventlog.Event{
			Type:   eventlog.TypePersistenceRecover,
			Detail: fmt.Sprintf("%s: %s", op, cause),
		})
		if err != nil {
			r.logger.Warn("event log append failed", slog.String("error", err.Error()))
		}
	})

	renderer := notes.NewMarkdownRenderer(r.cfg.Notes.RenderPath, r.cfg.Notes.Title)
	store := notes.NewStore(persistStore, renderer, r.logger)
	restored := persistStore.Load(ctx)
	store.Seed(restored)
	r.logger.Info("notes restored", slog.Int("count", len(restored)))

	// A broken engine config leaves capture permanently disabled rather than
	// taking the whole daemon down; notes stay readable and deletable.
	engine, err := speech.NewEngine(r.cfg.Speech, r.logger)
	if err != nil {
		r.logger.Warn("speech engine unavailable, capture disabled",
			slog.String("error", err.Error()))
		engine = nil
	}

	sum, err := summarizer.New(r.cfg.Summarizer)
	if err != nil {
		return fmt.Errorf("failed to create summarizer: %w", err)
	}

	ctrl := controller.New(ctx, r.cfg, controller.Deps{
		Engine:     engine,
		Summarizer: sum,
		Store:      store,
		Bus:        busClient,
		Events:     events,
		Logger:     r.logger,
	})
	defer ctrl.Close()

	handler := api.NewHandler(api.Deps{
		Controller: ctrl,
		Store:      store,
		// Readiness requires a connected bus only when one was configured;
		// degraded bus-less operation stays ready.
		Healthy: func() bool {
			return r.ready.Load() && (busClient == nil || busClient.Healthy())
		},
		Metrics: tel.handler,
	})

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("speech_mode", r.cfg.Speech.Mode),
		slog.String("summarizer_mode", r.cfg.Summarizer.Mode))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if err := tel.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
	}

	return nil
}
