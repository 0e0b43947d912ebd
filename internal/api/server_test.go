package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voxnotelabs/voxnote/internal/config"
	"github.com/voxnotelabs/voxnote/internal/controller"
	"github.com/voxnotelabs/voxnote/internal/notes"
	"github.com/voxnotelabs/voxnote/internal/speech"
	"github.com/voxnotelabs/voxnote/internal/summarizer"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticSummarizer struct {
	result summarizer.Result
}

func (s staticSummarizer) Summarize(context.Context, summarizer.Request) (summarizer.Result, error) {
	return s.result, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *notes.Store, *controller.Controller) {
	t.Helper()

	engine := speech.NewMockEngine(
		speech.Event{Kind: speech.KindResult, Final: true, Alternatives: []string{"buy milk and eggs"}},
	)
	store := notes.NewStore(nil, nil, newLogger())
	ctrl := controller.New(context.Background(), config.Default(), controller.Deps{
		Engine:     engine,
		Summarizer: staticSummarizer{result: summarizer.Result{Note: "Buy milk and eggs", Tags: []string{"shopping"}}},
		Store:      store,
		Logger:     newLogger(),
	})
	t.Cleanup(ctrl.Close)

	server := httptest.NewServer(NewHandler(Deps{
		Controller: ctrl,
		Store:      store,
		Healthy:    func() bool { return true },
	}))
	t.Cleanup(server.Close)
	return server, store, ctrl
}

func waitForIdle(t *testing.T, ctrl *controller.Controller) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.Snapshot().Mode == controller.ModeIdle {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("controller never settled, state %+v", ctrl.Snapshot())
}

func TestHealthAndReady(t *testing.T) {
	server, _, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s returned %d", path, resp.StatusCode)
		}
	}
}

func TestReadyzReportsUnhealthyDeps(t *testing.T) {
	server := httptest.NewServer(NewHandler(Deps{
		Healthy: func() bool { return false },
	}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/readyz")
	if err != nil {
		t.Fatalf("get readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while unhealthy, got %d", resp.StatusCode)
	}
}

func TestCaptureLifecycleOverHTTP(t *testing.T) {
	server, store, ctrl := newTestServer(t)

	resp, err := http.Post(server.URL+"/v1/capture/start", "application/json",
		strings.NewReader(`{"language":"en-US"}`))
	if err != nil {
		t.Fatalf("start capture: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start returned %d", resp.StatusCode)
	}

	// Starting again while listening conflicts.
	resp, err = http.Post(server.URL+"/v1/capture/start", "application/json", nil)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for concurrent start, got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/v1/capture/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("stop capture: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("stop returned %d", resp.StatusCode)
	}

	waitForIdle(t, ctrl)
	if store.Len() != 1 {
		t.Fatalf("expected 1 note after capture, got %d", store.Len())
	}

	resp, err = http.Get(server.URL + "/v1/notes")
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	defer resp.Body.Close()
	var list []notes.Note
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode notes: %v", err)
	}
	if len(list) != 1 || list[0].Note != "Buy milk and eggs" {
		t.Fatalf("unexpected notes payload %+v", list)
	}
}

func TestStatusEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/v1/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()

	var state controller.State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if state.Mode != controller.ModeIdle {
		t.Fatalf("expected idle, got %+v", state)
	}
	if !state.CaptureEnabled {
		t.Fatal("expected capture enabled")
	}
}

func TestDeleteNote(t *testing.T) {
	server, store, _ := newTestServer(t)
	store.Seed([]notes.Note{notes.New(42, "to delete", nil)})

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/v1/notes/42", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete note: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete returned %d", resp.StatusCode)
	}

	// Deleting again is a 404, store unchanged.
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestDeleteNoteBadID(t *testing.T) {
	server, _, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/v1/notes/abc", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete note: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestClearNotes(t *testing.T) {
	server, store, _ := newTestServer(t)
	store.Seed([]notes.Note{notes.New(1, "a", nil), notes.New(2, "b", nil)})

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/v1/notes", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("clear notes: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear returned %d", resp.StatusCode)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}
