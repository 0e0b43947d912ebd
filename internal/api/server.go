package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voxnotelabs/voxnote/internal/controller"
	"github.com/voxnotelabs/voxnote/internal/notes"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps are the handlers' collaborators.
type Deps struct {
	Controller *controller.Controller
	Store      *notes.Store
	Healthy    func() bool
	Metrics    http.Handler
}

type startCaptureRequest struct {
	Language string `json:"language,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler builds the HTTP control surface: capture toggle, status text
// and the note list, mirrored as REST endpoints.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady(deps))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", handleStatus(deps))
		r.Post("/capture/start", handleStartCapture(deps))
		r.Post("/capture/stop", handleStopCapture(deps))
		r.Get("/notes", handleListNotes(deps))
		r.Delete("/notes/{id}", handleDeleteNote(deps))
		r.Delete("/notes", handleClearNotes(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if deps.Healthy == nil || deps.Healthy() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	}
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, deps.Controller.Snapshot())
	}
}

func handleStartCapture(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		// An empty body means "use the current language".
		var req startCaptureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Language != "" {
			if err := deps.Controller.SetLanguage(req.Language); err != nil {
				httpError(w, http.StatusConflict, err.Error())
				return
			}
		}
		if err := deps.Controller.StartCapture(); err != nil {
			status := http.StatusConflict
			if errors.Is(err, controller.ErrEngineUnavailable) {
				status = http.StatusServiceUnavailable
			}
			httpError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, deps.Controller.Snapshot())
	}
}

func handleStopCapture(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if err := deps.Controller.StopCapture(); err != nil {
			httpError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, deps.Controller.Snapshot())
	}
}

func handleListNotes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list := deps.Store.List()
		if list == nil {
			list = []notes.Note{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleDeleteNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "note id must be an integer")
			return
		}
		if !deps.Controller.RemoveNote(r.Context(), id) {
			httpError(w, http.StatusNotFound, "note not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleClearNotes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Controller.ClearNotes(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
