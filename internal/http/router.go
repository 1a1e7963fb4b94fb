// Package http exposes the engine's REST and websocket surface: session
// lifecycle, chunk ingest, live event streaming, and model status. Handlers
// are thin pass-throughs to the session engine; request validation beyond
// config defaulting lives upstream.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"meeting-transcription-engine/internal/app"
	"meeting-transcription-engine/internal/models"
	"meeting-transcription-engine/internal/session"
	"meeting-transcription-engine/internal/transcribe"
)

// maxChunkBytes caps a single audio chunk upload.
const maxChunkBytes = 10 << 20

// NewRouter constructs the HTTP router for the engine daemon.
func NewRouter(application *app.Application) http.Handler {
	h := &handler{app: application}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !application.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("starting"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", h.listModels)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.startSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.getSession)
				r.Post("/audio", h.processChunk)
				r.Post("/pause", h.pauseSession)
				r.Post("/resume", h.resumeSession)
				r.Post("/cancel", h.cancelSession)
				r.Post("/finalize", h.finalizeSession)
				r.Get("/metrics", h.sessionMetrics)
				r.Get("/events", h.streamEvents)
			})
		})
	})

	return r
}

type handler struct {
	app *app.Application
}

func (h *handler) startSession(w http.ResponseWriter, r *http.Request) {
	// Decode over the service default so an absent diarization key keeps
	// it on while an explicit false still disables it.
	cfg := session.Config{Diarization: h.app.Cfg.Diarization.Enabled}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	s, err := h.app.Engine.StartSession(r.Context(), nil, cfg)
	if err != nil {
		if errors.Is(err, session.ErrInvalidConfig) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		// Model load failed; the session exists in the Error state and
		// stays queryable, so hand its snapshot back with the failure.
		resp := map[string]any{"error": err.Error()}
		if s != nil {
			resp["session"] = s.Snapshot()
		}
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.app.Engine.GetTranscriptionSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handler) processChunk(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChunkBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("empty audio chunk"))
		return
	}

	seg, err := h.app.Engine.ProcessAudioChunk(r.Context(), chi.URLParam(r, "sessionID"), data)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, seg)
}

func (h *handler) pauseSession(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.app.Engine.Pause)
}

func (h *handler) resumeSession(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.app.Engine.Resume)
}

func (h *handler) cancelSession(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.app.Engine.Cancel)
}

// lifecycle applies a state transition and returns the resulting snapshot.
func (h *handler) lifecycle(w http.ResponseWriter, r *http.Request, op func(string) error) {
	id := chi.URLParam(r, "sessionID")
	if err := op(id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	snap, err := h.app.Engine.GetTranscriptionSession(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handler) finalizeSession(w http.ResponseWriter, r *http.Request) {
	transcript, err := h.app.Engine.FinalizeTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, transcript)
}

func (h *handler) sessionMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Engine.QualityMetrics(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	h.app.Hub.ServeWS(w, r, chi.URLParam(r, "sessionID"))
}

func (h *handler) listModels(w http.ResponseWriter, _ *http.Request) {
	type modelInfo struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	resp := struct {
		Models      []modelInfo                       `json:"models"`
		BestModel   string                            `json:"bestModel,omitempty"`
		Performance map[string]transcribe.Performance `json:"performance,omitempty"`
	}{}

	tc := h.app.Transcriber
	for _, name := range tc.Models() {
		resp.Models = append(resp.Models, modelInfo{Name: name, Status: tc.Status(name).String()})
	}
	if best, ok := tc.GetBestPerformingModel(); ok {
		resp.BestModel = best
	}
	resp.Performance = tc.PerformanceSnapshot()
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps engine errors to HTTP statuses. Transcription failures
// surface as bad gateway except invalid audio, which is the caller's fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotActive):
		return http.StatusConflict
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, transcribe.ErrInvalidAudio):
		return http.StatusBadRequest
	}
	if transcribe.Classify(err) != models.FailureUnknown {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
