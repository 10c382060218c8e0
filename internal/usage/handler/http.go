package handler

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"restaurant-bridge/backend/internal/logging"
	"restaurant-bridge/backend/internal/server/httpjson"
	"restaurant-bridge/backend/internal/server/interceptors"
	"restaurant-bridge/backend/internal/usage/domain"
)

// Recorder is the usage surface used by the HTTP handler.
type Recorder interface {
	RecordAsync(e *domain.Entry)
	Stats(ctx context.Context) *domain.Stats
}

// Handler serves the usage telemetry API. Neither route ever reports a storage failure.
type Handler struct {
	rec    Recorder
	logger logrus.FieldLogger
}

// NewHandler returns a usage API handler. logger may be nil.
func NewHandler(rec Recorder, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{rec: rec, logger: logger}
}

// Register mounts the usage routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/usage", h.record)
	mux.HandleFunc("GET /api/v1/usage/stats", h.stats)
}

type recordRequest struct {
	Action   string `json:"action"`
	Phrase   string `json:"phrase"`
	Category string `json:"category"`
	Language string `json:"language"`
	TableID  string `json:"table_id"`
}

type acceptedResponse struct {
	Accepted bool `json:"accepted"`
}

// record queues the entry and answers 202 regardless of outcome; unusable bodies are dropped.
func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httpjson.Decode(r, &req); err != nil {
		interceptors.Logger(r.Context(), h.logger).WithError(err).Debug("usage: dropped unreadable entry")
		httpjson.Write(w, http.StatusAccepted, acceptedResponse{Accepted: false})
		return
	}
	if req.Action == "" {
		httpjson.Write(w, http.StatusAccepted, acceptedResponse{Accepted: false})
		return
	}
	h.rec.RecordAsync(&domain.Entry{
		Action:   req.Action,
		Phrase:   req.Phrase,
		Category: req.Category,
		Language: req.Language,
		TableID:  req.TableID,
	})
	httpjson.Write(w, http.StatusAccepted, acceptedResponse{Accepted: true})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, h.rec.Stats(r.Context()))
}
