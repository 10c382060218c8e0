package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"restaurant-bridge/backend/internal/call/domain"
	"restaurant-bridge/backend/internal/call/service"
	"restaurant-bridge/backend/internal/logging"
	"restaurant-bridge/backend/internal/server/httpjson"
	"restaurant-bridge/backend/internal/server/interceptors"
)

// CallService is the call service surface used by the HTTP handler.
type CallService interface {
	SubmitCall(ctx context.Context, tableID, callType, message string) (*service.Confirmation, error)
	ResolveCall(ctx context.Context, id int64) (bool, error)
	ListPending(ctx context.Context) ([]*domain.CallEvent, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.CallEvent, error)
}

// Handler serves the staff-call JSON API.
type Handler struct {
	svc    CallService
	logger logrus.FieldLogger
}

// NewHandler returns a call API handler. logger may be nil.
func NewHandler(svc CallService, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the call routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/calls", h.submit)
	mux.HandleFunc("GET /api/v1/calls/pending", h.pending)
	mux.HandleFunc("GET /api/v1/calls/recent", h.recent)
	mux.HandleFunc("POST /api/v1/calls/{id}/resolve", h.resolve)
}

// CallJSON is the wire form of a call event.
type CallJSON struct {
	ID          int64      `json:"id"`
	TableID     string     `json:"table_id"`
	CallType    string     `json:"call_type"`
	Icon        string     `json:"icon"`
	Message     string     `json:"message,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

type submitRequest struct {
	TableID  string `json:"table_id"`
	CallType string `json:"call_type"`
	Message  string `json:"message"`
}

type submitResponse struct {
	Call           CallJSON `json:"call"`
	Acknowledgment string   `json:"acknowledgment"`
	SpokenText     string   `json:"spoken_text"`
	Audio          []byte   `json:"audio,omitempty"`
	AudioType      string   `json:"audio_content_type,omitempty"`
}

type resolveResponse struct {
	Resolved bool `json:"resolved"`
}

type listResponse struct {
	Calls []CallJSON `json:"calls"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	conf, err := h.svc.SubmitCall(r.Context(), req.TableID, req.CallType, req.Message)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := submitResponse{
		Call:           ToJSON(conf.Call),
		Acknowledgment: conf.Acknowledgment,
		SpokenText:     conf.SpokenText,
		Audio:          conf.Audio,
	}
	if len(conf.Audio) > 0 {
		resp.AudioType = "audio/mpeg"
	}
	httpjson.Write(w, http.StatusCreated, resp)
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	calls, err := h.svc.ListPending(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, listResponse{Calls: toJSONList(calls)})
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpjson.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	calls, err := h.svc.ListRecent(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, listResponse{Calls: toJSONList(calls)})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpjson.Error(w, http.StatusBadRequest, "call id must be a positive integer")
		return
	}
	ok, err := h.svc.ResolveCall(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, resolveResponse{Resolved: ok})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		httpjson.Error(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		interceptors.Logger(r.Context(), h.logger).WithError(err).Error("call: unexpected error")
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}

// ToJSON converts a call event to its wire form.
func ToJSON(c *domain.CallEvent) CallJSON {
	return CallJSON{
		ID:          c.ID,
		TableID:     c.TableID,
		CallType:    c.CallType,
		Icon:        domain.Icon(c.CallType),
		Message:     c.Message,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		RespondedAt: c.RespondedAt,
	}
}

func toJSONList(calls []*domain.CallEvent) []CallJSON {
	out := make([]CallJSON, 0, len(calls))
	for _, c := range calls {
		out = append(out, ToJSON(c))
	}
	return out
}
