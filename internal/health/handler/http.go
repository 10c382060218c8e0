package handler

import (
	"net/http"

	"restaurant-bridge/backend/internal/server/httpjson"
)

type statusBody struct {
	Status string `json:"status"`
}

// Register mounts /healthz (liveness) and /readyz (storage ping) on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpjson.Write(w, http.StatusOK, statusBody{Status: "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Ready(r.Context()); err != nil {
			httpjson.Write(w, http.StatusServiceUnavailable, statusBody{Status: "unavailable"})
			return
		}
		httpjson.Write(w, http.StatusOK, statusBody{Status: "ready"})
	})
}
