package server

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"restaurant-bridge/backend/internal/server/interceptors"
)

// Routes is anything that mounts handlers on a mux (call API, usage API, dashboard, probes).
type Routes interface {
	Register(mux *http.ServeMux)
}

// probePaths are logged at debug level.
var probePaths = map[string]bool{"/healthz": true, "/readyz": true}

// NewHTTPHandler mounts every route group and wraps the mux with recovery, request ids,
// access logging and OTel instrumentation (outermost).
func NewHTTPHandler(logger logrus.FieldLogger, groups ...Routes) http.Handler {
	mux := http.NewServeMux()
	for _, g := range groups {
		if g != nil {
			g.Register(mux)
		}
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	var h http.Handler = mux
	h = interceptors.Recover(logger)(h)
	h = interceptors.AccessLog(logger, probePaths)(h)
	h = interceptors.RequestID(h)
	return otelhttp.NewHandler(h, "bridge.http")
}
