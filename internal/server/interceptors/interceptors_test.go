package interceptors

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"restaurant-bridge/backend/internal/logging"
)

func TestRequestIDContext(t *testing.T) {
	if id, ok := GetRequestID(context.Background()); ok || id != "" {
		t.Errorf("GetRequestID on empty ctx = %q, %v", id, ok)
	}
	ctx := WithRequestID(context.Background(), "req-1")
	if id, ok := GetRequestID(ctx); !ok || id != "req-1" {
		t.Errorf("GetRequestID = %q, %v", id, ok)
	}
}

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/calls/pending", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id = %q, header = %q", seen, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	h.ServeHTTP(rec, req)
	if seen != "client-supplied" || rec.Header().Get(RequestIDHeader) != "client-supplied" {
		t.Errorf("inbound id not reused: ctx %q header %q", seen, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	h.ServeHTTP(rec, req)
	if len(seen) > 128 {
		t.Errorf("oversized inbound id kept: %d bytes", len(seen))
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "debug", "json")
	h := RequestID(AccessLog(logger, map[string]bool{"/healthz": true})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/boom" {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("ok"))
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	out := buf.String()
	for _, want := range []string{`"status":503`, `"level":"warning"`, `"request_id":`, `"path":"/boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %s", out, want)
		}
	}

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !strings.Contains(buf.String(), `"level":"debug"`) || !strings.Contains(buf.String(), `"status":200`) {
		t.Errorf("health log = %q", buf.String())
	}
}

func TestRecover(t *testing.T) {
	h := Recover(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:1234", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
		{"unknown", nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoggingUnary(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info", "json")
	interceptor := LoggingUnary(logger, map[string]bool{"/grpc.health.v1.Health/Check": true})

	var gotID string
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		gotID, _ = GetRequestID(ctx)
		return nil, status.Error(codes.Unavailable, "store down")
	}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "abc"))
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/bridge.Board/Get"}, handler)
	if status.Code(err) != codes.Unavailable {
		t.Errorf("err = %v", err)
	}
	if gotID != "abc" {
		t.Errorf("request id = %q, want abc", gotID)
	}
	if out := buf.String(); !strings.Contains(out, `"code":"Unavailable"`) || !strings.Contains(out, `"request_id":"abc"`) {
		t.Errorf("log = %q", out)
	}

	buf.Reset()
	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			gotID, _ = GetRequestID(ctx)
			return nil, nil
		})
	if gotID == "" {
		t.Error("request id should be generated without metadata")
	}
	if buf.Len() != 0 {
		t.Errorf("skipped method logged at info: %q", buf.String())
	}
}

func TestLogger(t *testing.T) {
	base := logrus.New()
	if _, ok := Logger(context.Background(), base).(*logrus.Logger); !ok {
		t.Error("Logger without request id should return base")
	}
	if _, ok := Logger(WithRequestID(context.Background(), "x"), base).(*logrus.Entry); !ok {
		t.Error("Logger with request id should return an entry")
	}
}
