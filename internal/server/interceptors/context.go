package interceptors

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextKey struct{ name string }

var requestIDKey = contextKey{"request_id"}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request_id from context and true if set; otherwise "", false.
func GetRequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	return v, ok
}

// Logger returns base with the request_id field attached when ctx carries one.
func Logger(ctx context.Context, base logrus.FieldLogger) logrus.FieldLogger {
	if id, ok := GetRequestID(ctx); ok && id != "" {
		return base.WithField("request_id", id)
	}
	return base
}
