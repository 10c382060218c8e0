package interceptors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// grpcRequestIDKey is the metadata key mirroring RequestIDHeader.
const grpcRequestIDKey = "x-request-id"

// LoggingUnary returns a unary server interceptor that tags the context with a request id
// and logs each RPC with its status code. Methods in skipMethods are logged at debug level.
func LoggingUnary(logger logrus.FieldLogger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(grpcRequestIDKey); len(vals) > 0 {
				id = vals[0]
			}
		}
		if id == "" {
			id = uuid.New().String()
		}
		ctx = WithRequestID(ctx, id)
		resp, err := handler(ctx, req)

		entry := Logger(ctx, logger).WithFields(logrus.Fields{
			"method":      info.FullMethod,
			"code":        status.Code(err).String(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if skipMethods[info.FullMethod] {
			entry.Debug("grpc request")
		} else {
			entry.Info("grpc request")
		}
		return resp, err
	}
}
