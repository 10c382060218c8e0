package server

import (
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthhandler "restaurant-bridge/backend/internal/health/handler"
	"restaurant-bridge/backend/internal/server/interceptors"
)

// healthCheckMethod is logged at debug level; probes call it constantly.
const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewGRPCServer returns a gRPC server with OTel stats and request logging installed.
func NewGRPCServer(logger logrus.FieldLogger) *grpc.Server {
	return grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors.LoggingUnary(logger, map[string]bool{healthCheckMethod: true})),
	)
}

// RegisterServices registers the gRPC services with the given server.
//
//   - grpc.health.v1.Health → internal/health/handler
//   - server reflection, when enabled, for grpcurl
func RegisterServices(s grpc.ServiceRegistrar, health *healthhandler.Server, withReflection bool) {
	if health == nil {
		health = healthhandler.NewServer(nil)
	}
	healthpb.RegisterHealthServer(s, health)
	if withReflection {
		if gs, ok := s.(*grpc.Server); ok {
			reflection.Register(gs)
		}
	}
}
