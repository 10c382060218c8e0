// server runs the staff-call board: the JSON API, the browser dashboard and the gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	callhandler "restaurant-bridge/backend/internal/call/handler"
	callrepo "restaurant-bridge/backend/internal/call/repository"
	callservice "restaurant-bridge/backend/internal/call/service"
	"restaurant-bridge/backend/internal/config"
	"restaurant-bridge/backend/internal/dashboard"
	"restaurant-bridge/backend/internal/db"
	"restaurant-bridge/backend/internal/db/migrate"
	healthhandler "restaurant-bridge/backend/internal/health/handler"
	"restaurant-bridge/backend/internal/logging"
	"restaurant-bridge/backend/internal/server"
	"restaurant-bridge/backend/internal/telemetry"
	telemetryotel "restaurant-bridge/backend/internal/telemetry/otel"
	"restaurant-bridge/backend/internal/telemetry/producer"
	"restaurant-bridge/backend/internal/tts"
	"restaurant-bridge/backend/internal/usage"
	usagehandler "restaurant-bridge/backend/internal/usage/handler"
	usagerepo "restaurant-bridge/backend/internal/usage/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		logger.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	conn, dialect, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db: %v", err)
	}
	defer conn.Close()
	if dialect == db.SQLite {
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatalf("migrate: %v", err)
		}
	}
	logger.WithField("dialect", dialect.String()).Info("store ready")

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.CallsKafkaTopic)
	if err != nil {
		logger.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		defer kafkaProducer.Close()
		logger.WithField("topic", cfg.CallsKafkaTopic).Info("call events published to kafka")
	}

	var speech tts.Synthesizer
	if cfg.SpeechEnabled() {
		speech = tts.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, cfg.ElevenLabsModelID, cfg.ElevenLabsVoiceID)
	}

	recorder := usage.NewRecorder(usagerepo.NewSQLRepository(conn, dialect), logger, cfg.TopPhrasesLimit, cfg.StoreDeadline())
	calls := callservice.NewCallService(
		callrepo.NewSQLRepository(conn, dialect),
		recorder,
		telemetry.Fanout(emitters...),
		speech,
		logger,
		callservice.Options{
			StoreTimeout: cfg.StoreDeadline(),
			VoiceID:      cfg.ElevenLabsVoiceID,
			RecentLimit:  cfg.RecentCallsLimit,
		},
	)
	board := dashboard.NewBoard(calls, recorder, cfg.RecentCallsLimit, logger)
	health := healthhandler.NewServer(conn)

	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewHTTPHandler(logger,
			callhandler.NewHandler(calls, logger),
			usagehandler.NewHandler(recorder, logger),
			dashboard.NewHandler(board, calls, cfg.PollEvery(), logger),
			health,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http: %v", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatalf("listen: %v", err)
		}
		grpcSrv = server.NewGRPCServer(logger)
		server.RegisterServices(grpcSrv, health, cfg.Env != "production")
		go func() {
			logger.Infof("gRPC health server listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Fatalf("grpc: %v", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down...")
	shutdown(logger, httpSrv, grpcSrv, recorder, providers)
	logger.Info("stopped")
}

func shutdown(logger *logrus.Logger, httpSrv *http.Server, grpcSrv *grpc.Server, recorder *usage.Recorder, providers *telemetryotel.Providers) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	recorder.Flush()
	// Let async call events finish before the exporters go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("otel shutdown")
	}
}
