// dashboard is the terminal staff board: it polls the store every POLL_INTERVAL and redraws.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	callrepo "restaurant-bridge/backend/internal/call/repository"
	callservice "restaurant-bridge/backend/internal/call/service"
	"restaurant-bridge/backend/internal/config"
	"restaurant-bridge/backend/internal/dashboard"
	"restaurant-bridge/backend/internal/db"
	"restaurant-bridge/backend/internal/db/migrate"
	"restaurant-bridge/backend/internal/logging"
	"restaurant-bridge/backend/internal/usage"
	usagerepo "restaurant-bridge/backend/internal/usage/repository"
)

func main() {
	noClear := flag.Bool("no-clear", false, "append frames instead of redrawing the screen")
	resolve := flag.Int64("resolve", 0, "mark the given call id responded and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

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

	calls := callservice.NewCallService(callrepo.NewSQLRepository(conn, dialect), nil, nil, nil, logger,
		callservice.Options{StoreTimeout: cfg.StoreDeadline(), RecentLimit: cfg.RecentCallsLimit})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *resolve > 0 {
		ok, err := calls.ResolveCall(ctx, *resolve)
		if err != nil {
			logger.Fatalf("resolve: %v", err)
		}
		logger.WithFields(logrus.Fields{"call_id": *resolve, "resolved": ok}).Info("resolve")
		return
	}

	recorder := usage.NewRecorder(usagerepo.NewSQLRepository(conn, dialect), logger, cfg.TopPhrasesLimit, cfg.StoreDeadline())
	board := dashboard.NewBoard(calls, recorder, cfg.RecentCallsLimit, logger)
	renderer := dashboard.NewTextRenderer(os.Stdout, !*noClear)
	if err := dashboard.NewPoller(board, cfg.PollEvery(), renderer.Render, logger).Run(ctx); err != nil {
		logger.Fatalf("dashboard: %v", err)
	}
}
