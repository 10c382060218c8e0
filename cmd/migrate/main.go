// migrate applies or rolls back the embedded schema for DATABASE_URL (Postgres or sqlite).
package main

import (
	"errors"
	"flag"

	"github.com/sirupsen/logrus"

	"restaurant-bridge/backend/internal/config"
	"restaurant-bridge/backend/internal/db/migrate"
	"restaurant-bridge/backend/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migrate: already at target version")
			return
		}
		logger.Fatalf("migrate: %v", err)
	}
	logger.WithField("direction", *direction).Info("migrate: done")
}
