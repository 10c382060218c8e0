// seed inserts sample calls and usage entries for local testing.
// Skips everything if the store already holds calls unless -force is given.
package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	calldomain "restaurant-bridge/backend/internal/call/domain"
	callrepo "restaurant-bridge/backend/internal/call/repository"
	"restaurant-bridge/backend/internal/config"
	"restaurant-bridge/backend/internal/db"
	"restaurant-bridge/backend/internal/db/migrate"
	"restaurant-bridge/backend/internal/logging"
	usagedomain "restaurant-bridge/backend/internal/usage/domain"
	usagerepo "restaurant-bridge/backend/internal/usage/repository"
)

var sampleCalls = []calldomain.CallEvent{
	{TableID: "1", CallType: calldomain.CallTypeWater, Message: "お水を2つ"},
	{TableID: "3", CallType: calldomain.CallTypeBill},
	{TableID: "5", CallType: calldomain.CallTypeCall, Message: "すみません！"},
	{TableID: "7", CallType: calldomain.CallTypeMenu},
	{TableID: "2", CallType: calldomain.CallTypeProblem, Message: "アレルギーについて"},
}

// resolvedSamples are indexes into sampleCalls that get marked responded.
var resolvedSamples = []int{0, 3}

var sampleUsage = []usagedomain.Entry{
	{Action: usagedomain.ActionPhraseTap, Phrase: "すみません！", Category: "greeting", Language: "en"},
	{Action: usagedomain.ActionPhraseTap, Phrase: "お会計お願いします", Category: "payment", Language: "en"},
	{Action: usagedomain.ActionPhraseTap, Phrase: "すみません！", Category: "greeting", Language: "vi"},
	{Action: usagedomain.ActionPhraseTap, Phrase: "水をください", Category: "order", Language: "zh"},
	{Action: usagedomain.ActionTranslate, Language: "vi"},
	{Action: usagedomain.ActionTranslate, Language: "ne"},
	{Action: usagedomain.ActionAudioPlay, Phrase: "少々お待ちください", Language: "en"},
	{Action: usagedomain.ActionStaffCall, Category: calldomain.CallTypeBill, TableID: "3"},
}

func main() {
	force := flag.Bool("force", false, "insert samples even if calls already exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatalf("migrate: %v", err)
	}
	conn, dialect, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	calls := callrepo.NewSQLRepository(conn, dialect)
	existing, err := calls.ListRecent(ctx, 1)
	if err != nil {
		logger.Fatalf("seed: %v", err)
	}
	if len(existing) > 0 && !*force {
		logger.Info("seed: store already has calls, skipping (use -force to add more)")
		return
	}

	ids := make([]int64, 0, len(sampleCalls))
	for _, sample := range sampleCalls {
		c := sample
		if err := calls.Append(ctx, &c); err != nil {
			logger.Fatalf("seed: append call: %v", err)
		}
		ids = append(ids, c.ID)
	}
	for _, i := range resolvedSamples {
		if _, err := calls.Resolve(ctx, ids[i]); err != nil {
			logger.Fatalf("seed: resolve call %d: %v", ids[i], err)
		}
	}

	usage := usagerepo.NewSQLRepository(conn, dialect)
	for _, sample := range sampleUsage {
		e := sample
		if err := usage.Append(ctx, &e); err != nil {
			logger.Fatalf("seed: append usage: %v", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"calls":    len(sampleCalls),
		"resolved": len(resolvedSamples),
		"usage":    len(sampleUsage),
	}).Info("seed: done")
}
