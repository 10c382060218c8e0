// Package dashboard builds the staff board: a periodic snapshot of pending calls, call
// history and usage stats, rendered as text for terminals or HTML for browsers.
package dashboard

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	calldomain "restaurant-bridge/backend/internal/call/domain"
	"restaurant-bridge/backend/internal/logging"
	usagedomain "restaurant-bridge/backend/internal/usage/domain"
)

// DefaultRecentLimit is the history length when none is configured.
const DefaultRecentLimit = 20

// CallReader reads the call board.
type CallReader interface {
	ListPending(ctx context.Context) ([]*calldomain.CallEvent, error)
	ListRecent(ctx context.Context, limit int) ([]*calldomain.CallEvent, error)
}

// CallResolver marks a call responded from the board.
type CallResolver interface {
	ResolveCall(ctx context.Context, id int64) (bool, error)
}

// StatsReader returns usage stats; it never fails.
type StatsReader interface {
	Stats(ctx context.Context) *usagedomain.Stats
}

// Snapshot is one read of the board.
type Snapshot struct {
	Pending []*calldomain.CallEvent
	Recent  []*calldomain.CallEvent
	Stats   *usagedomain.Stats
	TakenAt time.Time
	// Degraded is set when a call read failed and the empty state is shown instead.
	Degraded bool
}

// Board assembles snapshots. It holds no state between reads.
type Board struct {
	calls       CallReader
	stats       StatsReader
	recentLimit int
	logger      logrus.FieldLogger
	nowF        func() time.Time
}

// NewBoard returns a Board. stats and logger may be nil; recentLimit <= 0 uses DefaultRecentLimit.
func NewBoard(calls CallReader, stats StatsReader, recentLimit int, logger logrus.FieldLogger) *Board {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Board{
		calls:       calls,
		stats:       stats,
		recentLimit: recentLimit,
		logger:      logger,
		nowF:        time.Now,
	}
}

// Snapshot reads pending calls, recent calls and usage stats. A failed read yields an
// empty section; Snapshot itself never fails.
func (b *Board) Snapshot(ctx context.Context) *Snapshot {
	snap := &Snapshot{
		Pending: []*calldomain.CallEvent{},
		Recent:  []*calldomain.CallEvent{},
		Stats:   usagedomain.EmptyStats(),
		TakenAt: b.nowF(),
	}
	if pending, err := b.calls.ListPending(ctx); err != nil {
		b.logger.WithError(err).Warn("dashboard: pending calls unavailable")
		snap.Degraded = true
	} else {
		snap.Pending = pending
	}
	if recent, err := b.calls.ListRecent(ctx, b.recentLimit); err != nil {
		b.logger.WithError(err).Warn("dashboard: call history unavailable")
		snap.Degraded = true
	} else {
		snap.Recent = recent
	}
	if b.stats != nil {
		if stats := b.stats.Stats(ctx); stats != nil {
			snap.Stats = stats
		}
	}
	return snap
}
