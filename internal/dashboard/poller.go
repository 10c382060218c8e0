package dashboard

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"restaurant-bridge/backend/internal/logging"
)

// DefaultInterval is the board refresh period.
const DefaultInterval = 10 * time.Second

// RenderFunc draws one snapshot. An error is logged and the poller keeps going.
type RenderFunc func(*Snapshot) error

// Poller re-reads the board on a fixed interval and hands each snapshot to a renderer.
type Poller struct {
	board    *Board
	interval time.Duration
	render   RenderFunc
	logger   logrus.FieldLogger
}

// NewPoller returns a Poller. interval <= 0 uses DefaultInterval.
func NewPoller(board *Board, interval time.Duration, render RenderFunc, logger logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Poller{board: board, interval: interval, render: render, logger: logger}
}

// Run renders immediately and then once per interval until ctx is done.
// Each read gets at most one interval to finish so a stuck store cannot stall the timer.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	readCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()
	snap := p.board.Snapshot(readCtx)
	if ctx.Err() != nil {
		return
	}
	if err := p.render(snap); err != nil {
		p.logger.WithError(err).Warn("dashboard: render failed")
	}
}
