// Package usage records UI usage telemetry and computes the dashboard usage stats.
// Both paths are best-effort: storage failures are logged and never reach the caller.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"restaurant-bridge/backend/internal/logging"
	"restaurant-bridge/backend/internal/usage/domain"
	usagerepo "restaurant-bridge/backend/internal/usage/repository"
)

// DefaultTopPhrases is the popular-phrase limit when none is configured.
const DefaultTopPhrases = 10

// DefaultStoreTimeout bounds each usage query when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// UsageRecorder is what request handlers depend on to log UI actions.
type UsageRecorder interface {
	Record(ctx context.Context, e *domain.Entry)
	RecordAsync(e *domain.Entry)
}

// Recorder implements UsageRecorder and the stats read path over a usage repository.
type Recorder struct {
	repo     usagerepo.Repository
	logger   logrus.FieldLogger
	topN     int
	timeout  time.Duration
	inflight sync.WaitGroup
	dropped  metric.Int64Counter
}

// NewRecorder returns a Recorder persisting to repo. topN <= 0 uses DefaultTopPhrases and
// storeTimeout <= 0 uses DefaultStoreTimeout for every write and grouping query.
// logger may be nil; then failures are discarded silently.
func NewRecorder(repo usagerepo.Repository, logger logrus.FieldLogger, topN int, storeTimeout time.Duration) *Recorder {
	if topN <= 0 {
		topN = DefaultTopPhrases
	}
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	dropped, _ := otel.Meter("restaurant-bridge/usage").Int64Counter(
		"bridge.usage.dropped",
		metric.WithDescription("Usage log entries that could not be stored"),
	)
	return &Recorder{repo: repo, logger: logger, topN: topN, timeout: storeTimeout, dropped: dropped}
}

// Record writes one usage entry. Best-effort: errors are logged and not returned.
func (r *Recorder) Record(ctx context.Context, e *domain.Entry) {
	if r == nil || r.repo == nil || e == nil || e.Action == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.repo.Append(ctx, e); err != nil {
		if r.dropped != nil {
			r.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("action", e.Action)))
		}
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action":   e.Action,
			"table_id": e.TableID,
		}).Warn("usage: failed to record entry")
	}
}

// RecordAsync runs Record in a goroutine so the caller is never blocked.
// The goroutine uses context.Background() so request cancellation does not abort the write.
func (r *Recorder) RecordAsync(e *domain.Entry) {
	if r == nil || r.repo == nil || e == nil || e.Action == "" {
		return
	}
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.Record(context.Background(), e)
	}()
}

// Flush blocks until every RecordAsync started so far has finished. Used on shutdown.
func (r *Recorder) Flush() {
	if r == nil {
		return
	}
	r.inflight.Wait()
}

// Stats aggregates the usage log. Each grouping runs under the store timeout and degrades
// to empty on a storage error, so the result is never nil and the caller never sees the failure.
func (r *Recorder) Stats(ctx context.Context) *domain.Stats {
	stats := domain.EmptyStats()
	if r == nil || r.repo == nil {
		return stats
	}

	if actions, err := r.count(ctx, r.repo.CountByAction); err != nil {
		r.logger.WithError(err).Warn("usage: action counts unavailable")
	} else {
		stats.ByAction = actions
	}
	if languages, err := r.count(ctx, r.repo.CountByLanguage); err != nil {
		r.logger.WithError(err).Warn("usage: language counts unavailable")
	} else {
		stats.Languages = languages
	}
	topPhrases := func(ctx context.Context) ([]domain.Count, error) { return r.repo.TopPhrases(ctx, r.topN) }
	if phrases, err := r.count(ctx, topPhrases); err != nil {
		r.logger.WithError(err).Warn("usage: popular phrases unavailable")
	} else {
		stats.PopularPhrases = phrases
	}

	stats.PhraseTaps = stats.ActionCount(domain.ActionPhraseTap)
	stats.Translations = stats.ActionCount(domain.ActionTranslate)
	stats.Total = stats.PhraseTaps + stats.Translations
	return stats
}

func (r *Recorder) count(ctx context.Context, query func(context.Context) ([]domain.Count, error)) ([]domain.Count, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return query(ctx)
}
