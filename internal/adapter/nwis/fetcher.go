package nwis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"

	"github.com/riverspeak/nwis-ingest/internal/domain"
	"github.com/riverspeak/nwis-ingest/internal/observability"
)

// seriesClient is the single-attempt fetch the retrying layer wraps.
type seriesClient interface {
	FetchSeries(ctx context.Context, siteNo string, window domain.TimeWindow) ([]domain.TimeSeries, error)
}

// RetryingFetcher wraps the NWIS client with the global concurrency bound
// and a bounded linear-backoff retry policy.
//
// A site that fails every attempt is reported as absent, never as an error:
// one dead gage must not abort its partition. Decode failures retry like
// transport errors — the service intermittently returns truncated bodies
// under load, so a bad payload is treated as transient.
type RetryingFetcher struct {
	client    seriesClient
	sem       *semaphore.Weighted
	attempts  int
	baseDelay time.Duration
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewRetryingFetcher creates a fetcher whose semaphore capacity is the true
// upper bound on concurrent NWIS requests across the whole process.
func NewRetryingFetcher(client *Client, maxConcurrency int64, attempts int, baseDelay time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *RetryingFetcher {
	return &RetryingFetcher{
		client:    client,
		sem:       semaphore.NewWeighted(maxConcurrency),
		attempts:  attempts,
		baseDelay: baseDelay,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Fetch retrieves the IV series for one site, retrying failed attempts with
// a delay of baseDelay×attempt. The second return is false when every
// attempt failed; the caller treats that as zero rows for the site.
func (f *RetryingFetcher) Fetch(ctx context.Context, siteNo string, window domain.TimeWindow) ([]domain.TimeSeries, bool) {
	for attempt := 1; attempt <= f.attempts; attempt++ {
		series, err := f.tryOnce(ctx, siteNo, window)
		if err == nil {
			return series, true
		}

		f.logger.Debug("fetch attempt failed",
			"site", siteNo,
			"attempt", attempt,
			"error", err,
		)

		if attempt == f.attempts {
			break
		}
		f.metrics.FetchRetries.Inc()
		if !f.sleep(ctx, time.Duration(attempt)*f.baseDelay) {
			break
		}
	}

	f.metrics.FetchAbsences.Inc()
	f.logger.Warn("site exhausted all fetch attempts", "site", siteNo, "attempts", f.attempts)
	return nil, false
}

// tryOnce performs a single attempt. The semaphore slot is held only for
// the duration of the network call and released on every path.
func (f *RetryingFetcher) tryOnce(ctx context.Context, siteNo string, window domain.TimeWindow) ([]domain.TimeSeries, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire fetch slot: %w", err)
	}
	f.metrics.InflightRequests.Inc()
	f.metrics.FetchAttempts.Inc()

	start := f.clock.Now()
	series, err := f.client.FetchSeries(ctx, siteNo, window)
	f.metrics.FetchDuration.Observe(f.clock.Since(start).Seconds())

	f.metrics.InflightRequests.Dec()
	f.sem.Release(1)

	return series, err
}

func (f *RetryingFetcher) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-f.clock.After(d):
		return true
	}
}
