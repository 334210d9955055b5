// Package pipeline orchestrates the per-partition fetch, flatten, and
// commit cycle.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riverspeak/nwis-ingest/internal/domain"
	"github.com/riverspeak/nwis-ingest/internal/observability"
)

// Fetcher retrieves one site's IV series. ok is false when the site
// exhausted its attempts and should contribute zero rows.
type Fetcher interface {
	Fetch(ctx context.Context, siteNo string, window domain.TimeWindow) (series []domain.TimeSeries, ok bool)
}

// SiteSelector resolves the stations belonging to a partition.
type SiteSelector interface {
	Select(state, siteType string) []domain.Site
}

// PartitionStore persists committed partition outputs.
type PartitionStore interface {
	Completed(state string) bool
	Write(state string, rows []domain.ObservationRow) (path string, err error)
}

// CompletionNotifier announces a committed partition downstream.
type CompletionNotifier interface {
	PartitionCompleted(ctx context.Context, state string, rows int, path string) error
}

// Outcome describes how a partition run ended.
type Outcome struct {
	State   string
	Skipped bool
	Rows    int
	Sites   int
	Absent  int
}

// Pipeline runs the fetch+flatten fan-out for one partition at a time and
// commits the aggregated rows.
type Pipeline struct {
	fetcher  Fetcher
	sites    SiteSelector
	store    PartitionStore
	notifier CompletionNotifier // optional
	window   domain.TimeWindow
	siteType string
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Pipeline. Pass a nil notifier to disable completion
// announcements.
func New(fetcher Fetcher, sites SiteSelector, store PartitionStore, notifier CompletionNotifier, window domain.TimeWindow, siteType string, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		sites:    sites,
		store:    store,
		notifier: notifier,
		window:   window,
		siteType: siteType,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once at least one partition has completed or
// been skipped this run.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no partition has completed yet")
	}
	return nil
}

// fetchResult carries one site's outcome from its goroutine to the
// accumulator.
type fetchResult struct {
	site   domain.Site
	series []domain.TimeSeries
	ok     bool
}

// Process runs one partition end to end. If the partition's output already
// exists and is viable it is skipped without a single network call.
//
// One goroutine is launched per selected site; actual network parallelism
// is governed by the fetcher's semaphore, not the goroutine count. Results
// are drained from a single channel, so flattening and appending happen one
// completion at a time, in completion order.
func (p *Pipeline) Process(ctx context.Context, state string) (Outcome, error) {
	if p.store.Completed(state) {
		p.logger.Info("partition already complete, skipping", "state", state)
		p.metrics.PartitionsSkipped.Inc()
		p.ready.Store(true)
		return Outcome{State: state, Skipped: true}, nil
	}

	selected := p.sites.Select(state, p.siteType)
	p.logger.Info("processing partition", "state", state, "sites", len(selected))
	start := time.Now()

	results := make(chan fetchResult)
	var wg sync.WaitGroup
	for _, site := range selected {
		wg.Add(1)
		go func(s domain.Site) {
			defer wg.Done()
			series, ok := p.fetcher.Fetch(ctx, s.SiteNo, p.window)
			results <- fetchResult{site: s, series: series, ok: ok}
		}(site)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var rows []domain.ObservationRow
	absent := 0
	for res := range results {
		if !res.ok {
			absent++
			continue
		}
		rows = append(rows, domain.Flatten(res.site.SiteNo, state, res.series, p.window)...)
	}

	// A cancelled run has incomplete results; committing them would let the
	// resume check mistake a partial partition for a finished one.
	if err := ctx.Err(); err != nil {
		return Outcome{State: state}, err
	}

	path, err := p.store.Write(state, rows)
	if err != nil {
		p.metrics.PartitionWriteFailures.Inc()
		return Outcome{State: state}, err
	}

	p.metrics.PartitionsCompleted.Inc()
	p.metrics.RowsEmitted.Add(float64(len(rows)))
	p.metrics.PartitionRows.Observe(float64(len(rows)))
	p.metrics.PartitionDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	p.logger.Info("partition committed",
		"state", state,
		"rows", len(rows),
		"sites", len(selected),
		"absent", absent,
		"path", path,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if p.notifier != nil {
		if err := p.notifier.PartitionCompleted(ctx, state, len(rows), path); err != nil {
			// The partition is durable; a lost announcement is not worth failing it.
			p.logger.Warn("completion notification failed", "state", state, "error", err)
		}
	}

	return Outcome{State: state, Rows: len(rows), Sites: len(selected), Absent: absent}, nil
}
