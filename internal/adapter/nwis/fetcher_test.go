package nwis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/riverspeak/nwis-ingest/internal/domain"
	"github.com/riverspeak/nwis-ingest/internal/observability"
)

// flakyClient fails the first failures calls, then succeeds.
type flakyClient struct {
	failures int32
	calls    atomic.Int32
	series   []domain.TimeSeries
}

func (c *flakyClient) FetchSeries(_ context.Context, _ string, _ domain.TimeWindow) ([]domain.TimeSeries, error) {
	if c.calls.Add(1) <= c.failures {
		return nil, errors.New("status 503")
	}
	return c.series, nil
}

// gaugeClient records the peak number of concurrent calls.
type gaugeClient struct {
	mu       sync.Mutex
	inflight int
	peak     int
}

func (c *gaugeClient) FetchSeries(_ context.Context, _ string, _ domain.TimeWindow) ([]domain.TimeSeries, error) {
	c.mu.Lock()
	c.inflight++
	if c.inflight > c.peak {
		c.peak = c.inflight
	}
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.inflight--
	c.mu.Unlock()
	return nil, nil
}

func newFetcher(client seriesClient, capacity int64, attempts int) *RetryingFetcher {
	return &RetryingFetcher{
		client:    client,
		sem:       semaphore.NewWeighted(capacity),
		attempts:  attempts,
		baseDelay: time.Millisecond,
		clock:     clockwork.NewRealClock(),
		metrics:   observability.NewMetricsForTesting(),
		logger:    discardLogger(),
	}
}

func TestRetryingFetcher_SuccessFirstAttempt(t *testing.T) {
	client := &flakyClient{series: []domain.TimeSeries{{}}}
	f := newFetcher(client, 30, 3)

	series, ok := f.Fetch(context.Background(), "S1", clientTestWindow)
	assert.True(t, ok)
	assert.Len(t, series, 1)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestRetryingFetcher_RecoverAfterRetries(t *testing.T) {
	client := &flakyClient{failures: 2, series: []domain.TimeSeries{{}}}
	f := newFetcher(client, 30, 3)

	series, ok := f.Fetch(context.Background(), "S1", clientTestWindow)
	assert.True(t, ok)
	assert.Len(t, series, 1)
	assert.Equal(t, int32(3), client.calls.Load())
}

func TestRetryingFetcher_AbsenceAfterExhaustion(t *testing.T) {
	client := &flakyClient{failures: 99}
	f := newFetcher(client, 30, 3)

	series, ok := f.Fetch(context.Background(), "S2", clientTestWindow)
	assert.False(t, ok, "exhausted site must be reported absent, not as an error")
	assert.Nil(t, series)
	assert.Equal(t, int32(3), client.calls.Load(), "exactly 3 attempts")
}

func TestRetryingFetcher_ConcurrencyBound(t *testing.T) {
	client := &gaugeClient{}
	f := newFetcher(client, 4, 1)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Fetch(context.Background(), "S1", clientTestWindow)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, client.peak, 4, "semaphore capacity must bound in-flight requests")
}

func TestRetryingFetcher_SlotsReleasedAfterFailures(t *testing.T) {
	client := &flakyClient{failures: 99}
	f := newFetcher(client, 2, 3)

	// Exhaust several sites through a capacity-2 semaphore; if any exit path
	// leaked a slot this would deadlock on a later acquire.
	for i := 0; i < 5; i++ {
		_, ok := f.Fetch(context.Background(), "S1", clientTestWindow)
		assert.False(t, ok)
	}

	require.True(t, f.sem.TryAcquire(2), "all slots must be free after fetches complete")
	f.sem.Release(2)
}

func TestRetryingFetcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &flakyClient{series: []domain.TimeSeries{{}}}
	f := newFetcher(client, 1, 3)

	_, ok := f.Fetch(ctx, "S1", clientTestWindow)
	assert.False(t, ok, "cancelled context degrades to absence")
	assert.Equal(t, int32(0), client.calls.Load(), "no network call after cancellation")
}
