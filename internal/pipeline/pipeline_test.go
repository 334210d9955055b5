package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverspeak/nwis-ingest/internal/domain"
	"github.com/riverspeak/nwis-ingest/internal/observability"
	"github.com/riverspeak/nwis-ingest/internal/pipeline"
)

var testWindow = domain.TimeWindow{
	Start: time.Date(2022, 11, 7, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC),
}

// --- mocks ---

// mockFetcher serves canned series per site, optionally with a random
// delay to shuffle completion order. Absent sites return ok=false.
type mockFetcher struct {
	series map[string][]domain.TimeSeries
	absent map[string]bool
	delay  time.Duration
	calls  atomic.Int64
}

func (m *mockFetcher) Fetch(_ context.Context, siteNo string, _ domain.TimeWindow) ([]domain.TimeSeries, bool) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.absent[siteNo] {
		return nil, false
	}
	return m.series[siteNo], true
}

type mockSelector struct {
	sites []domain.Site
}

func (m *mockSelector) Select(state, siteType string) []domain.Site {
	var out []domain.Site
	for _, s := range m.sites {
		if s.SourceState == state && s.SiteTpCd == siteType {
			out = append(out, s)
		}
	}
	return out
}

type mockStore struct {
	mu        sync.Mutex
	completed map[string]bool
	written   map[string][]domain.ObservationRow
	writeErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		completed: map[string]bool{},
		written:   map[string][]domain.ObservationRow{},
	}
}

func (m *mockStore) Completed(state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed[state]
}

func (m *mockStore) Write(state string, rows []domain.ObservationRow) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.written[state] = rows
	m.completed[state] = true
	return "/out/states_iv_" + state + "_3yrs.parquet", nil
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []string
	rows  int
	err   error
}

func (m *mockNotifier) PartitionCompleted(_ context.Context, state string, rows int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, state)
	m.rows = rows
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func streamSite(siteNo, state string) domain.Site {
	return domain.Site{SiteNo: siteNo, SourceState: state, SiteTpCd: domain.SiteTypeStream}
}

func oneReadingSeries(value, dateTime string) []domain.TimeSeries {
	return []domain.TimeSeries{{
		Variable: domain.Variable{
			VariableCode: []domain.VariableCode{{Value: "00010"}},
			VariableName: "Temperature",
			Unit:         domain.Unit{UnitCode: "deg C"},
		},
		Values: []domain.ValueBlock{{Value: []domain.Reading{
			{Value: value, DateTime: dateTime},
		}}},
	}}
}

func newPipeline(f pipeline.Fetcher, sel pipeline.SiteSelector, st pipeline.PartitionStore, n pipeline.CompletionNotifier) *pipeline.Pipeline {
	return pipeline.New(f, sel, st, n, testWindow, domain.SiteTypeStream, discardLogger(), observability.NewMetricsForTesting())
}

// --- tests ---

func TestPipeline_Process_HappyPath(t *testing.T) {
	// S1 has one in-window and one out-of-window reading; S2 times out on
	// every attempt. The partition must still complete with exactly one row.
	fetcher := &mockFetcher{
		series: map[string][]domain.TimeSeries{
			"S1": {{
				Variable: domain.Variable{
					VariableCode: []domain.VariableCode{{Value: "00010"}},
					VariableName: "Temperature",
					Unit:         domain.Unit{UnitCode: "deg C"},
				},
				Values: []domain.ValueBlock{{Value: []domain.Reading{
					{Value: "7.2", DateTime: "2024-03-01T14:30:00.000-05:00"},
					{Value: "9.9", DateTime: "2020-01-01T00:00:00Z"},
				}}},
			}},
		},
		absent: map[string]bool{"S2": true},
	}
	sel := &mockSelector{sites: []domain.Site{streamSite("S1", "TX"), streamSite("S2", "TX")}}
	store := newMockStore()

	p := newPipeline(fetcher, sel, store, nil)

	out, err := p.Process(context.Background(), "TX")
	require.NoError(t, err)

	assert.False(t, out.Skipped)
	assert.Equal(t, 1, out.Rows)
	assert.Equal(t, 2, out.Sites)
	assert.Equal(t, 1, out.Absent)

	rows := store.written["TX"]
	require.Len(t, rows, 1)
	assert.Equal(t, "S1", rows[0].SiteNo)
	assert.Equal(t, "7.2", rows[0].Value)
	assert.Equal(t, "TX", rows[0].State)

	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Process_SkipsCompletedPartition(t *testing.T) {
	fetcher := &mockFetcher{}
	store := newMockStore()
	store.completed["CA"] = true

	p := newPipeline(fetcher, &mockSelector{sites: []domain.Site{streamSite("S1", "CA")}}, store, nil)

	out, err := p.Process(context.Background(), "CA")
	require.NoError(t, err)

	assert.True(t, out.Skipped)
	assert.Equal(t, int64(0), fetcher.calls.Load(), "skip must issue zero fetches")
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Process_FanOutCompleteness(t *testing.T) {
	// 100 sites completing in shuffled order; every returned reading must
	// land in the output exactly once.
	const n = 100
	fetcher := &mockFetcher{
		series: map[string][]domain.TimeSeries{},
		absent: map[string]bool{},
		delay:  time.Millisecond,
	}
	sel := &mockSelector{}
	var wantSites []string
	for i := 0; i < n; i++ {
		siteNo := "S" + string(rune('A'+i/26)) + string(rune('A'+i%26))
		sel.sites = append(sel.sites, streamSite(siteNo, "PA"))
		if i%10 == 9 {
			fetcher.absent[siteNo] = true
			continue
		}
		fetcher.series[siteNo] = oneReadingSeries("1.5", "2024-01-01T00:00:00Z")
		wantSites = append(wantSites, siteNo)
	}

	store := newMockStore()
	p := newPipeline(fetcher, sel, store, nil)

	out, err := p.Process(context.Background(), "PA")
	require.NoError(t, err)

	assert.Equal(t, n, out.Sites)
	assert.Equal(t, 10, out.Absent)
	require.Equal(t, len(wantSites), out.Rows)

	var gotSites []string
	for _, row := range store.written["PA"] {
		gotSites = append(gotSites, row.SiteNo)
	}
	sort.Strings(gotSites)
	sort.Strings(wantSites)
	if diff := cmp.Diff(wantSites, gotSites); diff != "" {
		t.Errorf("sites in output mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_Process_SelectsOnlyStreamSitesInState(t *testing.T) {
	fetcher := &mockFetcher{series: map[string][]domain.TimeSeries{
		"S1": oneReadingSeries("1.0", "2024-01-01T00:00:00Z"),
	}}
	sel := &mockSelector{sites: []domain.Site{
		streamSite("S1", "NM"),
		streamSite("S2", "AZ"), // wrong state
		{SiteNo: "S3", SourceState: "NM", SiteTpCd: "GW"}, // wrong type
	}}
	store := newMockStore()

	p := newPipeline(fetcher, sel, store, nil)
	out, err := p.Process(context.Background(), "NM")
	require.NoError(t, err)

	assert.Equal(t, 1, out.Sites)
	assert.Equal(t, int64(1), fetcher.calls.Load())
}

func TestPipeline_Process_WriteFailure(t *testing.T) {
	fetcher := &mockFetcher{series: map[string][]domain.TimeSeries{}}
	store := newMockStore()
	store.writeErr = errors.New("disk full")

	p := newPipeline(fetcher, &mockSelector{sites: []domain.Site{streamSite("S1", "OR")}}, store, nil)

	_, err := p.Process(context.Background(), "OR")
	require.Error(t, err)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Process_CancelledRunDoesNotCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &mockFetcher{absent: map[string]bool{"S1": true}}
	store := newMockStore()
	p := newPipeline(fetcher, &mockSelector{sites: []domain.Site{streamSite("S1", "ID")}}, store, nil)

	_, err := p.Process(ctx, "ID")
	require.Error(t, err)
	assert.Empty(t, store.written, "a cancelled run must not leave a committed partition")
}

func TestPipeline_Process_Notifier(t *testing.T) {
	fetcher := &mockFetcher{series: map[string][]domain.TimeSeries{
		"S1": oneReadingSeries("3.3", "2024-01-01T00:00:00Z"),
	}}
	store := newMockStore()

	t.Run("called on completion", func(t *testing.T) {
		n := &mockNotifier{}
		p := newPipeline(fetcher, &mockSelector{sites: []domain.Site{streamSite("S1", "UT")}}, store, n)

		_, err := p.Process(context.Background(), "UT")
		require.NoError(t, err)
		assert.Equal(t, []string{"UT"}, n.calls)
		assert.Equal(t, 1, n.rows)
	})

	t.Run("notify failure does not fail the partition", func(t *testing.T) {
		n := &mockNotifier{err: errors.New("broker down")}
		p := newPipeline(fetcher, &mockSelector{sites: []domain.Site{streamSite("S1", "NV")}}, store, n)

		out, err := p.Process(context.Background(), "NV")
		require.NoError(t, err)
		assert.Equal(t, 1, out.Rows)
	})

	t.Run("not called on skip", func(t *testing.T) {
		n := &mockNotifier{}
		store.completed["MT"] = true
		p := newPipeline(fetcher, &mockSelector{}, store, n)

		_, err := p.Process(context.Background(), "MT")
		require.NoError(t, err)
		assert.Empty(t, n.calls)
	})
}

func TestPipeline_CheckReadiness_InitiallyNotReady(t *testing.T) {
	p := newPipeline(&mockFetcher{}, &mockSelector{}, newMockStore(), nil)
	assert.Error(t, p.CheckReadiness(context.Background()))
}
