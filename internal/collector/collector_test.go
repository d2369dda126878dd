package collector

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockIntel/internal/model"
	"StockIntel/internal/observability"
	"StockIntel/internal/store"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "c.db"), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func resultFor(t *testing.T, r RunReport, symbol string) SymbolResult {
	t.Helper()
	for _, res := range r.Results {
		if res.Symbol == symbol {
			return res
		}
	}
	t.Fatalf("no result for %s", symbol)
	return SymbolResult{}
}

func TestLoadSymbols_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fetcher := &MockFetcher{
		Days: 40,
		End:  model.NewDate(2024, 6, 28),
		Bars: map[string][]model.Bar{"EMPTY.NS": {}},
		Errors: map[string]error{
			"BROKEN.NS": errors.New("provider unavailable"),
		},
	}
	metrics := observability.NewMetrics("test")
	c := NewCollector(fetcher, st, Options{}, quietLogger(), metrics)

	report := c.LoadSymbols(ctx, []string{"broken", "reliance", "empty", "TCS.NS"})

	require.Len(t, report.Results, 4)
	assert.Equal(t, []string{"BROKEN.NS", "RELIANCE.NS", "EMPTY.NS", "TCS.NS"}, fetcher.Calls())

	broken := resultFor(t, report, "BROKEN.NS")
	assert.Equal(t, observability.OutcomeFailed, broken.Outcome)
	assert.ErrorContains(t, broken.Err, "provider unavailable")

	assert.Equal(t, observability.OutcomeSkipped, resultFor(t, report, "EMPTY.NS").Outcome)

	ok := resultFor(t, report, "RELIANCE.NS")
	assert.Equal(t, observability.OutcomeOK, ok.Outcome)
	assert.Equal(t, 40, ok.Fetched)
	assert.Equal(t, 40, ok.Inserted)
	assert.Equal(t, 80, report.Inserted())
	assert.Len(t, report.Failed(), 1)

	companies, err := st.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "RELIANCE.NS", companies[0].Symbol)
	assert.Equal(t, "RELIANCE", companies[0].Name)

	has, err := st.HasBars(ctx, "EMPTY.NS")
	require.NoError(t, err)
	assert.False(t, has)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SymbolsProcessed.WithLabelValues(observability.OutcomeFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SymbolsProcessed.WithLabelValues(observability.OutcomeOK)))
	assert.Equal(t, 80.0, testutil.ToFloat64(metrics.RowsInserted))
}

// flakyStore fails writes for chosen symbols and delegates everything else.
type flakyStore struct {
	store.Store
	failCompany string
	failHistory string
}

func (s *flakyStore) EnsureCompany(ctx context.Context, symbol string) (*model.Company, error) {
	if symbol == s.failCompany {
		return nil, errors.New("database is locked")
	}
	return s.Store.EnsureCompany(ctx, symbol)
}

func (s *flakyStore) StoreHistory(ctx context.Context, symbol string, bars []model.EnrichedBar) (int, error) {
	if symbol == s.failHistory {
		return 0, errors.New("constraint failed")
	}
	return s.Store.StoreHistory(ctx, symbol, bars)
}

func TestLoadSymbols_StoreFailureDoesNotStopRun(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{Store: newTestStore(t), failCompany: "A.NS", failHistory: "B.NS"}
	fetcher := &MockFetcher{Days: 15, End: model.NewDate(2024, 6, 28)}
	c := NewCollector(fetcher, st, Options{}, quietLogger(), nil)

	report := c.LoadSymbols(ctx, []string{"A", "B", "C"})

	require.Len(t, report.Results, 3)
	a := resultFor(t, report, "A.NS")
	assert.Equal(t, observability.OutcomeFailed, a.Outcome)
	assert.ErrorContains(t, a.Err, "ensure company")

	b := resultFor(t, report, "B.NS")
	assert.Equal(t, observability.OutcomeFailed, b.Outcome)
	assert.ErrorContains(t, b.Err, "store history")

	cRes := resultFor(t, report, "C.NS")
	assert.Equal(t, observability.OutcomeOK, cRes.Outcome)
	assert.Equal(t, 15, cRes.Inserted)
	assert.Len(t, report.Failed(), 2)

	for sym, want := range map[string]int{"A.NS": 0, "B.NS": 0, "C.NS": 15} {
		n, err := st.CountBars(ctx, sym)
		require.NoError(t, err)
		assert.Equal(t, want, n, sym)
	}
}

func TestLoadSymbols_RerunInsertsNothing(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fetcher := &MockFetcher{Days: 10, End: model.NewDate(2024, 6, 28)}
	c := NewCollector(fetcher, st, Options{}, quietLogger(), nil)

	first := c.LoadSymbols(ctx, []string{"INFY"})
	second := c.LoadSymbols(ctx, []string{"INFY"})

	assert.Equal(t, 10, first.Inserted())
	assert.Equal(t, 0, second.Inserted())
	assert.Equal(t, observability.OutcomeOK, second.Results[0].Outcome)

	n, err := st.CountBars(ctx, "INFY.NS")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestLoadSymbols_StoresComputedMetrics(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	fetcher := &MockFetcher{Bars: map[string][]model.Bar{
		"ABC.NS": {{Date: model.NewDate(2024, 1, 1), Open: 100, High: 111, Low: 99, Close: 110}},
	}}
	c := NewCollector(fetcher, st, Options{}, quietLogger(), nil)
	c.LoadSymbols(ctx, []string{"abc"})

	bars, err := st.RecentBars(ctx, "ABC.NS", 30)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	b := bars[0]
	require.NotNil(t, b.DailyReturn)
	assert.InDelta(t, 0.10, *b.DailyReturn, 1e-9)
	assert.Equal(t, 110.0, *b.MA7)
	assert.Equal(t, 110.0, *b.High52w)
	assert.Equal(t, 110.0, *b.Low52w)
	assert.Equal(t, 0.0, *b.Volatility30d)
	assert.Equal(t, 110.0, *b.AdjustedClose)
	assert.Equal(t, 0.0, *b.Volume)
}

func TestLoadSymbols_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &MockFetcher{Days: 5}
	c := NewCollector(fetcher, newTestStore(t), Options{}, quietLogger(), nil)

	report := c.LoadSymbols(ctx, []string{"A", "B"})

	require.Len(t, report.Results, 2)
	for _, res := range report.Results {
		assert.Equal(t, observability.OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.Empty(t, fetcher.Calls())
}

type slowFetcher struct{}

func (slowFetcher) Name() string { return "slow" }

func (slowFetcher) FetchDailyBars(ctx context.Context, _, _ string) ([]model.Bar, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestLoadSymbols_FetchTimeout(t *testing.T) {
	c := NewCollector(slowFetcher{}, newTestStore(t), Options{FetchTimeout: 20 * time.Millisecond}, quietLogger(), nil)

	report := c.LoadSymbols(context.Background(), []string{"SLOW", "ALSO"})

	require.Len(t, report.Results, 2)
	for _, res := range report.Results {
		assert.Equal(t, observability.OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
		assert.ErrorContains(t, res.Err, "timed out")
	}
}

func TestMockFetcher_GeneratesAscendingSeries(t *testing.T) {
	end := model.NewDate(2024, 3, 1)
	bars, err := (&MockFetcher{Days: 3, End: end}).FetchDailyBars(context.Background(), "X.NS", "1y")
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, end.AddDays(-2), bars[0].Date)
	assert.Equal(t, end, bars[2].Date)
}
