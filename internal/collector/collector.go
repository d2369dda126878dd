package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"StockIntel/internal/calculator"
	"StockIntel/internal/model"
	"StockIntel/internal/observability"
	"StockIntel/internal/store"
)

// MockFetcher returns controllable fixed data for development and testing.
// Bars and Errors are keyed by normalized symbol; unknown symbols get a
// generated series of Days bars ending at End.
type MockFetcher struct {
	Price  float64
	Days   int
	End    model.Date
	Bars   map[string][]model.Bar
	Errors map[string]error

	mu    sync.Mutex
	calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol, _ string) ([]model.Bar, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	end := m.End
	if end.IsZero() {
		end = model.DateOf(time.Now().UTC())
	}
	days := m.Days
	if days <= 0 {
		days = calculator.TradingDaysPerYear
	}
	price := m.Price
	if price <= 0 {
		price = 100
	}
	return generateMockBars(price, days, end), nil
}

// Calls returns the symbols requested so far, in order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func generateMockBars(basePrice float64, count int, end model.Date) []model.Bar {
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		vol := 1000000.0
		bars[i] = model.Bar{
			Date:   end.AddDays(-(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: &vol,
		}
	}
	return bars
}

// SymbolResult is the outcome of ingesting one symbol.
type SymbolResult struct {
	Symbol   string
	Outcome  string // observability.OutcomeOK, OutcomeSkipped or OutcomeFailed
	Fetched  int
	Inserted int
	Err      error
}

// RunReport summarizes one LoadSymbols call.
type RunReport struct {
	Started  time.Time
	Duration time.Duration
	Results  []SymbolResult
}

// Failed returns the results whose outcome is failed.
func (r RunReport) Failed() []SymbolResult {
	var out []SymbolResult
	for _, res := range r.Results {
		if res.Outcome == observability.OutcomeFailed {
			out = append(out, res)
		}
	}
	return out
}

// Inserted returns the total number of new rows across symbols.
func (r RunReport) Inserted() int {
	n := 0
	for _, res := range r.Results {
		n += res.Inserted
	}
	return n
}

// Options tunes a Collector. Zero values fall back to defaults.
type Options struct {
	Lookback          string
	RequestsPerSecond float64
	FetchTimeout      time.Duration
}

// Collector orchestrates fetching, metric computation and storage.
type Collector struct {
	fetcher      Fetcher
	store        store.Store
	limiter      *rate.Limiter
	lookback     string
	fetchTimeout time.Duration
	logger       *logrus.Logger
	metrics      *observability.Metrics
}

// NewCollector creates a new Collector. metrics may be nil.
func NewCollector(fetcher Fetcher, st store.Store, opts Options, logger *logrus.Logger, metrics *observability.Metrics) *Collector {
	if opts.Lookback == "" {
		opts.Lookback = "1y"
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Collector{
		fetcher:      fetcher,
		store:        st,
		limiter:      rate.NewLimiter(limit, 1),
		lookback:     opts.Lookback,
		fetchTimeout: opts.FetchTimeout,
		logger:       logger,
		metrics:      metrics,
	}
}

// LoadSymbols ingests each symbol in turn. A failure for one symbol is logged
// and recorded in the report; the loop continues. Cancelling ctx stops the
// loop and marks the remaining symbols failed.
func (c *Collector) LoadSymbols(ctx context.Context, symbols []string) RunReport {
	report := RunReport{Started: time.Now()}

	for _, raw := range symbols {
		symbol := model.NormalizeSymbol(raw)
		if symbol == "" {
			continue
		}
		var res SymbolResult
		if err := ctx.Err(); err != nil {
			res = SymbolResult{Symbol: symbol, Outcome: observability.OutcomeFailed, Err: err}
		} else {
			res = c.loadSymbol(ctx, symbol)
		}
		c.record(res)
		report.Results = append(report.Results, res)
	}

	report.Duration = time.Since(report.Started)
	if c.metrics != nil {
		c.metrics.IngestRunDuration.Observe(report.Duration.Seconds())
		if len(report.Failed()) == 0 {
			c.metrics.LastSuccessfulRun.SetToCurrentTime()
		}
	}
	c.logger.WithFields(logrus.Fields{
		"symbols":  len(report.Results),
		"failed":   len(report.Failed()),
		"inserted": report.Inserted(),
		"duration": report.Duration.Round(time.Millisecond),
	}).Info("ingestion run finished")
	return report
}

func (c *Collector) loadSymbol(ctx context.Context, symbol string) SymbolResult {
	res := SymbolResult{Symbol: symbol}
	fail := func(err error) SymbolResult {
		res.Outcome = observability.OutcomeFailed
		res.Err = err
		return res
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(fmt.Errorf("rate limiter: %w", err))
	}
	bars, err := c.fetch(ctx, symbol)
	if err != nil {
		return fail(fmt.Errorf("fetch: %w", err))
	}
	res.Fetched = len(bars)
	if len(bars) == 0 {
		res.Outcome = observability.OutcomeSkipped
		return res
	}

	enriched := calculator.ComputeMetrics(bars)
	if _, err := c.store.EnsureCompany(ctx, symbol); err != nil {
		return fail(fmt.Errorf("ensure company: %w", err))
	}
	inserted, err := c.store.StoreHistory(ctx, symbol, enriched)
	if err != nil {
		return fail(fmt.Errorf("store history: %w", err))
	}
	res.Inserted = inserted
	res.Outcome = observability.OutcomeOK
	return res
}

func (c *Collector) fetch(ctx context.Context, symbol string) ([]model.Bar, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	start := time.Now()
	bars, err := c.fetcher.FetchDailyBars(fetchCtx, symbol, c.lookback)
	if c.metrics != nil {
		c.metrics.FetchLatency.WithLabelValues(c.fetcher.Name()).Observe(time.Since(start).Seconds())
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%s timed out after %s: %w", c.fetcher.Name(), c.fetchTimeout, err)
	}
	return bars, err
}

func (c *Collector) record(res SymbolResult) {
	if c.metrics != nil {
		c.metrics.SymbolsProcessed.WithLabelValues(res.Outcome).Inc()
		c.metrics.BarsFetched.Add(float64(res.Fetched))
		c.metrics.RowsInserted.Add(float64(res.Inserted))
	}
	entry := c.logger.WithFields(logrus.Fields{
		"symbol":   res.Symbol,
		"fetched":  res.Fetched,
		"inserted": res.Inserted,
	})
	switch res.Outcome {
	case observability.OutcomeFailed:
		entry.WithError(res.Err).Error("symbol ingestion failed")
	case observability.OutcomeSkipped:
		entry.Warn("no data returned, skipping")
	default:
		entry.Info("symbol ingested")
	}
}
