// Package service implements the read-side queries behind the HTTP API.
package service

import (
	"context"
	"strings"
	"time"

	"StockIntel/internal/apperr"
	"StockIntel/internal/cache"
	"StockIntel/internal/model"
	"StockIntel/internal/observability"
	"StockIntel/internal/store"
)

// RecentWindow is the number of latest bars served by Recent and Compare.
const RecentWindow = 30

const companiesKey = "all"

type StockService struct {
	store     store.Store
	companies *cache.TTL[string, []model.Company]
	summaries *cache.TTL[string, model.StockSummary]
	metrics   *observability.Metrics
}

// NewStockService wires the store behind TTL caches for the company list and
// per-symbol summaries. clock and metrics may be nil.
func NewStockService(st store.Store, ttl time.Duration, clock cache.Clock, metrics *observability.Metrics) *StockService {
	return &StockService{
		store:     st,
		companies: cache.NewTTL[string, []model.Company](ttl, clock),
		summaries: cache.NewTTL[string, model.StockSummary](ttl, clock),
		metrics:   metrics,
	}
}

func (s *StockService) Companies(ctx context.Context) ([]model.Company, error) {
	if v, ok := s.companies.Get(companiesKey); ok {
		s.cacheLookup("companies", true)
		return v, nil
	}
	s.cacheLookup("companies", false)

	companies, err := s.store.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	s.companies.Set(companiesKey, companies)
	return companies, nil
}

// Recent returns the latest RecentWindow bars of a symbol, oldest first.
func (s *StockService) Recent(ctx context.Context, rawSymbol string) ([]model.PriceBar, error) {
	symbol, err := normalize(rawSymbol, "symbol")
	if err != nil {
		return nil, err
	}
	bars, err := s.store.RecentBars(ctx, symbol, RecentWindow)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, apperr.New(apperr.SymbolNotFound, "Symbol not found")
	}
	return bars, nil
}

// Summary returns the 52-week high/low and average close across all stored
// bars of a symbol.
func (s *StockService) Summary(ctx context.Context, rawSymbol string) (model.StockSummary, error) {
	symbol, err := normalize(rawSymbol, "symbol")
	if err != nil {
		return model.StockSummary{}, err
	}
	if v, ok := s.summaries.Get(symbol); ok {
		s.cacheLookup("summary", true)
		return v, nil
	}
	s.cacheLookup("summary", false)

	exists, err := s.store.HasBars(ctx, symbol)
	if err != nil {
		return model.StockSummary{}, err
	}
	if !exists {
		return model.StockSummary{}, apperr.New(apperr.SymbolNotFound, "Symbol not found")
	}

	agg, err := s.store.Aggregates(ctx, symbol)
	if err != nil {
		return model.StockSummary{}, err
	}
	if agg.High52w == nil || agg.Low52w == nil || agg.AvgClose == nil {
		return model.StockSummary{}, apperr.New(apperr.InsufficientAggregateData, "Insufficient data for summary")
	}

	summary := model.StockSummary{
		Symbol:   symbol,
		High52w:  *agg.High52w,
		Low52w:   *agg.Low52w,
		AvgClose: *agg.AvgClose,
	}
	s.summaries.Set(symbol, summary)
	return summary, nil
}

// Compare computes the 30-bar return and mean volatility of two symbols.
func (s *StockService) Compare(ctx context.Context, raw1, raw2 string) (model.CompareResult, error) {
	sym1, err := normalize(raw1, "symbol1")
	if err != nil {
		return model.CompareResult{}, err
	}
	sym2, err := normalize(raw2, "symbol2")
	if err != nil {
		return model.CompareResult{}, err
	}

	m1, err := s.compareMetrics(ctx, sym1)
	if err != nil {
		return model.CompareResult{}, err
	}
	m2, err := s.compareMetrics(ctx, sym2)
	if err != nil {
		return model.CompareResult{}, err
	}
	return model.CompareResult{Symbol1: m1, Symbol2: m2}, nil
}

func (s *StockService) compareMetrics(ctx context.Context, symbol string) (model.CompareMetrics, error) {
	bars, err := s.store.RecentBars(ctx, symbol, RecentWindow)
	if err != nil {
		return model.CompareMetrics{}, err
	}
	return CompareMetrics(symbol, bars)
}

// CompareMetrics derives comparison figures from ascending bars. The return
// runs from the first bar's close to the last; volatility is the mean of the
// non-null values, or 0 when there are none.
func CompareMetrics(symbol string, bars []model.PriceBar) (model.CompareMetrics, error) {
	if len(bars) < 2 {
		return model.CompareMetrics{}, apperr.New(apperr.InsufficientHistory, "Insufficient data for %s", symbol)
	}
	start, end := bars[0], bars[len(bars)-1]
	if start.Close == 0 {
		return model.CompareMetrics{}, apperr.New(apperr.ZeroBaselinePrice, "Invalid price data for %s", symbol)
	}

	var sum float64
	var n int
	for _, b := range bars {
		if b.Volatility30d != nil {
			sum += *b.Volatility30d
			n++
		}
	}
	avgVol := 0.0
	if n > 0 {
		avgVol = sum / float64(n)
	}
	return model.CompareMetrics{
		Symbol:           symbol,
		Return30d:        (end.Close - start.Close) / start.Close,
		AvgVolatility30d: avgVol,
	}, nil
}

// Health pings the store.
func (s *StockService) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// InvalidateCaches drops cached responses, e.g. after an ingestion run.
func (s *StockService) InvalidateCaches() {
	s.companies.Purge()
	s.summaries.Purge()
}

func (s *StockService) cacheLookup(name string, hit bool) {
	if s.metrics == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	s.metrics.CacheLookups.WithLabelValues(name, result).Inc()
}

func normalize(raw, param string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperr.New(apperr.InvalidArgument, "%s is required", param)
	}
	return model.NormalizeSymbol(raw), nil
}
