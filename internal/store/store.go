// Package store persists companies and enriched daily bars.
package store

import (
	"context"

	"StockIntel/internal/model"
)

// Store is the persistence boundary shared by ingestion and the read surface.
// Implementations enforce uniqueness of companies.symbol and of
// stock_prices(symbol, date) at the schema level.
type Store interface {
	// EnsureCompany returns the company for symbol, creating it on first sight.
	// Concurrent callers for the same symbol observe one row.
	EnsureCompany(ctx context.Context, symbol string) (*model.Company, error)
	// StoreHistory inserts bars whose (symbol, date) is not yet present, in one
	// transaction, and reports how many rows were new.
	StoreHistory(ctx context.Context, symbol string, bars []model.EnrichedBar) (int, error)

	ListCompanies(ctx context.Context) ([]model.Company, error)
	// RecentBars returns up to limit of the latest bars, oldest first.
	RecentBars(ctx context.Context, symbol string, limit int) ([]model.PriceBar, error)
	HasBars(ctx context.Context, symbol string) (bool, error)
	CountBars(ctx context.Context, symbol string) (int, error)
	Aggregates(ctx context.Context, symbol string) (model.Aggregates, error)

	Ping(ctx context.Context) error
	Close() error
}

// newCompany builds the record created for a symbol seen for the first time.
func newCompany(symbol string) model.Company {
	return model.Company{
		Symbol:   symbol,
		Name:     model.DisplayName(symbol),
		Exchange: model.DefaultExchange,
	}
}

// storedRow flattens an enriched bar into column values, applying the
// adjusted-close and volume defaults.
type storedRow struct {
	open, high, low, close float64
	adjClose, volume       float64
	ret, ma7, hi, lo, vol  float64
}

func toStoredRow(b model.EnrichedBar) storedRow {
	return storedRow{
		open: b.Open, high: b.High, low: b.Low, close: b.Close,
		adjClose: b.AdjustedClose(),
		volume:   b.VolumeOrZero(),
		ret:      b.DailyReturn,
		ma7:      b.MA7,
		hi:       b.High52w,
		lo:       b.Low52w,
		vol:      b.Volatility30d,
	}
}

func reverseBars(bars []model.PriceBar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
