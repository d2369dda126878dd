package store

import (
	"database/sql"
	"fmt"
	"time"

	"StockIntel/internal/model"
)

const priceColumns = `id, symbol, date, open, high, low, close, adjusted_close, volume,
	daily_return, ma_7, high_52w, low_52w, volatility_30d, company_id`

type scannable interface {
	Scan(dest ...any) error
}

// scanPriceBar reads one row selected with priceColumns. model.Date accepts
// both the TEXT form SQLite returns and the time.Time Postgres returns.
func scanPriceBar(row scannable) (model.PriceBar, error) {
	var (
		b                              model.PriceBar
		adj, vol, ret, ma7, hi, lo, vo sql.NullFloat64
		companyID                      sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close,
		&adj, &vol, &ret, &ma7, &hi, &lo, &vo, &companyID); err != nil {
		return model.PriceBar{}, fmt.Errorf("scan price bar: %w", err)
	}
	b.AdjustedClose = nullFloat(adj)
	b.Volume = nullFloat(vol)
	b.DailyReturn = nullFloat(ret)
	b.MA7 = nullFloat(ma7)
	b.High52w = nullFloat(hi)
	b.Low52w = nullFloat(lo)
	b.Volatility30d = nullFloat(vo)
	if companyID.Valid {
		id := companyID.Int64
		b.CompanyID = &id
	}
	return b, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
