package model

import "time"

// Company is one registered ticker.
type Company struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Exchange  string    `json:"exchange"`
	CreatedAt time.Time `json:"-"`
}

// PriceBar is a stored daily row. Nullable columns are pointers.
type PriceBar struct {
	ID            int64    `json:"id"`
	Symbol        string   `json:"symbol"`
	Date          Date     `json:"date"`
	Open          float64  `json:"open"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	Close         float64  `json:"close"`
	AdjustedClose *float64 `json:"adjusted_close"`
	Volume        *float64 `json:"volume"`
	DailyReturn   *float64 `json:"daily_return"`
	MA7           *float64 `json:"ma_7"`
	High52w       *float64 `json:"high_52w"`
	Low52w        *float64 `json:"low_52w"`
	Volatility30d *float64 `json:"volatility_30d"`
	CompanyID     *int64   `json:"company_id,omitempty"`
}

// Aggregates is the raw aggregate row behind a summary. A nil field means
// the aggregate was NULL.
type Aggregates struct {
	High52w  *float64
	Low52w   *float64
	AvgClose *float64
}

// StockSummary is the summary view of a symbol.
type StockSummary struct {
	Symbol   string  `json:"symbol"`
	High52w  float64 `json:"high_52w"`
	Low52w   float64 `json:"low_52w"`
	AvgClose float64 `json:"avg_close"`
}

// CompareMetrics holds the 30-day comparison figures for one symbol.
type CompareMetrics struct {
	Symbol           string  `json:"symbol"`
	Return30d        float64 `json:"return_30d"`
	AvgVolatility30d float64 `json:"avg_volatility_30d"`
}

// CompareResult pairs the metrics of two symbols.
type CompareResult struct {
	Symbol1 CompareMetrics `json:"symbol1"`
	Symbol2 CompareMetrics `json:"symbol2"`
}
