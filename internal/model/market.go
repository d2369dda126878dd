package model

// Bar is one day's OHLCV observation for a symbol, as delivered by a provider.
type Bar struct {
	Date     Date
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose *float64 // nil when the provider has no adjusted series
	Volume   *float64
}

// AdjustedClose returns the adjusted close, falling back to Close.
func (b Bar) AdjustedClose() float64 {
	if b.AdjClose != nil {
		return *b.AdjClose
	}
	return b.Close
}

// VolumeOrZero returns the volume, or 0 when the provider omitted it.
func (b Bar) VolumeOrZero() float64 {
	if b.Volume != nil {
		return *b.Volume
	}
	return 0
}

// EnrichedBar is a Bar plus its derived metrics. Every metric is defined once
// the series has been through the metrics engine's fill step.
type EnrichedBar struct {
	Bar
	DailyReturn   float64
	MA7           float64
	High52w       float64
	Low52w        float64
	Volatility30d float64
}
