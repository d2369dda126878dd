// Package calculator derives the per-day metrics stored alongside each bar.
package calculator

import "StockIntel/internal/model"

// ComputeMetrics enriches an ascending daily series with its daily return,
// 7-day moving average, 52-week closing high and low, and 30-day return
// volatility. Output has the input's length and order, and every derived
// field is defined for non-empty input.
func ComputeMetrics(bars []model.Bar) []model.EnrichedBar {
	if len(bars) == 0 {
		return []model.EnrichedBar{}
	}
	closes := extractCloses(bars)
	returns := DailyReturns(bars)

	ma7 := FillGaps(RollingMean(closes, MAWindow))
	high := FillGaps(RollingMax(closes, TradingDaysPerYear))
	low := FillGaps(RollingMin(closes, TradingDaysPerYear))
	vol := FillGaps(RollingStdDev(returns, VolatilityWindow))
	returns = FillGaps(returns)

	out := make([]model.EnrichedBar, len(bars))
	for i, b := range bars {
		out[i] = model.EnrichedBar{
			Bar:           b,
			DailyReturn:   returns[i],
			MA7:           ma7[i],
			High52w:       high[i],
			Low52w:        low[i],
			Volatility30d: vol[i],
		}
	}
	return out
}
