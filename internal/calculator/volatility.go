package calculator

import (
	"math"

	"StockIntel/internal/model"
)

// VolatilityWindow is the trailing window of the return volatility.
const VolatilityWindow = 30

// DailyReturns computes (close-open)/open per bar. A zero open leaves the slot
// undefined (NaN) instead of producing an infinite return.
func DailyReturns(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		if b.Open == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (b.Close - b.Open) / b.Open
	}
	return out
}

// RollingStdDev returns the sample standard deviation (n-1 denominator) of the
// defined values in each trailing window. Undefined inputs are skipped; a
// window with fewer than two defined values yields NaN.
func RollingStdDev(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		out[i] = sampleStdDev(values[start : i+1])
	}
	return out
}

func sampleStdDev(values []float64) float64 {
	var n int
	var sum float64
	for _, v := range values {
		if isDefined(v) {
			n++
			sum += v
		}
	}
	if n < 2 {
		return math.NaN()
	}
	mean := sum / float64(n)
	var sq float64
	for _, v := range values {
		if isDefined(v) {
			d := v - mean
			sq += d * d
		}
	}
	return math.Sqrt(sq / float64(n-1))
}

func isDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
