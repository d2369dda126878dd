package calculator

import "StockIntel/internal/model"

// MAWindow is the trailing window of the short moving average.
const MAWindow = 7

// RollingMean returns, for every index i, the mean of values[max(0,i-window+1)..i].
// The window narrows near the start of the series, so every output is defined.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

func extractCloses(bars []model.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
