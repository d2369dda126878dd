package calculator

// TradingDaysPerYear is the window of the 52-week high and low.
const TradingDaysPerYear = 252

// RollingMax returns, for every index i, the max of values[max(0,i-window+1)..i].
func RollingMax(values []float64, window int) []float64 {
	return rollingExtreme(values, window, func(a, b float64) bool { return a > b })
}

// RollingMin returns, for every index i, the min of values[max(0,i-window+1)..i].
func RollingMin(values []float64, window int) []float64 {
	return rollingExtreme(values, window, func(a, b float64) bool { return a < b })
}

// rollingExtreme keeps a monotonic deque of indices so each value enters and
// leaves once.
func rollingExtreme(values []float64, window int, better func(a, b float64) bool) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		return out
	}
	deque := make([]int, 0, window)
	for i, v := range values {
		if len(deque) > 0 && deque[0] <= i-window {
			deque = deque[1:]
		}
		for len(deque) > 0 && !better(values[deque[len(deque)-1]], v) {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)
		out[i] = values[deque[0]]
	}
	return out
}
