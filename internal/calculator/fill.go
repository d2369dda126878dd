package calculator

// FillGaps replaces undefined (NaN or infinite) slots in place: forward fill
// from the last defined value, then backward fill leading gaps from the first
// defined value. A column with nothing defined is filled with 0.
func FillGaps(values []float64) []float64 {
	first := -1
	last := 0.0
	for i, v := range values {
		if isDefined(v) {
			if first < 0 {
				first = i
			}
			last = v
			continue
		}
		if first >= 0 {
			values[i] = last
		}
	}
	lead := 0.0
	if first >= 0 {
		lead = values[first]
	} else {
		first = len(values)
	}
	for i := 0; i < first; i++ {
		values[i] = lead
	}
	return values
}
