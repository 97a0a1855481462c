package stats

import "math"

// ClassifyBest marks each completion time that is strictly below every earlier one. The
// first time is always a new best.
func ClassifyBest(times []float64) []bool {
	out := make([]bool, len(times))
	best := math.Inf(1)
	for i, t := range times {
		if i == 0 || t < best {
			best = t
			out[i] = true
		}
	}
	return out
}
