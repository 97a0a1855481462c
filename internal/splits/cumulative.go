package splits

// CumulativeBuilder derives elapsed-time-at-segment series. The accumulator lives for a
// single Build call.
type CumulativeBuilder struct {
	totals map[int]float64
	used   bool
}

// NewCumulativeBuilder returns a builder ready for one Build call.
func NewCumulativeBuilder() *CumulativeBuilder {
	return &CumulativeBuilder{totals: map[int]float64{}}
}

// Build walks segments in table order. For each attempt id of a segment it adds the
// segment's duration to that id's running total and appends the new total to the
// segment's series. Totals carry over from earlier segments.
func (b *CumulativeBuilder) Build(table *Table) map[string][]float64 {
	if b.used {
		b.totals = map[int]float64{}
	}
	b.used = true

	out := make(map[string][]float64, table.Len())
	for _, agg := range table.Entries {
		series := make([]float64, 0, agg.Len())
		for _, s := range agg.Durations {
			b.totals[s.AttemptID] += s.Seconds
			series = append(series, b.totals[s.AttemptID])
		}
		out[agg.Key] = series
	}
	return out
}

// Total returns an attempt's running total after the last Build.
func (b *CumulativeBuilder) Total(attemptID int) float64 {
	return b.totals[attemptID]
}

// BuildCumulativeSeries is a one-shot wrapper around CumulativeBuilder.
func BuildCumulativeSeries(table *Table) map[string][]float64 {
	return NewCumulativeBuilder().Build(table)
}
