package stats

import "sort"

// TopSegmentsByTimeSave returns up to n segment keys with the largest gap between median
// and best time. Segments without samples are never selected.
func TopSegmentsByTimeSave(segments []SegmentSummary, n int) []string {
	if n <= 0 || len(segments) == 0 {
		return nil
	}
	items := make([]SegmentSummary, 0, len(segments))
	for _, s := range segments {
		if s.HasData() {
			items = append(items, s)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PossibleTimeSave() > items[j].PossibleTimeSave()
	})
	n = min(n, len(items))
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].Key)
	}
	return out
}
