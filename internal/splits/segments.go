package splits

import "strconv"

// Sample is one attempt's duration for a segment, in seconds.
type Sample struct {
	AttemptID int
	Seconds   float64
}

// SegmentAggregate is one table entry. Key is unique; Name is the display label and may
// repeat across entries.
type SegmentAggregate struct {
	Key      string
	Name     string
	Position int
	// Durations is ordered by first appearance of each attempt id in the segment history.
	Durations []Sample

	byID map[int]int
}

func newSegmentAggregate(key, name string, position int) *SegmentAggregate {
	return &SegmentAggregate{
		Key:      key,
		Name:     name,
		Position: position,
		byID:     map[int]int{},
	}
}

// set records a duration. A repeated id replaces the value and keeps its first position.
func (a *SegmentAggregate) set(id int, seconds float64) {
	if idx, ok := a.byID[id]; ok {
		a.Durations[idx].Seconds = seconds
		return
	}
	a.byID[id] = len(a.Durations)
	a.Durations = append(a.Durations, Sample{AttemptID: id, Seconds: seconds})
}

// Duration returns the segment time recorded for an attempt.
func (a *SegmentAggregate) Duration(attemptID int) (float64, bool) {
	idx, ok := a.byID[attemptID]
	if !ok {
		return 0, false
	}
	return a.Durations[idx].Seconds, true
}

// Values returns the durations in mapping order.
func (a *SegmentAggregate) Values() []float64 {
	out := make([]float64, len(a.Durations))
	for i, s := range a.Durations {
		out[i] = s.Seconds
	}
	return out
}

// Len returns the number of attempts with a sample.
func (a *SegmentAggregate) Len() int {
	return len(a.Durations)
}

// Table maps resolved segment keys to aggregates, in segment definition order.
type Table struct {
	Entries []*SegmentAggregate

	index map[string]*SegmentAggregate
}

// Lookup returns the entry for a resolved key. An entry with no samples is still found.
func (t *Table) Lookup(key string) (*SegmentAggregate, bool) {
	if t == nil || t.index == nil {
		return nil, false
	}
	agg, ok := t.index[key]
	return agg, ok
}

// Keys returns the resolved keys in definition order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Len returns the number of segments.
func (t *Table) Len() int {
	return len(t.Entries)
}

// BuildAggregateTable maps every segment to its per-attempt durations.
//
// A name already used as a key gets a numeric suffix from a single counter shared by all
// names, so names "Boss", "Boss", "Boss" resolve to "Boss", "Boss1", "Boss2" while a later
// "Kraid", "Kraid" pair resolves to "Kraid", "Kraid3".
func BuildAggregateTable(rec *Record, method TimingMethod) (*Table, error) {
	if rec == nil || rec.Segments == nil {
		return nil, &StructureError{Collection: "Segments"}
	}
	table := &Table{index: map[string]*SegmentAggregate{}}
	counter := 0
	for pos, seg := range rec.Segments.Segments {
		key := seg.Name
		for {
			if _, taken := table.index[key]; !taken {
				break
			}
			counter++
			key = seg.Name + strconv.Itoa(counter)
		}
		agg := newSegmentAggregate(key, seg.Name, pos)
		table.index[key] = agg
		table.Entries = append(table.Entries, agg)

		for _, sample := range seg.Samples() {
			id, ok := positiveID(sample.ID)
			if !ok {
				continue
			}
			text, ok := sample.Sample(method)
			if !ok {
				continue
			}
			seconds, err := ParseDuration(text)
			if err != nil {
				return nil, err
			}
			agg.set(id, seconds)
		}
	}
	return table, nil
}
