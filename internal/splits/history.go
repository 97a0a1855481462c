package splits

import "time"

// Attempt is one qualifying attempt: positive id and both stamps recorded.
type Attempt struct {
	ID        int
	Started   time.Time
	Ended     time.Time
	Minutes   float64
	Completed bool
	// Seconds is the completion time; zero unless Completed.
	Seconds float64
}

// History holds the attempt-level series.
//
// Times and Dates have one entry per completed attempt. Durations and Completed have one
// entry per attempt with both stamps, finished or reset. The two pairs are not index-aligned
// with each other.
type History struct {
	Times     []float64
	Dates     []time.Time
	Durations []float64
	Completed []bool
	Attempts  []Attempt
}

// CompletedCount returns how many attempts finished.
func (h History) CompletedCount() int {
	return len(h.Times)
}

// ExtractAttempts walks the attempt history in record order.
func ExtractAttempts(rec *Record, method TimingMethod) (History, error) {
	var h History
	if rec == nil || rec.AttemptHistory == nil {
		return h, &StructureError{Collection: "AttemptHistory"}
	}
	for _, node := range rec.AttemptHistory.Attempts {
		id, ok := positiveID(node.ID)
		if !ok {
			continue
		}
		if node.Started == nil || node.Ended == nil {
			continue
		}
		minutes, err := ParseRunSpan(*node.Started, *node.Ended)
		if err != nil {
			return History{}, err
		}
		// Both stamps parsed above.
		started, _ := ParseTimestamp(*node.Started)
		ended, _ := ParseTimestamp(*node.Ended)
		attempt := Attempt{
			ID:      id,
			Started: started,
			Ended:   ended,
			Minutes: minutes,
		}
		h.Durations = append(h.Durations, attempt.Minutes)
		h.Completed = append(h.Completed, false)

		if text, ok := node.Sample(method); ok {
			seconds, err := ParseDuration(text)
			if err != nil {
				return History{}, err
			}
			attempt.Completed = true
			attempt.Seconds = seconds
			h.Times = append(h.Times, seconds)
			h.Dates = append(h.Dates, started)
			h.Completed[len(h.Completed)-1] = true
		}
		h.Attempts = append(h.Attempts, attempt)
	}
	return h, nil
}
