package splits

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// TimingMethod selects which clock a sample is read from.
type TimingMethod int

const (
	// RealTime is wall-clock timing (the default).
	RealTime TimingMethod = iota
	// GameTime is load-removed timing.
	GameTime
)

// ParseTimingMethod maps "real" or "game" to a TimingMethod.
func ParseTimingMethod(s string) (TimingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "real", "realtime":
		return RealTime, nil
	case "game", "gametime":
		return GameTime, nil
	default:
		return RealTime, fmt.Errorf("unknown timing method %q (use real or game)", s)
	}
}

func (m TimingMethod) String() string {
	if m == GameTime {
		return "game"
	}
	return "real"
}

// StructureError reports a required top-level collection missing from the record.
type StructureError struct {
	Collection string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("run history is missing required collection <%s>", e.Collection)
}

// Record is a decoded splits file. Only the parts the aggregations need are mapped.
type Record struct {
	XMLName        xml.Name        `xml:"Run"`
	GameName       string          `xml:"GameName"`
	CategoryName   string          `xml:"CategoryName"`
	AttemptCount   int             `xml:"AttemptCount"`
	AttemptHistory *AttemptHistory `xml:"AttemptHistory"`
	Segments       *SegmentList    `xml:"Segments"`
}

// AttemptHistory lists every attempt in record order.
type AttemptHistory struct {
	Attempts []AttemptNode `xml:"Attempt"`
}

// SegmentList lists segment definitions in run order.
type SegmentList struct {
	Segments []SegmentNode `xml:"Segment"`
}

// Timing holds the optional time children shared by attempts and segment samples.
type Timing struct {
	RealTime *string `xml:"RealTime"`
	GameTime *string `xml:"GameTime"`
}

// Sample returns the text of the selected clock, if recorded.
func (t Timing) Sample(m TimingMethod) (string, bool) {
	var v *string
	switch m {
	case GameTime:
		v = t.GameTime
	default:
		v = t.RealTime
	}
	if v == nil {
		return "", false
	}
	return *v, true
}

// AttemptNode is one <Attempt> entry. Started and Ended are nil when absent.
type AttemptNode struct {
	ID      string  `xml:"id,attr"`
	Started *string `xml:"started,attr"`
	Ended   *string `xml:"ended,attr"`
	Timing
}

// SegmentNode is one <Segment> definition. History is nil when the segment was never timed.
type SegmentNode struct {
	Name    string          `xml:"Name"`
	History *SegmentHistory `xml:"SegmentHistory"`
}

// Samples returns the history entries, or nil for a segment without history.
func (s SegmentNode) Samples() []SampleNode {
	if s.History == nil {
		return nil
	}
	return s.History.Samples
}

// SegmentHistory holds the per-attempt samples of a segment.
type SegmentHistory struct {
	Samples []SampleNode `xml:"Time"`
}

// SampleNode is one <Time> entry under a segment history.
type SampleNode struct {
	ID string `xml:"id,attr"`
	Timing
}

// Decode reads a splits record and checks that both required collections are present.
func Decode(r io.Reader) (*Record, error) {
	var rec Record
	if err := xml.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode run history: %w", err)
	}
	if rec.AttemptHistory == nil {
		return nil, &StructureError{Collection: "AttemptHistory"}
	}
	if rec.Segments == nil {
		return nil, &StructureError{Collection: "Segments"}
	}
	return &rec, nil
}

// Load opens and decodes the splits file at path.
func Load(path string) (*Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only splits file.
			_ = cerr
		}
	}()
	return Decode(file)
}

// positiveID parses an attempt id. Sentinel entries use zero or negative ids.
func positiveID(id string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
