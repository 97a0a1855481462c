// Package splits decodes run-history records and builds per-attempt and per-segment series.
package splits

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the calendar format used for attempt start and end stamps.
const TimestampLayout = "01/02/2006 15:04:05"

var errNotFinite = errors.New("duration is not a finite number")

// FormatError reports a duration or timestamp that does not match the expected shape.
type FormatError struct {
	Value  string
	Layout string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid value %q (expected %s): %v", e.Value, e.Layout, e.Err)
	}
	return fmt.Sprintf("invalid value %q (expected %s)", e.Value, e.Layout)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ParseDuration converts an H:MM:SS[.fraction] string to seconds.
func ParseDuration(text string) (float64, error) {
	const layout = "H:MM:SS[.fraction]"
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 3 {
		return 0, &FormatError{Value: text, Layout: layout}
	}
	var values [3]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, &FormatError{Value: text, Layout: layout, Err: err}
		}
		values[i] = v
	}
	seconds := values[0]*3600 + values[1]*60 + values[2]
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, &FormatError{Value: text, Layout: layout, Err: errNotFinite}
	}
	return seconds, nil
}

// ParseTimestamp parses an attempt stamp such as "01/31/2020 18:04:05" as UTC.
func ParseTimestamp(text string) (time.Time, error) {
	ts, err := time.Parse(TimestampLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, &FormatError{Value: text, Layout: "MM/DD/YYYY HH:MM:SS", Err: err}
	}
	return ts, nil
}

// ParseRunSpan returns end minus start in minutes. Inconsistent stamps yield a negative span.
func ParseRunSpan(startText, endText string) (float64, error) {
	start, err := ParseTimestamp(startText)
	if err != nil {
		return 0, err
	}
	end, err := ParseTimestamp(endText)
	if err != nil {
		return 0, err
	}
	return end.Sub(start).Minutes(), nil
}
