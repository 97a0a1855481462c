package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Default quantile band used for outlier trimming.
const (
	DefaultTrimLow  = 0.0
	DefaultTrimHigh = 0.95
)

// ErrEmptyInput is matched by every EmptyInputError.
var ErrEmptyInput = errors.New("no samples")

// EmptyInputError reports a series with no samples, for which quantiles are undefined.
// Trimmed is set when the series had samples but none fell inside the band.
type EmptyInputError struct {
	Series  string
	Trimmed bool
}

func (e *EmptyInputError) Error() string {
	what := "cannot trim empty series"
	if e.Trimmed {
		what = "no samples left after trimming series"
	}
	if e.Series == "" {
		return what
	}
	return fmt.Sprintf("%s %q", what, e.Series)
}

// Is makes errors.Is(err, ErrEmptyInput) hold.
func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// Quantile returns the q-th quantile (0..1) using linear interpolation between closest
// ranks. The input is not modified.
func Quantile(samples []float64, q float64) (float64, error) {
	if len(samples) == 0 {
		return 0, &EmptyInputError{}
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	q = math.Max(0, math.Min(1, q))
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower], nil
	}
	frac := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac, nil
}

// Trim keeps, in original order, the samples within [Quantile(low), Quantile(high)] of the
// same series. Bounds are recomputed on every call, so trimming an already trimmed series
// can drop more values.
func Trim(samples []float64, low, high float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, &EmptyInputError{}
	}
	lo, err := Quantile(samples, low)
	if err != nil {
		return nil, err
	}
	hi, err := Quantile(samples, high)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(samples))
	for _, v := range samples {
		if v >= lo && v <= hi {
			out = append(out, v)
		}
	}
	return out, nil
}

// TrimSeries is Trim with the series name attached to an empty-input error.
func TrimSeries(name string, samples []float64, low, high float64) ([]float64, error) {
	out, err := Trim(samples, low, high)
	var empty *EmptyInputError
	if errors.As(err, &empty) {
		return nil, &EmptyInputError{Series: name}
	}
	return out, err
}
