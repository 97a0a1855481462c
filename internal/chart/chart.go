// Package chart defines the chart tuples handed to renderers and the renderers themselves.
package chart

import (
	"context"
	"fmt"
	"math"
	"regexp"
)

// Kind selects the chart geometry.
type Kind int

const (
	// Scatter plots one dot per value.
	Scatter Kind = iota
	// Bar plots one bar per value with a categorical label.
	Bar
)

// YFormat selects how y values are labeled.
type YFormat int

const (
	// Seconds formats values as "1h 2m 3s".
	Seconds YFormat = iota
	// Minutes formats values as plain minutes.
	Minutes
)

// Class is a per-point color classification.
type Class int

const (
	ClassDefault Class = iota
	ClassNewBest
	ClassNotBest
	ClassCompleted
	ClassReset
)

func (c Class) String() string {
	switch c {
	case ClassNewBest:
		return "New best"
	case ClassNotBest:
		return "Not best"
	case ClassCompleted:
		return "Completed"
	case ClassReset:
		return "Reset"
	default:
		return "Runs"
	}
}

// Range is an explicit y-axis range.
type Range struct {
	Min float64
	Max float64
}

// Spec is everything a renderer needs for one chart. Path has no extension; each renderer
// appends its own.
type Spec struct {
	Name    string
	Title   string
	XLabel  string
	YLabel  string
	Kind    Kind
	Values  []float64
	X       []float64
	Labels  []string
	Classes []Class
	YFormat YFormat
	YRange  *Range
	Path    string
}

// XValues returns X, or run numbers 1..n when X is unset.
func (s Spec) XValues() []float64 {
	if len(s.X) == len(s.Values) {
		return s.X
	}
	out := make([]float64, len(s.Values))
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

// ClassAt returns the class of point i, or ClassDefault.
func (s Spec) ClassAt(i int) Class {
	if i < 0 || i >= len(s.Classes) {
		return ClassDefault
	}
	return s.Classes[i]
}

// FormatValue labels a y value according to YFormat.
func (s Spec) FormatValue(v float64) string {
	if s.YFormat == Minutes {
		return fmt.Sprintf("%.1f", v)
	}
	return FormatSeconds(v)
}

// Renderer turns a Spec into a persisted chart.
type Renderer interface {
	Render(ctx context.Context, spec Spec) error
}

// Flusher is implemented by renderers that buffer charts and write them at the end.
type Flusher interface {
	Flush() error
}

// Multi fans a spec out to several renderers.
type Multi []Renderer

// Render implements Renderer.
func (m Multi) Render(ctx context.Context, spec Spec) error {
	for _, r := range m {
		if err := r.Render(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every renderer that buffers output.
func (m Multi) Flush() error {
	for _, r := range m {
		if f, ok := r.(Flusher); ok {
			if err := f.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

var unsafeName = regexp.MustCompile(`[\\/*?:"<>|]`)

// SafeName strips characters that are not allowed in file names.
func SafeName(name string) string {
	return unsafeName.ReplaceAllString(name, "")
}

// FormatSeconds renders a duration as "1h 2m 3s", "2m 3s" or "3s".
func FormatSeconds(v float64) string {
	h := int(v / 3600)
	m := int(math.Mod(v, 3600) / 60)
	s := int(math.Mod(math.Mod(v, 3600), 60))
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// paddedRange widens a degenerate range so axes never collapse to zero height.
func paddedRange(minVal, maxVal float64) (float64, float64) {
	if math.Abs(maxVal-minVal) < 1e-9 {
		return minVal - 1, maxVal + 1
	}
	return minVal, maxVal
}

func minMax(values []float64) (float64, float64) {
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.IsInf(minVal, 1) {
		return 0, 0
	}
	return minVal, maxVal
}
