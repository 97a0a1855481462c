// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/splitstats/internal/chart"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = min(max(idx, 0), len(sparkChars)-1)
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the headline numbers of a report.
func RenderSummary(w io.Writer, r Report) error {
	lines := []string{
		r.Title(),
		fmt.Sprintf("Timing: %s", r.Timing),
		fmt.Sprintf("Attempts: %s (%s in history)", humanize.Comma(int64(r.AttemptCount)), humanize.Comma(int64(len(r.History.Durations)))),
		fmt.Sprintf("Completed: %s", humanize.Comma(int64(r.History.CompletedCount()))),
	}
	if len(r.History.Durations) > 0 {
		var total float64
		for _, d := range r.History.Durations {
			total += d
		}
		lines = append(lines, fmt.Sprintf("Time played: %s", chart.FormatSeconds(total*60)))
	}
	if pb, ok := r.PersonalBest(); ok {
		lines = append(lines, fmt.Sprintf("Personal best: %s", chart.FormatSeconds(pb)))
	}
	if sob, ok := r.SumOfBest(); ok {
		lines = append(lines, fmt.Sprintf("Sum of best: %s", chart.FormatSeconds(sob)))
	}
	if len(r.Skipped) > 0 {
		lines = append(lines, fmt.Sprintf("Skipped charts: %s", strings.Join(r.Skipped, ", ")))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderSegmentTable prints per-segment best, median and possible time save.
func RenderSegmentTable(w io.Writer, r Report) error {
	if len(r.Segments) == 0 {
		_, err := fmt.Fprintln(w, "No segments found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Segments"); err != nil {
		return err
	}
	headers := []string{"Segment", "Runs", "Best", "Median", "Save", "Trend"}
	rows := make([][]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if !s.HasData() {
			rows = append(rows, []string{s.Key, "0", "-", "-", "-", ""})
			continue
		}
		rows = append(rows, []string{
			s.Key,
			humanize.Comma(int64(s.Samples)),
			chart.FormatSeconds(s.Best),
			chart.FormatSeconds(s.Median),
			chart.FormatSeconds(s.PossibleTimeSave()),
			Sparkline(s.Lengths),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurves prints completed run times and attempt durations as smoothed braille plots.
func RenderCurves(w io.Writer, r Report, window, totalWidth, height int, useColor bool) error {
	opt := PlotOptions{Height: height, ForceColor: useColor, Format: chart.FormatSeconds}
	if totalWidth > 0 {
		opt.Width = PlotWidthFor(totalWidth, labelWidthFor(r.History.Times, chart.FormatSeconds))
	}
	if len(r.History.Times) > 0 {
		if err := PlotSeries(w, "Completed Runs", []Series{
			{Name: "Time", Values: r.History.Times},
			{Name: fmt.Sprintf("Avg %d", window), Values: MovingAverage(r.History.Times, window)},
		}, opt); err != nil {
			return err
		}
	}
	if len(r.History.Durations) == 0 {
		return nil
	}
	opt.Format = func(v float64) string { return fmt.Sprintf("%.1fm", v) }
	if totalWidth > 0 {
		opt.Width = PlotWidthFor(totalWidth, labelWidthFor(r.History.Durations, opt.Format))
	}
	return PlotSeries(w, "Attempt Durations", []Series{
		{Name: "Minutes", Values: MovingAverage(r.History.Durations, window)},
	}, opt)
}

// RenderCharts hands every chart of the report to the renderer in order and flushes it
// when it buffers output.
func RenderCharts(ctx context.Context, renderer chart.Renderer, r Report) error {
	for _, spec := range r.Charts {
		if err := renderer.Render(ctx, spec); err != nil {
			return fmt.Errorf("failed to render %s: %w", spec.Name, err)
		}
	}
	if f, ok := renderer.(chart.Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush charts: %w", err)
		}
	}
	return nil
}

func labelWidthFor(values []float64, format func(float64) string) int {
	if len(values) == 0 {
		return 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return max(displayWidth(format(lo)), displayWidth(format(hi)), displayWidth(format((lo+hi)/2)))
}
