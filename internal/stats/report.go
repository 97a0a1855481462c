package stats

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/verte-zerg/splitstats/internal/chart"
	"github.com/verte-zerg/splitstats/internal/splits"
)

// DateLayout labels completed runs on the x axis.
const DateLayout = splits.TimestampLayout

// ReportConfig controls series extraction and trimming.
type ReportConfig struct {
	Timing   splits.TimingMethod
	TrimLow  float64
	TrimHigh float64
	OutDir   string
}

// DefaultReportConfig returns the standard trimming band with real-time timing.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Timing:   splits.RealTime,
		TrimLow:  DefaultTrimLow,
		TrimHigh: DefaultTrimHigh,
	}
}

// SegmentSummary describes one segment of the aggregate table.
type SegmentSummary struct {
	Key      string
	Name     string
	Position int
	Samples  int
	Best     float64
	Median   float64
	// Lengths and Elapsed are the trimmed segment-duration and time-at-segment series.
	Lengths []float64
	Elapsed []float64
}

// HasData reports whether the segment was ever timed.
func (s SegmentSummary) HasData() bool {
	return s.Samples > 0
}

// PossibleTimeSave is the gap between the median and best segment time.
func (s SegmentSummary) PossibleTimeSave() float64 {
	if !s.HasData() {
		return 0
	}
	return s.Median - s.Best
}

// Report contains precomputed series and chart tuples for one record.
type Report struct {
	Game         string
	Category     string
	AttemptCount int
	Timing       splits.TimingMethod

	History    splits.History
	Table      *splits.Table
	Cumulative map[string][]float64
	BestMarks  []bool
	Segments   []SegmentSummary

	Charts  []chart.Spec
	Skipped []string
}

// Title returns "Game Category", or a fallback when the record has no metadata.
func (r Report) Title() string {
	switch {
	case r.Game != "" && r.Category != "":
		return r.Game + " " + r.Category
	case r.Game != "":
		return r.Game
	case r.Category != "":
		return r.Category
	default:
		return "Run history"
	}
}

// PersonalBest returns the fastest completion time.
func (r Report) PersonalBest() (float64, bool) {
	if len(r.History.Times) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, t := range r.History.Times {
		best = math.Min(best, t)
	}
	return best, true
}

// SumOfBest adds the best time of every segment. It is not defined when a segment was
// never timed.
func (r Report) SumOfBest() (float64, bool) {
	if len(r.Segments) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range r.Segments {
		if !s.HasData() {
			return 0, false
		}
		sum += s.Best
	}
	return sum, true
}

// Segment returns the summary for a resolved key.
func (r Report) Segment(key string) (SegmentSummary, bool) {
	for _, s := range r.Segments {
		if s.Key == key {
			return s, true
		}
	}
	return SegmentSummary{}, false
}

// BuildReport runs the extraction pipeline over a decoded record.
func BuildReport(rec *splits.Record, cfg ReportConfig) (Report, error) {
	if cfg.TrimLow < 0 || cfg.TrimHigh > 1 || cfg.TrimLow >= cfg.TrimHigh {
		return Report{}, fmt.Errorf("invalid trim band [%g, %g]", cfg.TrimLow, cfg.TrimHigh)
	}
	history, err := splits.ExtractAttempts(rec, cfg.Timing)
	if err != nil {
		return Report{}, fmt.Errorf("failed to extract attempts: %w", err)
	}
	table, err := splits.BuildAggregateTable(rec, cfg.Timing)
	if err != nil {
		return Report{}, fmt.Errorf("failed to aggregate segments: %w", err)
	}

	report := Report{
		Game:         rec.GameName,
		Category:     rec.CategoryName,
		AttemptCount: rec.AttemptCount,
		Timing:       cfg.Timing,
		History:      history,
		Table:        table,
		Cumulative:   splits.BuildCumulativeSeries(table),
		BestMarks:    ClassifyBest(history.Times),
	}

	var lengthCharts, elapsedCharts []chart.Spec
	for _, agg := range table.Entries {
		summary := SegmentSummary{Key: agg.Key, Name: agg.Name, Position: agg.Position, Samples: agg.Len()}
		values := agg.Values()
		if len(values) > 0 {
			summary.Best, _ = Quantile(values, 0)
			summary.Median, _ = Quantile(values, 0.5)
		}

		name := "SegmentLength_" + chart.SafeName(agg.Key)
		summary.Lengths, err = report.trimmed(name, values, cfg)
		if err != nil {
			return Report{}, err
		}
		if len(summary.Lengths) > 0 {
			lengthCharts = append(lengthCharts, chart.Spec{
				Name:   name,
				Title:  "Segment Length: " + agg.Name,
				XLabel: "Run",
				YLabel: "Time",
				Values: summary.Lengths,
				Path:   filepath.Join(cfg.OutDir, name),
			})
		}

		name = "TimeAtSegment_" + chart.SafeName(agg.Key)
		summary.Elapsed, err = report.trimmed(name, report.Cumulative[agg.Key], cfg)
		if err != nil {
			return Report{}, err
		}
		if len(summary.Elapsed) > 0 {
			elapsedCharts = append(elapsedCharts, chart.Spec{
				Name:   name,
				Title:  "Run time at segment: " + agg.Name,
				XLabel: "Run",
				YLabel: "Time",
				Values: summary.Elapsed,
				Path:   filepath.Join(cfg.OutDir, name),
			})
		}
		report.Segments = append(report.Segments, summary)
	}
	report.Charts = append(report.Charts, lengthCharts...)
	report.Charts = append(report.Charts, elapsedCharts...)

	if spec, ok := completedRunsChart(history, report.BestMarks, cfg.OutDir); ok {
		report.Charts = append(report.Charts, spec)
	} else {
		report.skip("CompletedRuns", &EmptyInputError{Series: "CompletedRuns"})
	}
	if spec, ok := runDurationsChart(history, cfg.OutDir); ok {
		report.Charts = append(report.Charts, spec)
	} else {
		report.skip("RunDurations", &EmptyInputError{Series: "RunDurations"})
	}
	return report, nil
}

// trimmed returns nil and records the skipped chart when the series is empty, either on
// input or after a narrow band kept no sample.
func (r *Report) trimmed(name string, values []float64, cfg ReportConfig) ([]float64, error) {
	out, err := TrimSeries(name, values, cfg.TrimLow, cfg.TrimHigh)
	if errors.Is(err, ErrEmptyInput) {
		r.skip(name, err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		r.skip(name, &EmptyInputError{Series: name, Trimmed: true})
		return nil, nil
	}
	return out, nil
}

func (r *Report) skip(name string, err error) {
	r.Skipped = append(r.Skipped, name)
	slog.Default().Warn("skipping chart", "chart", name, "error", err)
}

func completedRunsChart(h splits.History, best []bool, outDir string) (chart.Spec, bool) {
	if len(h.Times) == 0 {
		return chart.Spec{}, false
	}
	labels := make([]string, len(h.Dates))
	for i, d := range h.Dates {
		labels[i] = d.Format(DateLayout)
	}
	classes := make([]chart.Class, len(best))
	for i, b := range best {
		classes[i] = chart.ClassNotBest
		if b {
			classes[i] = chart.ClassNewBest
		}
	}
	low, high := math.Inf(1), math.Inf(-1)
	for _, t := range h.Times {
		low = math.Min(low, t)
		high = math.Max(high, t)
	}
	spread := high - low
	return chart.Spec{
		Name:    "CompletedRuns",
		Title:   fmt.Sprintf("Completed Runs (%d)", len(h.Times)),
		XLabel:  "Run",
		YLabel:  "Time",
		Kind:    chart.Bar,
		Values:  h.Times,
		Labels:  labels,
		Classes: classes,
		YRange: &chart.Range{
			Min: math.Ceil(low - 0.1*spread),
			Max: math.Ceil(high + 0.1*spread),
		},
		Path: filepath.Join(outDir, "CompletedRuns"),
	}, true
}

func runDurationsChart(h splits.History, outDir string) (chart.Spec, bool) {
	if len(h.Durations) == 0 {
		return chart.Spec{}, false
	}
	classes := make([]chart.Class, len(h.Completed))
	for i, done := range h.Completed {
		classes[i] = chart.ClassReset
		if done {
			classes[i] = chart.ClassCompleted
		}
	}
	return chart.Spec{
		Name:    "RunDurations",
		Title:   "Run Durations",
		XLabel:  "Run",
		YLabel:  "Time (minutes)",
		Values:  h.Durations,
		Classes: classes,
		YFormat: chart.Minutes,
		Path:    filepath.Join(outDir, "RunDurations"),
	}, true
}
