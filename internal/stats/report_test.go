package stats

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/splitstats/internal/chart"
	"github.com/verte-zerg/splitstats/internal/splits"
)

const sampleRun = `<?xml version="1.0" encoding="UTF-8"?>
<Run version="1.7.0">
  <GameName>Super Metroid</GameName>
  <CategoryName>Any%</CategoryName>
  <AttemptCount>5</AttemptCount>
  <AttemptHistory>
    <Attempt id="-1" started="01/01/2020 00:00:00" ended="01/01/2020 00:10:00">
      <RealTime>00:10:00</RealTime>
    </Attempt>
    <Attempt id="1" started="01/01/2020 10:00:00" isStartedSynced="True" ended="01/01/2020 10:50:00" isEndedSynced="True">
      <RealTime>00:49:30.5000000</RealTime>
      <GameTime>00:45:00</GameTime>
    </Attempt>
    <Attempt id="2" started="01/02/2020 10:00:00" ended="01/02/2020 10:05:00" />
    <Attempt id="3" started="01/03/2020 10:00:00" />
    <Attempt id="4" started="01/04/2020 10:00:00" ended="01/04/2020 10:48:00">
      <RealTime>00:47:00</RealTime>
    </Attempt>
  </AttemptHistory>
  <Segments>
    <Segment>
      <Name>Ceres</Name>
      <SplitTimes>
        <SplitTime name="Personal Best"><RealTime>00:02:00</RealTime></SplitTime>
      </SplitTimes>
      <SegmentHistory>
        <Time id="-3"><RealTime>00:01:00</RealTime></Time>
        <Time id="1"><RealTime>00:02:10</RealTime></Time>
        <Time id="2"><RealTime>00:02:30</RealTime></Time>
        <Time id="4"><RealTime>00:02:00</RealTime><GameTime>00:01:50</GameTime></Time>
      </SegmentHistory>
    </Segment>
    <Segment>
      <Name>Boss</Name>
      <SegmentHistory>
        <Time id="1"><RealTime>00:05:00</RealTime></Time>
        <Time id="2" />
        <Time id="4"><RealTime>00:04:30</RealTime></Time>
      </SegmentHistory>
    </Segment>
    <Segment>
      <Name>Boss</Name>
      <SegmentHistory>
        <Time id="4"><RealTime>00:01:00</RealTime></Time>
      </SegmentHistory>
    </Segment>
    <Segment>
      <Name>Boss</Name>
      <SegmentHistory />
    </Segment>
    <Segment>
      <Name>Escape</Name>
    </Segment>
  </Segments>
</Run>`

func sampleReport(t *testing.T, cfg ReportConfig) Report {
	t.Helper()
	rec, err := splits.Decode(strings.NewReader(sampleRun))
	require.NoError(t, err)
	report, err := BuildReport(rec, cfg)
	require.NoError(t, err)
	return report
}

func chartNames(specs []chart.Spec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

func TestBuildReportChartOrder(t *testing.T) {
	cfg := DefaultReportConfig()
	cfg.OutDir = "out"
	report := sampleReport(t, cfg)

	assert.Equal(t, "Super Metroid Any%", report.Title())
	assert.Equal(t, []string{
		"SegmentLength_Ceres", "SegmentLength_Boss", "SegmentLength_Boss1",
		"TimeAtSegment_Ceres", "TimeAtSegment_Boss", "TimeAtSegment_Boss1",
		"CompletedRuns", "RunDurations",
	}, chartNames(report.Charts))
	assert.Equal(t, []string{
		"SegmentLength_Boss2", "TimeAtSegment_Boss2",
		"SegmentLength_Escape", "TimeAtSegment_Escape",
	}, report.Skipped)

	first := report.Charts[0]
	assert.Equal(t, "Segment Length: Ceres", first.Title)
	assert.Equal(t, []float64{130, 120}, first.Values)
	assert.Equal(t, "out/SegmentLength_Ceres", first.Path)

	boss1 := report.Charts[5]
	assert.Equal(t, "Run time at segment: Boss", boss1.Title)
	assert.Equal(t, []float64{450}, boss1.Values)
}

func TestBuildReportCompletedRuns(t *testing.T) {
	report := sampleReport(t, DefaultReportConfig())
	spec := report.Charts[len(report.Charts)-2]

	assert.Equal(t, chart.Bar, spec.Kind)
	assert.Equal(t, "Completed Runs (2)", spec.Title)
	assert.Equal(t, []float64{2970.5, 2820}, spec.Values)
	assert.Equal(t, []string{"01/01/2020 10:00:00", "01/04/2020 10:00:00"}, spec.Labels)
	assert.Equal(t, []chart.Class{chart.ClassNewBest, chart.ClassNewBest}, spec.Classes)
	require.NotNil(t, spec.YRange)
	assert.Equal(t, chart.Range{Min: 2805, Max: 2986}, *spec.YRange)

	durations := report.Charts[len(report.Charts)-1]
	assert.Equal(t, []float64{50, 5, 48}, durations.Values)
	assert.Equal(t, []chart.Class{chart.ClassCompleted, chart.ClassReset, chart.ClassCompleted}, durations.Classes)
	assert.Equal(t, chart.Minutes, durations.YFormat)
}

func TestBuildReportSegments(t *testing.T) {
	report := sampleReport(t, DefaultReportConfig())
	require.Len(t, report.Segments, 5)

	ceres, ok := report.Segment("Ceres")
	require.True(t, ok)
	assert.Equal(t, 3, ceres.Samples)
	assert.InDelta(t, 120, ceres.Best, 1e-9)
	assert.InDelta(t, 130, ceres.Median, 1e-9)
	assert.InDelta(t, 10, ceres.PossibleTimeSave(), 1e-9)

	escape, ok := report.Segment("Escape")
	require.True(t, ok)
	assert.False(t, escape.HasData())
	assert.Nil(t, escape.Lengths)

	pb, ok := report.PersonalBest()
	require.True(t, ok)
	assert.InDelta(t, 2820, pb, 1e-9)

	_, ok = report.SumOfBest()
	assert.False(t, ok, "sum of best is undefined while a segment was never timed")
}

func TestBuildReportGameTime(t *testing.T) {
	cfg := DefaultReportConfig()
	cfg.Timing = splits.GameTime
	report := sampleReport(t, cfg)
	assert.Equal(t, []float64{2700}, report.History.Times)
	assert.Equal(t, []bool{true}, report.BestMarks)
}

func TestBuildReportSkipsSeriesTrimmedToNothing(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := DefaultReportConfig()
	cfg.TrimLow, cfg.TrimHigh = 0.4, 0.6
	report := sampleReport(t, cfg)

	// Boss holds [300 270] and [430 390]; the band [282, 288] and [406, 414] keeps nothing.
	assert.Equal(t, []string{
		"SegmentLength_Ceres", "SegmentLength_Boss1",
		"TimeAtSegment_Ceres", "TimeAtSegment_Boss1",
		"CompletedRuns", "RunDurations",
	}, chartNames(report.Charts))
	assert.Equal(t, []string{
		"SegmentLength_Boss", "TimeAtSegment_Boss",
		"SegmentLength_Boss2", "TimeAtSegment_Boss2",
		"SegmentLength_Escape", "TimeAtSegment_Escape",
	}, report.Skipped)
	for _, spec := range report.Charts {
		assert.NotEmpty(t, spec.Values, "chart %s", spec.Name)
	}
	assert.Contains(t, logs.String(), "no samples left after trimming series")

	boss, ok := report.Segment("Boss")
	require.True(t, ok)
	assert.Nil(t, boss.Lengths)
	assert.Nil(t, boss.Elapsed)
	assert.Equal(t, 2, boss.Samples)

	require.NoError(t, RenderCharts(context.Background(), nonEmptyRenderer{}, report))
}

// nonEmptyRenderer fails like the file renderers do on a chart without values.
type nonEmptyRenderer struct{}

func (nonEmptyRenderer) Render(_ context.Context, spec chart.Spec) error {
	if len(spec.Values) == 0 {
		return errors.New("chart " + spec.Name + " has no values")
	}
	return nil
}

func TestBuildReportRejectsInvalidBand(t *testing.T) {
	rec, err := splits.Decode(strings.NewReader(sampleRun))
	require.NoError(t, err)
	_, err = BuildReport(rec, ReportConfig{TrimLow: 0.9, TrimHigh: 0.1})
	require.Error(t, err)
}

func TestRenderSummaryAndTable(t *testing.T) {
	report := sampleReport(t, DefaultReportConfig())
	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, report))
	require.NoError(t, RenderSegmentTable(&buf, report))
	out := buf.String()
	assert.Contains(t, out, "Super Metroid Any%")
	assert.Contains(t, out, "Completed: 2")
	assert.Contains(t, out, "Personal best: 47m 0s")
	assert.NotContains(t, out, "Sum of best")
	assert.Contains(t, out, "Boss2")
}

func TestRenderCharts(t *testing.T) {
	report := sampleReport(t, DefaultReportConfig())
	var buf bytes.Buffer
	require.NoError(t, RenderCharts(context.Background(), TextRenderer{W: &buf, Width: 30, Height: 4}, report))
	assert.Contains(t, buf.String(), "Segment Length: Ceres")
	assert.Contains(t, buf.String(), "Run Durations")
}

func TestRenderCurves(t *testing.T) {
	report := sampleReport(t, DefaultReportConfig())
	var buf bytes.Buffer
	require.NoError(t, RenderCurves(&buf, report, 2, 60, 4, false))
	assert.Contains(t, buf.String(), "Completed Runs")
	assert.Contains(t, buf.String(), "Attempt Durations")
}
