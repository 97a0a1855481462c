package splits

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func decodeSample(t *testing.T) *Record {
	t.Helper()
	rec, err := Decode(strings.NewReader(sampleRun))
	require.NoError(t, err)
	return rec
}

func TestParseDuration(t *testing.T) {
	got, err := ParseDuration("1:02:03.5")
	require.NoError(t, err)
	assert.InDelta(t, 3723.5, got, 1e-9)

	got, err = ParseDuration("00:01:02.3456789")
	require.NoError(t, err)
	assert.InDelta(t, 62.3456789, got, 1e-9)

	got, err = ParseDuration("125:00:00")
	require.NoError(t, err)
	assert.InDelta(t, 450000.0, got, 1e-9)
}

func TestParseDurationRejectsMalformed(t *testing.T) {
	for _, input := range []string{"1:02", "1:02:03:04", "", "a:b:c", "1::03"} {
		_, err := ParseDuration(input)
		var fe *FormatError
		require.ErrorAs(t, err, &fe, "input %q", input)
		assert.Equal(t, input, fe.Value)
	}
}

func TestParseDurationRejectsNonFinite(t *testing.T) {
	for _, input := range []string{"NaN:00:00", "0:00:Inf", "0:-Inf:00", "1e308:0:0"} {
		_, err := ParseDuration(input)
		var fe *FormatError
		require.ErrorAs(t, err, &fe, "input %q", input)
		assert.ErrorIs(t, err, errNotFinite, "input %q", input)
	}
}

func TestParseRunSpan(t *testing.T) {
	got, err := ParseRunSpan("01/01/2020 00:00:00", "01/01/2020 00:05:00")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got, 1e-9)

	got, err = ParseRunSpan("01/01/2020 00:05:00", "01/01/2020 00:00:00")
	require.NoError(t, err)
	assert.InDelta(t, -5.0, got, 1e-9)

	_, err = ParseRunSpan("2020-01-01 00:00:00", "01/01/2020 00:05:00")
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestDecodeMissingCollections(t *testing.T) {
	_, err := Decode(strings.NewReader(`<Run><Segments /></Run>`))
	var se *StructureError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "AttemptHistory", se.Collection)

	_, err = Decode(strings.NewReader(`<Run><AttemptHistory /></Run>`))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Segments", se.Collection)
}

func TestDecodeMetadata(t *testing.T) {
	rec := decodeSample(t)
	assert.Equal(t, "Super Metroid", rec.GameName)
	assert.Equal(t, "Any%", rec.CategoryName)
	assert.Equal(t, 5, rec.AttemptCount)
	assert.Len(t, rec.AttemptHistory.Attempts, 5)
	assert.Len(t, rec.Segments.Segments, 5)
}

func TestExtractAttempts(t *testing.T) {
	rec := decodeSample(t)
	h, err := ExtractAttempts(rec, RealTime)
	require.NoError(t, err)

	// Attempts 1, 2 and 4 have both stamps; 1 and 4 finished.
	require.Len(t, h.Durations, 3)
	require.Len(t, h.Completed, 3)
	assert.Equal(t, []bool{true, false, true}, h.Completed)
	assert.InDeltaSlice(t, []float64{50, 5, 48}, h.Durations, 1e-9)

	require.Len(t, h.Times, 2)
	require.Len(t, h.Dates, 2)
	assert.InDeltaSlice(t, []float64{2970.5, 2820}, h.Times, 1e-9)
	assert.Equal(t, time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC), h.Dates[0])
	assert.Equal(t, 2, h.CompletedCount())

	require.Len(t, h.Attempts, 3)
	assert.Equal(t, 2, h.Attempts[1].ID)
	assert.False(t, h.Attempts[1].Completed)
}

func TestExtractAttemptsGameTime(t *testing.T) {
	rec := decodeSample(t)
	h, err := ExtractAttempts(rec, GameTime)
	require.NoError(t, err)
	assert.Len(t, h.Durations, 3)
	assert.Equal(t, []bool{true, false, false}, h.Completed)
	assert.InDeltaSlice(t, []float64{2700}, h.Times, 1e-9)
}

func TestExtractAttemptsMalformedAborts(t *testing.T) {
	rec := &Record{AttemptHistory: &AttemptHistory{Attempts: []AttemptNode{
		{ID: "1", Started: ptr("01/01/2020 00:00:00"), Ended: ptr("01/01/2020 00:01:00"), Timing: Timing{RealTime: ptr("1:00")}},
	}}}
	_, err := ExtractAttempts(rec, RealTime)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestBuildAggregateTable(t *testing.T) {
	rec := decodeSample(t)
	table, err := BuildAggregateTable(rec, RealTime)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ceres", "Boss", "Boss1", "Boss2", "Escape"}, table.Keys())
	for _, key := range []string{"Boss", "Boss1", "Boss2"} {
		agg, ok := table.Lookup(key)
		require.True(t, ok, key)
		assert.Equal(t, "Boss", agg.Name)
	}

	ceres, _ := table.Lookup("Ceres")
	assert.Equal(t, []Sample{{1, 130}, {2, 150}, {4, 120}}, ceres.Durations)

	boss, _ := table.Lookup("Boss")
	assert.Equal(t, []Sample{{1, 300}, {4, 270}}, boss.Durations)
	_, ok := boss.Duration(2)
	assert.False(t, ok)

	escape, ok := table.Lookup("Escape")
	require.True(t, ok)
	assert.Equal(t, 0, escape.Len())
	assert.Empty(t, escape.Values())

	_, ok = table.Lookup("Tourian")
	assert.False(t, ok)
}

func TestBuildAggregateTableSharedCounter(t *testing.T) {
	rec := &Record{Segments: &SegmentList{Segments: []SegmentNode{
		{Name: "Boss"}, {Name: "Kraid"}, {Name: "Boss"}, {Name: "Kraid"}, {Name: "Boss"},
	}}}
	table, err := BuildAggregateTable(rec, RealTime)
	require.NoError(t, err)
	assert.Equal(t, []string{"Boss", "Kraid", "Boss1", "Kraid2", "Boss3"}, table.Keys())
}

func TestBuildAggregateTableSuffixCollision(t *testing.T) {
	rec := &Record{Segments: &SegmentList{Segments: []SegmentNode{
		{Name: "Boss1"}, {Name: "Boss"}, {Name: "Boss"},
	}}}
	table, err := BuildAggregateTable(rec, RealTime)
	require.NoError(t, err)
	assert.Equal(t, []string{"Boss1", "Boss", "Boss2"}, table.Keys())
}

func TestBuildAggregateTableRepeatedID(t *testing.T) {
	rec := &Record{Segments: &SegmentList{Segments: []SegmentNode{{
		Name: "A",
		History: &SegmentHistory{Samples: []SampleNode{
			{ID: "2", Timing: Timing{RealTime: ptr("0:00:10")}},
			{ID: "1", Timing: Timing{RealTime: ptr("0:00:20")}},
			{ID: "2", Timing: Timing{RealTime: ptr("0:00:30")}},
			{ID: "x", Timing: Timing{RealTime: ptr("0:00:40")}},
		}},
	}}}}
	table, err := BuildAggregateTable(rec, RealTime)
	require.NoError(t, err)
	agg, _ := table.Lookup("A")
	assert.Equal(t, []Sample{{2, 30}, {1, 20}}, agg.Durations)
}

func TestBuildCumulativeSeries(t *testing.T) {
	rec := &Record{Segments: &SegmentList{Segments: []SegmentNode{
		{Name: "A", History: &SegmentHistory{Samples: []SampleNode{{ID: "1", Timing: Timing{RealTime: ptr("0:00:10")}}}}},
		{Name: "B", History: &SegmentHistory{Samples: []SampleNode{{ID: "1", Timing: Timing{RealTime: ptr("0:00:05")}}}}},
		{Name: "C"},
	}}}
	table, err := BuildAggregateTable(rec, RealTime)
	require.NoError(t, err)

	series := BuildCumulativeSeries(table)
	assert.Equal(t, []float64{10}, series["A"])
	assert.Equal(t, []float64{15}, series["B"])
	c, ok := series["C"]
	require.True(t, ok)
	assert.Empty(t, c)
}

func TestCumulativeFromSample(t *testing.T) {
	table, err := BuildAggregateTable(decodeSample(t), RealTime)
	require.NoError(t, err)

	b := NewCumulativeBuilder()
	series := b.Build(table)
	assert.Equal(t, []float64{130, 150, 120}, series["Ceres"])
	assert.Equal(t, []float64{430, 390}, series["Boss"])
	assert.Equal(t, []float64{450}, series["Boss1"])
	assert.Empty(t, series["Boss2"])
	assert.InDelta(t, 450.0, b.Total(4), 1e-9)

	// A second Build starts from fresh totals.
	again := b.Build(table)
	assert.Equal(t, series, again)
}

func TestParseTimingMethod(t *testing.T) {
	m, err := ParseTimingMethod("Game")
	require.NoError(t, err)
	assert.Equal(t, GameTime, m)
	assert.Equal(t, "game", m.String())

	m, err = ParseTimingMethod("")
	require.NoError(t, err)
	assert.Equal(t, RealTime, m)

	_, err = ParseTimingMethod("igt")
	assert.Error(t, err)
}

func ptr(s string) *string {
	return &s
}
