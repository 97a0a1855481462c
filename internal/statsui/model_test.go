package statsui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/splitstats/internal/splits"
	"github.com/verte-zerg/splitstats/internal/stats"
)

const browseRun = `<Run>
  <GameName>Celeste</GameName>
  <CategoryName>Any%</CategoryName>
  <AttemptCount>3</AttemptCount>
  <AttemptHistory>
    <Attempt id="1" started="03/01/2021 18:00:00" ended="03/01/2021 18:30:00"><RealTime>00:29:00</RealTime><GameTime>00:28:00</GameTime></Attempt>
    <Attempt id="2" started="03/02/2021 18:00:00" ended="03/02/2021 18:02:00" />
    <Attempt id="3" started="03/03/2021 18:00:00" ended="03/03/2021 18:28:00"><RealTime>00:27:30</RealTime></Attempt>
  </AttemptHistory>
  <Segments>
    <Segment><Name>Prologue</Name><SegmentHistory>
      <Time id="1"><RealTime>00:01:00</RealTime></Time>
      <Time id="2"><RealTime>00:01:10</RealTime></Time>
      <Time id="3"><RealTime>00:00:58</RealTime></Time>
    </SegmentHistory></Segment>
    <Segment><Name>City</Name><SegmentHistory>
      <Time id="1"><RealTime>00:28:00</RealTime></Time>
      <Time id="3"><RealTime>00:26:32</RealTime></Time>
    </SegmentHistory></Segment>
  </Segments>
</Run>`

func newTestModel(t *testing.T) *Model {
	t.Helper()
	rec, err := splits.Decode(strings.NewReader(browseRun))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m := NewModel(rec, stats.DefaultReportConfig(), 1)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func TestOverviewShowsSummary(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	if !strings.Contains(out, "Overview") || !strings.Contains(out, "Celeste Any%") {
		t.Fatalf("expected tabs and title in view:\n%s", out)
	}
	if !strings.Contains(out, "27m 30s") {
		t.Fatalf("expected personal best card in view:\n%s", out)
	}
}

func TestSegmentsTabSelectsCurves(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabSegments {
		t.Fatalf("expected segments tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "Prologue") {
		t.Fatalf("expected segment rows in view")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeTab != tabCurves || m.selectedSeg != 1 {
		t.Fatalf("expected curves for segment 1, got tab %d seg %d", m.activeTab, m.selectedSeg)
	}
	if !strings.Contains(m.View(), "Segment 2/2: City") {
		t.Fatalf("expected City curves in view:\n%s", m.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if m.selectedSeg != 0 {
		t.Fatalf("expected selection to wrap, got %d", m.selectedSeg)
	}
}

func TestApplyFilterRebuildsReport(t *testing.T) {
	m := newTestModel(t)
	m.filterInputs[2].SetValue("game")
	m.filterInputs[3].SetValue("3")
	if err := m.applyFilter(); err != nil {
		t.Fatalf("apply filter: %v", err)
	}
	m.refreshReport()
	if m.window != 3 {
		t.Fatalf("expected window 3, got %d", m.window)
	}
	if got := m.Report().History.Times; len(got) != 1 || got[0] != 1680 {
		t.Fatalf("expected game time completions, got %v", got)
	}

	m.filterInputs[0].SetValue("0.9")
	m.filterInputs[1].SetValue("0.5")
	if err := m.applyFilter(); err == nil {
		t.Fatalf("expected invalid band error")
	}
}

func TestCurveWindowSteps(t *testing.T) {
	if got := nextCurveWindow(1); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	if got := nextCurveWindow(7); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := prevCurveWindow(7); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	if got := prevCurveWindow(5); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("abcdefgh", 5); got != "ab..." {
		t.Fatalf("unexpected truncation %q", got)
	}
}
