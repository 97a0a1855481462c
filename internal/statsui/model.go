// Package statsui provides the Bubble Tea run history browser.
package statsui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/splitstats/internal/chart"
	"github.com/verte-zerg/splitstats/internal/splits"
	"github.com/verte-zerg/splitstats/internal/stats"
)

const (
	tabOverview = iota
	tabSegments
	tabCurves
)

const (
	plotHeight = 10
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea run history browser.
type Model struct {
	record *splits.Record
	cfg    stats.ReportConfig
	window int

	report stats.Report
	errMsg string

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	segTable     table.Model
	segLayout    tableLayout
	selectedSeg  int
	width        int
	height       int
	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a browser over a decoded record. The report is rebuilt whenever the
// settings change.
func NewModel(rec *splits.Record, cfg stats.ReportConfig, window int) *Model {
	m := &Model{
		record: rec,
		cfg:    cfg,
		window: max(window, 1),
		tabs:   []string{"Overview", "Segments", "Curves"},
	}
	m.initInputs()
	m.segTable = buildSegmentTable(nil, 0, 1)
	m.initViewports()
	m.refreshReport()
	return m
}

// Report returns the report currently displayed.
func (m *Model) Report() stats.Report {
	return m.report
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.window = nextCurveWindow(m.window)
			m.renderTabContents()
			return m, nil
		case "-":
			m.window = prevCurveWindow(m.window)
			m.renderTabContents()
			return m, nil
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabSegments {
				m.selectSegment(m.segTable.Cursor())
				m.activeTab = tabCurves
				m.segTable.Blur()
				return m, tea.ClearScreen
			}
			return m, nil
		case "n":
			if m.activeTab == tabCurves {
				m.selectSegment(m.selectedSeg + 1)
			}
			return m, nil
		case "p":
			if m.activeTab == tabCurves {
				m.selectSegment(m.selectedSeg - 1)
			}
			return m, nil
		case "g", "home":
			if m.activeTab == tabSegments {
				m.segTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabSegments {
				m.segTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabSegments {
				var cmd tea.Cmd
				m.segTable, cmd = m.segTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Trim low: "),
		newFilterInput("Trim high: "),
		newFilterInput("Timing (real/game): "),
		newFilterInput("Curve window: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	if len(m.filterInputs) == 0 {
		return
	}
	m.filterInputs[0].SetValue(strconv.FormatFloat(m.cfg.TrimLow, 'g', -1, 64))
	m.filterInputs[1].SetValue(strconv.FormatFloat(m.cfg.TrimHigh, 'g', -1, 64))
	m.filterInputs[2].SetValue(m.cfg.Timing.String())
	m.filterInputs[3].SetValue(strconv.Itoa(m.window))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setSegmentTableSize(m.width, vpHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabSegments {
		m.segTable.Focus()
	} else {
		m.segTable.Blur()
	}
}

func (m *Model) selectSegment(idx int) {
	count := len(m.report.Segments)
	if count == 0 {
		m.selectedSeg = 0
		return
	}
	m.selectedSeg = (idx%count + count) % count
	m.renderTabContents()
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	settings := padLines(m.renderSettingsSummary(), m.width)
	return tabs + "\n" + settings
}

func (m *Model) renderSettingsSummary() string {
	summary := fmt.Sprintf("%s  timing=%s  trim=[%g, %g]  window=%d",
		m.report.Title(), m.cfg.Timing, m.cfg.TrimLow, m.cfg.TrimHigh, m.window)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q"
	switch m.activeTab {
	case tabSegments:
		help = "Nav: left/right  Select: up/down  Curves: enter  Settings: /  Quit: q"
	case tabCurves:
		help = "Nav: left/right  Segment: n/p  Window: -/=  Settings: /  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabSegments {
		if len(m.report.Segments) == 0 {
			return fitLines("No segments found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.segTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(m.record, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to build report.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	m.selectedSeg = min(m.selectedSeg, max(len(report.Segments)-1, 0))
	m.segLayout = tableLayout{}
	m.segTable.SetRows(segmentRows(report.Segments))
	m.segLayout.rowCount = len(report.Segments)
	_, bodyHeight, _ := m.layoutHeights()
	m.setSegmentTableSize(m.bodyWidth(), bodyHeight)
	m.renderTabContents()
}

func (m *Model) bodyWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to build report.")
		}
		return
	}
	width := m.bodyWidth()
	m.viewports[tabOverview].SetContent(renderOverview(m.report, m.window, width))
	m.viewports[tabCurves].SetContent(renderSegmentCurves(m.report, m.selectedSeg, width))
}

func renderOverview(r stats.Report, window, width int) string {
	if len(r.History.Durations) == 0 {
		return "No attempts found."
	}
	summary := renderSummaryCards(r, width)
	var buf bytes.Buffer
	if err := stats.RenderCurves(&buf, r, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(summary+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(r stats.Report, width int) string {
	pb, sob := "-", "-"
	if v, ok := r.PersonalBest(); ok {
		pb = chart.FormatSeconds(v)
	}
	if v, ok := r.SumOfBest(); ok {
		sob = chart.FormatSeconds(v)
	}
	cards := []string{
		metricCard("Attempts", humanize.Comma(int64(r.AttemptCount))),
		metricCard("Completed", humanize.Comma(int64(r.History.CompletedCount()))),
		metricCard("Segments", strconv.Itoa(len(r.Segments))),
		metricCard("Personal Best", pb),
		metricCard("Sum of Best", sob),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderSegmentCurves(r stats.Report, idx, width int) string {
	if len(r.Segments) == 0 {
		return "No segments found."
	}
	seg := r.Segments[idx]
	header := headerStyle.Render(fmt.Sprintf("Segment %d/%d: %s", idx+1, len(r.Segments), seg.Key))
	if !seg.HasData() {
		return header + "\nNo samples recorded for this segment."
	}
	var buf bytes.Buffer
	opt := stats.PlotOptions{Height: plotHeight, ForceColor: true, Format: chart.FormatSeconds}
	opt.Width = stats.PlotWidthFor(width, len(chart.FormatSeconds(seg.Best))+4)
	if err := stats.PlotSeries(&buf, "Segment Length: "+seg.Name, []stats.Series{{Values: seg.Lengths}}, opt); err != nil {
		return fmt.Sprintf("Failed to render segment curves: %v", err)
	}
	if err := stats.PlotSeries(&buf, "Run time at segment: "+seg.Name, []stats.Series{{Values: seg.Elapsed}}, opt); err != nil {
		return fmt.Sprintf("Failed to render segment curves: %v", err)
	}
	return strings.TrimRight(header+"\n"+buf.String(), "\n")
}

func segmentColumns() []table.Column {
	return []table.Column{
		{Title: "Key", Width: 20},
		{Title: "Name", Width: 20},
		{Title: "Runs", Width: 6},
		{Title: "Best", Width: 10},
		{Title: "Median", Width: 10},
		{Title: "Save", Width: 10},
		{Title: "Kept", Width: 5},
	}
}

func segmentRows(segments []stats.SegmentSummary) []table.Row {
	rows := make([]table.Row, 0, len(segments))
	for _, s := range segments {
		if !s.HasData() {
			rows = append(rows, table.Row{s.Key, s.Name, "0", "-", "-", "-", "0"})
			continue
		}
		rows = append(rows, table.Row{
			s.Key,
			s.Name,
			humanize.Comma(int64(s.Samples)),
			chart.FormatSeconds(s.Best),
			chart.FormatSeconds(s.Median),
			chart.FormatSeconds(s.PossibleTimeSave()),
			strconv.Itoa(len(s.Lengths)),
		})
	}
	return rows
}

func buildSegmentTable(segments []stats.SegmentSummary, width, height int) table.Model {
	t := table.New(
		table.WithColumns(segmentColumns()),
		table.WithRows(segmentRows(segments)),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(segmentTableStyles())
	return t
}

func (m *Model) setSegmentTableSize(width, height int) {
	viewportHeight := max(1, height-1)
	if m.segLayout.width == width && m.segLayout.height == viewportHeight {
		return
	}
	m.segLayout.width = width
	m.segLayout.height = viewportHeight
	m.segTable.SetWidth(width)
	m.segTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustSegmentTableHeight(height)
	if m.segLayout.height != viewportHeight {
		m.segLayout.height = viewportHeight
		m.segTable.SetHeight(viewportHeight)
	}
}

func segmentTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

// adjustSegmentTableHeight compensates for header and border lines so the table fills the body.
func (m *Model) adjustSegmentTableHeight(bodyHeight int) int {
	target := max(1, bodyHeight)
	height := m.segTable.Height()
	for i := 0; i < 2; i++ {
		viewHeight := lipgloss.Height(m.segTable.View())
		if viewHeight == target {
			return height
		}
		height = max(height+target-viewHeight, 1)
		m.segTable.SetHeight(height)
	}
	return height
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	low, err := strconv.ParseFloat(strings.TrimSpace(m.filterInputs[0].Value()), 64)
	if err != nil {
		return fmt.Errorf("invalid trim low (use a number between 0 and 1)")
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(m.filterInputs[1].Value()), 64)
	if err != nil {
		return fmt.Errorf("invalid trim high (use a number between 0 and 1)")
	}
	if low < 0 || high > 1 || low >= high {
		return fmt.Errorf("trim band must satisfy 0 <= low < high <= 1")
	}
	timing, err := splits.ParseTimingMethod(strings.TrimSpace(m.filterInputs[2].Value()))
	if err != nil {
		return err
	}
	window := m.window
	if input := strings.TrimSpace(m.filterInputs[3].Value()); input != "" {
		parsed, err := strconv.Atoi(input)
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		window = parsed
	}
	m.cfg.TrimLow = low
	m.cfg.TrimHigh = high
	m.cfg.Timing = timing
	m.window = window
	return nil
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
