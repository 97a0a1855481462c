package stats

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/verte-zerg/splitstats/internal/chart"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

// PlotOptions controls the size and labeling of a text plot.
type PlotOptions struct {
	Width      int
	Height     int
	ForceColor bool
	// Format labels the y axis; defaults to two decimals.
	Format func(float64) string
}

type ansiColor struct {
	name string
	code string
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var colorPalette = []ansiColor{
	{name: "cyan", code: "\x1b[36m"},
	{name: "magenta", code: "\x1b[35m"},
	{name: "yellow", code: "\x1b[33m"},
	{name: "green", code: "\x1b[32m"},
	{name: "blue", code: "\x1b[34m"},
}

// PlotSeries renders a braille plot of the series on one shared y scale.
func PlotSeries(w io.Writer, title string, series []Series, opt PlotOptions) error {
	series = filterSeries(series)
	if len(series) == 0 {
		return nil
	}
	if opt.Height <= 0 {
		opt.Height = defaultPlotHeight
	}
	if opt.Format == nil {
		opt.Format = func(v float64) string { return fmt.Sprintf("%.2f", v) }
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		minVal--
		maxVal++
	}
	labels := makeAxisLabels(opt.Height, minVal, maxVal, opt.Format)
	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, runewidth.StringWidth(l))
	}

	width := opt.Width
	if width <= 0 {
		width = terminalWidth() - labelWidth - runewidth.StringWidth(axisSeparator)
	}
	width = max(width, minPlotWidth)

	cells := make([][][]uint8, len(series))
	for si, s := range series {
		cells[si] = makeCells(opt.Height, width)
		values := resampleSeries(s.Values, width)
		prevX, prevY := -1, -1
		for x, v := range values {
			px, py := x*2, valueToRow(v, minVal, maxVal, opt.Height*4)
			if prevX >= 0 {
				drawLine(prevX, prevY, px, py, func(dx, dy int) {
					setBrailleDot(cells[si], dx, dy)
				})
			} else {
				setBrailleDot(cells[si], px, py)
			}
			prevX, prevY = px, py
		}
	}

	useColor := shouldUseColor(w, opt.ForceColor)
	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteByte('\n')
	}
	for y := 0; y < opt.Height; y++ {
		b.WriteString(runewidth.FillLeft(labels[y], labelWidth))
		b.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			mask, colorIdx := composeCell(cells, x, y)
			ch := brailleFromMask(mask)
			if useColor && colorIdx >= 0 {
				b.WriteString(colorPalette[colorIdx%len(colorPalette)].code)
				b.WriteRune(ch)
				b.WriteString(colorReset)
			} else {
				b.WriteRune(ch)
			}
		}
		b.WriteByte('\n')
	}
	if len(series) > 1 || series[0].Name != "" {
		b.WriteString(renderLegend(series, useColor))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// TextRenderer prints chart specs as braille plots. It satisfies chart.Renderer.
type TextRenderer struct {
	W      io.Writer
	Width  int
	Height int
	Color  bool
}

// Render implements chart.Renderer.
func (r TextRenderer) Render(ctx context.Context, spec chart.Spec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return PlotSeries(r.W, spec.Title, []Series{{Values: spec.Values}}, PlotOptions{
		Width:      r.Width,
		Height:     r.Height,
		ForceColor: r.Color,
		Format:     spec.FormatValue,
	})
}

func filterSeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// PlotWidthFor computes a plot width that leaves room for axis labels of labelWidth.
func PlotWidthFor(totalWidth, labelWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-labelWidth-runewidth.StringWidth(axisSeparator), minPlotWidth)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// makeAxisLabels labels the top, middle and bottom rows with real values.
func makeAxisLabels(height int, minVal, maxVal float64, format func(float64) string) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = format(maxVal)
	if height > 2 {
		labels[height/2] = format((minVal + maxVal) / 2)
	}
	if height > 1 {
		labels[height-1] = format(minVal)
	}
	return labels
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return cells
}

func composeCell(seriesCells [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	colorIdx := -1
	for i, cells := range seriesCells {
		if y < 0 || y >= len(cells) || x < 0 || x >= len(cells[y]) {
			continue
		}
		if cells[y][x] == 0 {
			continue
		}
		if colorIdx == -1 {
			colorIdx = i
		}
		mask |= cells[y][x]
	}
	return mask, colorIdx
}

// resampleSeries averages buckets when shrinking and interpolates when stretching.
func resampleSeries(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	switch {
	case len(values) == width:
		copy(out, values)
	case len(values) > width:
		for i := range out {
			start := i * len(values) / width
			end := max((i+1)*len(values)/width, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case len(values) == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(len(values)-1) / float64(width-1)
			idx := int(math.Floor(pos))
			if idx >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func valueToRow(v, minVal, maxVal float64, height int) int {
	if height <= 1 {
		return 0
	}
	pos := (v - minVal) / (maxVal - minVal)
	row := int(math.Round((1 - pos) * float64(height-1)))
	return min(max(row, 0), height-1)
}

func renderLegend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	marker := brailleFromMask(0x01)
	for i, s := range series {
		label := fmt.Sprintf("%c %s", marker, s.Name)
		if useColor {
			label = colorPalette[i%len(colorPalette)].code + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// drawLine walks a Bresenham line between two dot coordinates.
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func setBrailleDot(cells [][]uint8, x, y int) {
	cellY, cellX := y/4, x/2
	if y < 0 || x < 0 || cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

// brailleDotMask maps a dot inside a 2x4 braille cell to its bit.
func brailleDotMask(x, y int) uint8 {
	if x == 0 {
		return [4]uint8{0x01, 0x02, 0x04, 0x40}[y]
	}
	return [4]uint8{0x08, 0x10, 0x20, 0x80}[y]
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
