package chart

import (
	"bytes"
	"context"
	"fmt"
	"os"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultPNGWidth  = 1024
	defaultPNGHeight = 600
	barWidth         = 12
	barSpacing       = 4
	barPadding       = 120
	dotWidth         = 3
)

var pngColors = map[Class]drawing.Color{
	ClassDefault:   gochart.ColorBlue,
	ClassNewBest:   drawing.ColorRed,
	ClassNotBest:   drawing.ColorBlue,
	ClassCompleted: drawing.ColorGreen,
	ClassReset:     drawing.ColorRed,
}

// PNGRenderer writes each chart to <Path>.png.
type PNGRenderer struct {
	Width  int
	Height int
}

// Render implements Renderer.
func (r PNGRenderer) Render(ctx context.Context, spec Spec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(spec.Values) == 0 {
		return fmt.Errorf("chart %s has no values", spec.Name)
	}
	var buf bytes.Buffer
	var err error
	switch spec.Kind {
	case Bar:
		err = r.barChart(spec).Render(gochart.PNG, &buf)
	default:
		err = r.scatterChart(spec).Render(gochart.PNG, &buf)
	}
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", spec.Name, err)
	}
	if err := os.WriteFile(spec.Path+".png", buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", spec.Name, err)
	}
	return nil
}

func (r PNGRenderer) size() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = defaultPNGWidth
	}
	if h <= 0 {
		h = defaultPNGHeight
	}
	return w, h
}

func (r PNGRenderer) yAxis(spec Spec) gochart.YAxis {
	minVal, maxVal := minMax(spec.Values)
	if spec.YRange != nil {
		minVal, maxVal = spec.YRange.Min, spec.YRange.Max
	}
	minVal, maxVal = paddedRange(minVal, maxVal)
	return gochart.YAxis{
		Name:  spec.YLabel,
		Range: &gochart.ContinuousRange{Min: minVal, Max: maxVal},
		ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return spec.FormatValue(f)
			}
			return ""
		},
		GridMajorStyle: gochart.Style{StrokeColor: drawing.ColorFromHex("dddddd"), StrokeWidth: 1},
	}
}

func (r PNGRenderer) scatterChart(spec Spec) gochart.Chart {
	xs := spec.XValues()
	xMin, xMax := paddedRange(minMax(xs))
	width, height := r.size()
	return gochart.Chart{
		Title:      spec.Title,
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:  spec.XLabel,
			Range: &gochart.ContinuousRange{Min: xMin, Max: xMax},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		YAxis: r.yAxis(spec),
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    spec.Name,
				XValues: xs,
				YValues: spec.Values,
				Style: gochart.Style{
					StrokeColor: drawing.ColorTransparent,
					DotWidth:    dotWidth,
					DotColorProvider: func(_, _ gochart.Range, index int, _, _ float64) drawing.Color {
						return pngColors[spec.ClassAt(index)]
					},
				},
			},
		},
	}
}

func (r PNGRenderer) barChart(spec Spec) gochart.BarChart {
	bars := make([]gochart.Value, len(spec.Values))
	for i, v := range spec.Values {
		label := ""
		if i < len(spec.Labels) {
			label = spec.Labels[i]
		}
		color := pngColors[spec.ClassAt(i)]
		bars[i] = gochart.Value{
			Value: v,
			Label: label,
			Style: gochart.Style{FillColor: color, StrokeColor: color},
		}
	}
	width, height := r.size()
	if need := len(bars)*(barWidth+barSpacing) + barPadding; need > width {
		width = need
	}
	return gochart.BarChart{
		Title:      spec.Title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.Style{TextRotationDegrees: 90},
		YAxis:      r.yAxis(spec),
		Bars:       bars,
	}
}
