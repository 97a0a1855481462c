package chart

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	htmlChartWidth  = "100%"
	htmlChartHeight = "500px"
	htmlSymbolSize  = 6
)

var htmlColors = map[Class]string{
	ClassDefault:   "#5470c6",
	ClassNewBest:   "#ee6666",
	ClassNotBest:   "#5470c6",
	ClassCompleted: "#91cc75",
	ClassReset:     "#ee6666",
}

// HTMLRenderer collects every chart into one interactive page written by Flush.
type HTMLRenderer struct {
	Path  string
	Title string

	page  *components.Page
	count int
}

// NewHTMLRenderer returns a renderer that writes the page to path.
func NewHTMLRenderer(path, title string) *HTMLRenderer {
	page := components.NewPage()
	page.PageTitle = title
	page.SetLayout(components.PageFlexLayout)
	return &HTMLRenderer{Path: path, Title: title, page: page}
}

// Render implements Renderer. Nothing is written until Flush.
func (r *HTMLRenderer) Render(ctx context.Context, spec Spec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(spec.Values) == 0 {
		return fmt.Errorf("chart %s has no values", spec.Name)
	}
	switch spec.Kind {
	case Bar:
		r.page.AddCharts(htmlBar(spec))
	default:
		r.page.AddCharts(htmlScatter(spec))
	}
	r.count++
	return nil
}

// Count returns the number of charts collected so far.
func (r *HTMLRenderer) Count() int {
	return r.count
}

// Flush writes the page. An empty page is not written.
func (r *HTMLRenderer) Flush() error {
	if r.count == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := r.page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	if err := os.WriteFile(r.Path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write html report: %w", err)
	}
	return nil
}

func globalOptions(spec Spec, xType string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: htmlChartWidth, Height: htmlChartHeight}),
		charts.WithTitleOpts(opts.Title{Title: spec.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(spec.Classes) > 0), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: spec.XLabel, Type: xType}),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.YLabel, Type: "value", Min: "dataMin"}),
	}
}

// htmlScatter splits the points into one series per class so each gets its own color.
func htmlScatter(spec Spec) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(globalOptions(spec, "value")...)

	xs := spec.XValues()
	order := []Class{}
	byClass := map[Class][]opts.ScatterData{}
	for i, v := range spec.Values {
		c := spec.ClassAt(i)
		if _, seen := byClass[c]; !seen {
			order = append(order, c)
		}
		byClass[c] = append(byClass[c], opts.ScatterData{
			Value:      []any{xs[i], v},
			SymbolSize: htmlSymbolSize,
		})
	}
	for _, c := range order {
		scatter.AddSeries(c.String(), byClass[c],
			charts.WithItemStyleOpts(opts.ItemStyle{Color: htmlColors[c]}),
		)
	}
	return scatter
}

func htmlBar(spec Spec) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(spec, "category")...)

	labels := make([]string, len(spec.Values))
	data := make([]opts.BarData, len(spec.Values))
	for i, v := range spec.Values {
		if i < len(spec.Labels) {
			labels[i] = spec.Labels[i]
		}
		data[i] = opts.BarData{
			Value:     v,
			ItemStyle: &opts.ItemStyle{Color: htmlColors[spec.ClassAt(i)]},
		}
	}
	bar.SetXAxis(labels)
	bar.AddSeries(spec.Name, data)
	return bar
}
