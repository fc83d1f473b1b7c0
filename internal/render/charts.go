package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// ErrNoData is returned when there is nothing to draw
var ErrNoData = errors.New("render: no data points")

// Default canvas size
const (
	DefaultWidth  = 1200
	DefaultHeight = 700
)

// LineChart draws one line per entity of a ratio series, in first-appearance order.
// Non-finite points are skipped.
func LineChart(w io.Writer, title, yName string, points []contracts.SeriesPoint) error {
	type line struct {
		name string
		xs   []time.Time
		ys   []float64
	}
	order := make([]string, 0)
	lines := make(map[string]*line)

	for _, p := range points {
		if !p.Finite() {
			continue
		}
		l, ok := lines[p.Entity]
		if !ok {
			l = &line{name: p.Location}
			lines[p.Entity] = l
			order = append(order, p.Entity)
		}
		l.xs = append(l.xs, p.Date)
		l.ys = append(l.ys, p.Ratio)
	}
	if len(order) == 0 {
		return ErrNoData
	}

	series := make([]chart.Series, 0, len(order))
	allY := make([]float64, 0, len(points))
	for i, entity := range order {
		l := lines[entity]
		xs, ys := l.xs, l.ys
		// go-chart cannot range a single point
		if len(xs) == 1 {
			xs = []time.Time{xs[0], xs[0].Add(24 * time.Hour)}
			ys = []float64{ys[0], ys[0]}
		}
		allY = append(allY, ys...)
		series = append(series, chart.TimeSeries{
			Name:    l.name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: seriesColor(i),
				StrokeWidth: 2,
			},
		})
	}

	ch := chart.Chart{
		Title:      title,
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "Date", ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:      chart.YAxis{Name: yName, Range: flatRange(allY)},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.LegendLeft(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}

// ScatterPoint is one labelled point
type ScatterPoint struct {
	Label string
	X     float64
	Y     float64
}

// ScatterOptions configures a scatter plot
type ScatterOptions struct {
	Title  string
	XName  string
	YName  string
	LogLog bool // plot log10(x) against log10(y), dropping non-positive points
}

// Scatter draws points only, no connecting line
func Scatter(w io.Writer, opts ScatterOptions, points []ScatterPoint) error {
	xs, ys := ScatterValues(points, opts.LogLog)
	if len(xs) == 0 {
		return ErrNoData
	}

	xName, yName := opts.XName, opts.YName
	if opts.LogLog {
		xName = "log10 " + xName
		yName = "log10 " + yName
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: xName, Range: flatRange(xs)},
		YAxis:      chart.YAxis{Name: yName, Range: flatRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    opts.Title,
				XValues: xs,
				YValues: ys,
				Style:   pointStyle(seriesColor(0)),
			},
		},
	}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render scatter: %w", err)
	}
	return nil
}

// ScatterValues returns the plotted coordinates, skipping non-finite points
// and, for log-log, non-positive ones
func ScatterValues(points []ScatterPoint, logLog bool) ([]float64, []float64) {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		x, y := p.X, p.Y
		if logLog {
			if x <= 0 || y <= 0 {
				continue
			}
			x, y = math.Log10(x), math.Log10(y)
		}
		if !finite(x) || !finite(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return xs, ys
}

// flatRange returns an explicit range around a constant series,
// nil when the values already span an interval
func flatRange(values []float64) chart.Range {
	if len(values) == 0 {
		return nil
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if max > min {
		return nil
	}
	pad := math.Max(math.Abs(min)*0.1, 1)
	return &chart.ContinuousRange{Min: min - pad, Max: max + pad}
}

func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    col,
	}
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
