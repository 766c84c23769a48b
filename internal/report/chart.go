package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"posecoach/internal/heatcolor"
)

// ErrTooFewPoints is returned when a chart would have no x range.
var ErrTooFewPoints = errors.New("chart needs at least two points")

const (
	DefaultChartWidth  = 960
	DefaultChartHeight = 320
)

// RenderChart writes a PNG line chart of score and heat per frame. Both
// series share a fixed 0..1 axis.
func RenderChart(w io.Writer, points []Point, width, height int, palette heatcolor.Palette) error {
	if len(points) < 2 {
		return ErrTooFewPoints
	}
	if width <= 0 {
		width = DefaultChartWidth
	}
	if height <= 0 {
		height = DefaultChartHeight
	}
	xs := make([]float64, len(points))
	scores := make([]float64, len(points))
	heats := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Seq)
		scores[i] = p.Score
		heats[i] = p.Heat
	}
	if xs[0] == xs[len(xs)-1] {
		return ErrTooFewPoints
	}

	ch := chart.Chart{
		Title:      "Technique stability",
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 12, Bottom: 12}},
		XAxis:      chart.XAxis{Name: "frame"},
		YAxis: chart.YAxis{
			Name:  "ratio",
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
			Ticks: []chart.Tick{
				{Value: 0, Label: "0"},
				{Value: 0.25, Label: "0.25"},
				{Value: 0.5, Label: "0.5"},
				{Value: 0.75, Label: "0.75"},
				{Value: 1, Label: "1"},
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "score", XValues: xs, YValues: scores, Style: lineStyle(palette.Stable)},
			chart.ContinuousSeries{Name: "heat", XValues: xs, YValues: heats, Style: lineStyle(palette.Drift)},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func lineStyle(c color.RGBA) chart.Style {
	return chart.Style{
		StrokeColor: drawing.Color{R: c.R, G: c.G, B: c.B, A: 255},
		StrokeWidth: 2,
	}
}
