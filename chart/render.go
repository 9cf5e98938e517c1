//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

package chart

import (
	"bytes"
	"fmt"
	"sort"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Fixed canvas; pie charts use a square one.
const (
	canvasWidth  = 640
	canvasHeight = 400
	pieEdge      = 640
)

// Display caps keeping each chart readable.
const (
	maxBars      = 15
	maxPieSlices = 7
)

// palette matches the house chart colors of the original dashboards.
var palette = []drawing.Color{
	drawing.ColorFromHex("077A9D"),
	drawing.ColorFromHex("FFAB00"),
	drawing.ColorFromHex("00A972"),
	drawing.ColorFromHex("FF3621"),
	drawing.ColorFromHex("8BCAE7"),
	drawing.ColorFromHex("AB4057"),
	drawing.ColorFromHex("99DDB4"),
	drawing.ColorFromHex("FCA4A1"),
	drawing.ColorFromHex("919191"),
	drawing.ColorFromHex("BF7080"),
}

func valueFormatter(v any) string {
	if f, ok := v.(float64); ok {
		return formatNumber(f)
	}
	return fmt.Sprintf("%v", v)
}

func encodePNG(render func(w *bytes.Buffer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawBar renders at most the first 15 categories post-sort.
func drawBar(data *plotData) ([]byte, error) {
	points := data.points
	if len(points) > maxBars {
		points = points[:maxBars]
	}

	bars := make([]gochart.Value, 0, len(points))
	for i, p := range points {
		bars = append(bars, gochart.Value{
			Label: truncateLabel(p.label, 30),
			Value: p.y,
			Style: gochart.Style{FillColor: palette[i%len(palette)]},
		})
	}

	barWidth := (canvasWidth - 100) / len(bars)
	if barWidth > 56 {
		barWidth = 56
	}
	if barWidth < 4 {
		barWidth = 4
	}

	graph := gochart.BarChart{
		Title:      data.title,
		Width:      canvasWidth,
		Height:     canvasHeight,
		BarWidth:   barWidth,
		BarSpacing: 6,
		YAxis: gochart.YAxis{
			Name:           data.yLabel,
			ValueFormatter: valueFormatter,
		},
		Bars: bars,
	}
	return encodePNG(func(w *bytes.Buffer) error { return graph.Render(gochart.PNG, w) })
}

// collapseSlices re-sorts descending and keeps the top 7 categories;
// everything beyond collapses into one synthetic "Other" slice holding the
// sum of the remainder.
func collapseSlices(in []point) []point {
	points := make([]point, len(in))
	copy(points, in)
	sort.SliceStable(points, func(i, j int) bool { return points[i].y > points[j].y })

	if len(points) > maxPieSlices {
		var other float64
		for _, p := range points[maxPieSlices:] {
			other += p.y
		}
		points = append(points[:maxPieSlices], point{label: "Other", y: other})
	}
	return points
}

func drawPie(data *plotData) ([]byte, error) {
	points := collapseSlices(data.points)

	values := make([]gochart.Value, 0, len(points))
	for i, p := range points {
		values = append(values, gochart.Value{
			Label: fmt.Sprintf("%s (%s)", truncateLabel(p.label, 20), formatNumber(p.y)),
			Value: p.y,
			Style: gochart.Style{FillColor: palette[i%len(palette)]},
		})
	}

	graph := gochart.PieChart{
		Title:  data.title,
		Width:  pieEdge,
		Height: pieEdge,
		Values: values,
	}
	return encodePNG(func(w *bytes.Buffer) error { return graph.Render(gochart.PNG, w) })
}

// drawLine renders a line chart, filled under the curve when area is set.
// Categories plot at their row index with labeled ticks.
func drawLine(data *plotData, area bool) ([]byte, error) {
	xs := make([]float64, len(data.points))
	ys := make([]float64, len(data.points))
	for i, p := range data.points {
		xs[i] = float64(i)
		ys[i] = p.y
	}

	style := gochart.Style{
		StrokeColor: palette[0],
		StrokeWidth: 2,
		DotColor:    palette[0],
		DotWidth:    3,
	}
	if area {
		style.FillColor = palette[0].WithAlpha(48)
	}

	graph := gochart.Chart{
		Title:  data.title,
		Width:  canvasWidth,
		Height: canvasHeight,
		XAxis: gochart.XAxis{
			Name:  data.xLabel,
			Ticks: categoryTicks(data.points),
		},
		YAxis: gochart.YAxis{
			Name:           data.yLabel,
			ValueFormatter: valueFormatter,
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{XValues: xs, YValues: ys, Style: style},
		},
	}
	return encodePNG(func(w *bytes.Buffer) error { return graph.Render(gochart.PNG, w) })
}

// drawScatter plots numeric x against y; non-numeric x cells coerce to 0
// like y values do.
func drawScatter(data *plotData) ([]byte, error) {
	xs := make([]float64, len(data.points))
	ys := make([]float64, len(data.points))
	for i, p := range data.points {
		xs[i] = toNumeric(p.x)
		ys[i] = p.y
	}

	graph := gochart.Chart{
		Title:  data.title,
		Width:  canvasWidth,
		Height: canvasHeight,
		XAxis: gochart.XAxis{
			Name:           data.xLabel,
			ValueFormatter: valueFormatter,
		},
		YAxis: gochart.YAxis{
			Name:           data.yLabel,
			ValueFormatter: valueFormatter,
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeWidth: gochart.Disabled,
					DotColor:    palette[0],
					DotWidth:    5,
				},
			},
		},
	}
	return encodePNG(func(w *bytes.Buffer) error { return graph.Render(gochart.PNG, w) })
}

// categoryTicks labels every nth index so long series stay legible.
func categoryTicks(points []point) []gochart.Tick {
	step := 1
	if len(points) > 12 {
		step = (len(points) + 11) / 12
	}
	var ticks []gochart.Tick
	for i := 0; i < len(points); i += step {
		ticks = append(ticks, gochart.Tick{
			Value: float64(i),
			Label: truncateLabel(points[i].label, 15),
		})
	}
	last := len(points) - 1
	if len(ticks) > 0 && ticks[len(ticks)-1].Value != float64(last) {
		ticks = append(ticks, gochart.Tick{
			Value: float64(last),
			Label: truncateLabel(points[last].label, 15),
		})
	}
	return ticks
}
