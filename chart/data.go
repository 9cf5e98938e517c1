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
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"trpc.group/trpc-go/trpc-databot-go/query"
	"trpc.group/trpc-go/trpc-databot-go/viz"
)

// symbolRE strips currency and percent symbols plus thousands separators
// before numeric parsing.
var symbolRE = regexp.MustCompile(`[$,€£%]`)

// point is one (x, y) pair ready for plotting.
type point struct {
	// x is the raw cell value, kept for scatter charts which plot numeric x.
	x any
	// label is the display form of x.
	label string
	// y is the coerced numeric value.
	y float64
}

// plotData is the normalized input every renderer consumes.
type plotData struct {
	chartType string
	title     string
	xLabel    string
	yLabel    string
	points    []point
}

// prepare validates the spec against the columns and builds the plot series:
// rows with a NULL x are skipped, y values are coerced to numbers, and an
// asc/desc sort directive stable-sorts the pairs by y.
func prepare(spec *viz.Spec, columns []string, rows []query.Row) (*plotData, error) {
	xCol := spec.XAxis
	yCol := spec.YAxis
	// Multi-series is not supported; a comma-separated y_axis uses only the
	// first named column.
	if name, _, ok := strings.Cut(yCol, ","); ok {
		yCol = strings.TrimSpace(name)
	}

	xIdx := columnIndex(columns, xCol)
	yIdx := columnIndex(columns, yCol)
	if xIdx < 0 || yIdx < 0 {
		// Never guess a column.
		return nil, fmt.Errorf("%w: column not found (x=%q, y=%q)", ErrRender, xCol, yCol)
	}

	var points []point
	for _, row := range rows {
		if xIdx >= len(row) || row[xIdx] == nil {
			continue
		}
		var yv any
		if yIdx < len(row) {
			yv = row[yIdx]
		}
		points = append(points, point{
			x:     row[xIdx],
			label: fmt.Sprintf("%v", row[xIdx]),
			y:     toNumeric(yv),
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no plottable rows", ErrRender)
	}

	switch strings.ToLower(spec.Sort) {
	case "asc":
		sort.SliceStable(points, func(i, j int) bool { return points[i].y < points[j].y })
	case "desc":
		sort.SliceStable(points, func(i, j int) bool { return points[i].y > points[j].y })
	}

	title := spec.Title
	if title == "" {
		title = "Chart"
	}
	xLabel := spec.XLabel
	if xLabel == "" {
		xLabel = xCol
	}
	yLabel := spec.YLabel
	if yLabel == "" {
		yLabel = yCol
	}

	return &plotData{
		chartType: strings.ToLower(spec.ChartType),
		title:     title,
		xLabel:    xLabel,
		yLabel:    yLabel,
		points:    points,
	}, nil
}

// columnIndex resolves a directive field to a column by case-insensitive
// exact name match. Returns -1 when the column does not exist.
func columnIndex(columns []string, name string) int {
	for i, col := range columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// toNumeric coerces a cell value to a float. Strings are cleaned of currency
// and percent symbols and thousands separators first. NULL and unparseable
// values become 0.
func toNumeric(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		cleaned := symbolRE.ReplaceAllString(fmt.Sprintf("%v", v), "")
		f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
		if err != nil {
			return 0
		}
		return f
	}
}

// formatNumber renders an on-chart label: millions and thousands are
// shortened, values of at least one are integers, the rest keep two
// decimals.
func formatNumber(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// truncateLabel caps a category label for display.
func truncateLabel(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
