//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package viz extracts the visualization directive the assistant embeds in
// its free-text answers. The directive travels as a delimited block of
// key:value pairs:
//
//	[VIZ_START]
//	chart_type: bar
//	x_axis: Region
//	y_axis: Sales
//	[VIZ_END]
//
// Markers and field names match case-insensitively. The assistant sometimes
// emits the whole block as one run-on line, so Parse understands both a
// line-per-field layout and an inline layout. The parsing is deliberately
// confined to this package so the directive format can be tightened later
// without touching callers.
package viz

import (
	"regexp"
	"strings"
)

// Field names recognized inside a directive block.
const (
	FieldChartType = "chart_type"
	FieldXAxis     = "x_axis"
	FieldYAxis     = "y_axis"
	FieldXLabel    = "x_label"
	FieldYLabel    = "y_label"
	FieldTitle     = "title"
	FieldSort      = "sort"
)

var (
	blockRE = regexp.MustCompile(`(?is)\[viz_start\](.*?)\[viz_end\]`)
	fieldRE = regexp.MustCompile(`(?i)\b(chart_type|x_label|y_label|x_axis|y_axis|title|sort)\s*:`)
)

// Spec is a fully parsed visualization directive. ChartType, XAxis and YAxis
// are always set; the remaining fields may be empty. Values keep the case
// the assistant wrote them in.
type Spec struct {
	ChartType string `json:"chart_type"`
	XAxis     string `json:"x_axis"`
	YAxis     string `json:"y_axis"`
	XLabel    string `json:"x_label,omitempty"`
	YLabel    string `json:"y_label,omitempty"`
	Title     string `json:"title,omitempty"`
	Sort      string `json:"sort,omitempty"`
}

// Parse extracts the first directive block from text. It returns the parsed
// spec and the text with the block removed and surrounding whitespace
// trimmed. When no block is present, or the block is missing any of
// chart_type, x_axis or y_axis, Parse returns (nil, text) with the text
// byte-for-byte unchanged: a partial directive is never partially honored.
func Parse(text string) (*Spec, string) {
	loc := blockRE.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, text
	}
	block := strings.TrimSpace(text[loc[2]:loc[3]])

	var fields map[string]string
	if strings.Contains(block, "\n") {
		fields = parseLines(block)
	} else {
		fields = parseInline(block)
	}

	if fields[FieldChartType] == "" || fields[FieldXAxis] == "" || fields[FieldYAxis] == "" {
		return nil, text
	}

	spec := &Spec{
		ChartType: fields[FieldChartType],
		XAxis:     fields[FieldXAxis],
		YAxis:     fields[FieldYAxis],
		XLabel:    fields[FieldXLabel],
		YLabel:    fields[FieldYLabel],
		Title:     fields[FieldTitle],
		Sort:      fields[FieldSort],
	}
	cleaned := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	return spec, cleaned
}

// parseLines handles the one-field-per-line layout. Each non-empty line is
// split on its first colon; lines without a colon are skipped.
func parseLines(block string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if _, dup := fields[key]; dup {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields
}

// parseInline handles the run-on single-line layout. Every occurrence of a
// known field name followed by a colon is located, and each field's value is
// the text up to the next such occurrence or the end of the block. This is
// the lookahead-free equivalent of the original format: values containing
// spaces are captured whole without bleeding into the next field.
func parseInline(block string) map[string]string {
	locs := fieldRE.FindAllStringSubmatchIndex(block, -1)
	fields := make(map[string]string)
	for i, loc := range locs {
		key := strings.ToLower(block[loc[2]:loc[3]])
		end := len(block)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, dup := fields[key]; dup {
			continue
		}
		fields[key] = strings.TrimSpace(block[loc[1]:end])
	}
	return fields
}
