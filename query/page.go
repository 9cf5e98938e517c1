//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

package query

import (
	"fmt"
	"unicode/utf8"
)

const (
	// DefaultPageSize is the number of rows shown per table page.
	DefaultPageSize = 20

	// maxCellRunes caps a cell's display width; storage is never truncated.
	maxCellRunes = 50
)

// Page is one fixed-size window into a stored result.
type Page struct {
	// Columns holds the column names, identical for every page of a result.
	Columns []string `json:"columns"`
	// Rows is the verbatim slice of the stored rows for this page.
	Rows []Row `json:"rows"`
	// Index is the zero-based page number, clamped into the valid range.
	Index int `json:"index"`
	// TotalPages is at least 1, even for an empty result.
	TotalPages int `json:"total_pages"`
	// TotalRows is the row count of the whole result.
	TotalRows int `json:"total_rows"`
}

// Paginate slices the result into the page at index. The size must be
// positive; callers normally pass DefaultPageSize. An out-of-range index is
// clamped to the nearest valid page, so requesting page 99 of a 3-page
// result returns the last page rather than an error.
func Paginate(r *Result, index, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	totalRows := len(r.Rows)
	totalPages := (totalRows + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if index < 0 {
		index = 0
	}
	if index > totalPages-1 {
		index = totalPages - 1
	}

	start := index * size
	end := start + size
	if start > totalRows {
		start = totalRows
	}
	if end > totalRows {
		end = totalRows
	}

	return Page{
		Columns:    r.Columns,
		Rows:       r.Rows[start:end],
		Index:      index,
		TotalPages: totalPages,
		TotalRows:  totalRows,
	}
}

// CellText renders a cell value for display. NULL becomes "-" and values
// longer than 50 runes are truncated with an ellipsis marker. The stored
// value is untouched.
func CellText(v any) string {
	if v == nil {
		return "-"
	}
	s := fmt.Sprintf("%v", v)
	if utf8.RuneCountInString(s) <= maxCellRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxCellRunes]) + "..."
}
