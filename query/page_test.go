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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultWithRows(n int) *Result {
	r := &Result{Columns: []string{"id", "name"}}
	for i := 0; i < n; i++ {
		r.Rows = append(r.Rows, Row{i, fmt.Sprintf("row-%d", i)})
	}
	return r
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name       string
		rows       int
		index      int
		wantIndex  int
		wantPages  int
		wantFirst  int
		wantLength int
	}{
		{name: "first_page", rows: 45, index: 0, wantIndex: 0, wantPages: 3, wantFirst: 0, wantLength: 20},
		{name: "middle_page", rows: 45, index: 1, wantIndex: 1, wantPages: 3, wantFirst: 20, wantLength: 20},
		{name: "last_page_partial", rows: 45, index: 2, wantIndex: 2, wantPages: 3, wantFirst: 40, wantLength: 5},
		{name: "index_clamped_high", rows: 45, index: 5, wantIndex: 2, wantPages: 3, wantFirst: 40, wantLength: 5},
		{name: "index_clamped_negative", rows: 45, index: -3, wantIndex: 0, wantPages: 3, wantFirst: 0, wantLength: 20},
		{name: "exact_multiple", rows: 40, index: 1, wantIndex: 1, wantPages: 2, wantFirst: 20, wantLength: 20},
		{name: "single_short_page", rows: 7, index: 0, wantIndex: 0, wantPages: 1, wantFirst: 0, wantLength: 7},
		{name: "empty_result_one_page", rows: 0, index: 0, wantIndex: 0, wantPages: 1, wantLength: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(resultWithRows(tt.rows), tt.index, DefaultPageSize)
			assert.Equal(t, tt.wantIndex, p.Index)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.rows, p.TotalRows)
			require.Len(t, p.Rows, tt.wantLength)
			if tt.wantLength > 0 {
				assert.Equal(t, tt.wantFirst, p.Rows[0][0])
				assert.Equal(t, tt.wantFirst+tt.wantLength-1, p.Rows[len(p.Rows)-1][0])
			}
		})
	}
}

func TestPaginateDoesNotCopyStorage(t *testing.T) {
	r := resultWithRows(45)
	p := Paginate(r, 2, DefaultPageSize)
	// The page is a window into the stored rows, not a mutated copy.
	assert.Equal(t, r.Rows[40][1], p.Rows[0][1])
	assert.Len(t, r.Rows, 45)
}

func TestCellText(t *testing.T) {
	long := strings.Repeat("x", 60)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "null_cell", in: nil, want: "-"},
		{name: "short_string", in: "hello", want: "hello"},
		{name: "number", in: 42, want: "42"},
		{name: "exactly_fifty", in: strings.Repeat("a", 50), want: strings.Repeat("a", 50)},
		{name: "truncated_with_ellipsis", in: long, want: strings.Repeat("x", 50) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CellText(tt.in))
		})
	}
}

func TestCellTextLeavesStorageIntact(t *testing.T) {
	long := strings.Repeat("y", 80)
	r := &Result{Columns: []string{"c"}, Rows: []Row{{long}}}
	_ = CellText(r.Rows[0][0])
	assert.Equal(t, long, r.Rows[0][0])
}
