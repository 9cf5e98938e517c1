//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package artifact stores query results and rendered chart images under
// opaque identifiers so the transport layer can fetch them again later:
// re-render page N of a table, serve a chart image, open an interactive
// view. Both spaces are bounded; once a store exceeds its capacity the
// oldest-inserted entries are evicted. IDs are never reused, so a lookup on
// an evicted ID deterministically misses and callers answer with a
// "data expired, re-run the query" message.
package artifact

import (
	"fmt"
	"sync"

	"trpc.group/trpc-go/trpc-databot-go/query"
)

// Capacity bounds for the two artifact spaces.
const (
	DefaultResultCapacity = 50
	DefaultChartCapacity  = 100
)

// ID prefixes for the two artifact spaces. The counter behind each prefix
// is independent and strictly increasing for the process lifetime.
const (
	resultIDPrefix = "result"
	chartIDPrefix  = "chart"
)

// Image is a rendered chart artifact.
type Image struct {
	// Data contains the encoded image bytes.
	Data []byte
	// MimeType is the IANA media type of Data.
	MimeType string
}

// fifoStore is an insertion-order bounded map. Eviction is FIFO, not LRU:
// reading an entry does not refresh it.
type fifoStore[T any] struct {
	prefix   string
	capacity int
	seq      uint64
	entries  map[string]T
	order    []string
}

func newFIFOStore[T any](prefix string, capacity int) *fifoStore[T] {
	return &fifoStore[T]{
		prefix:   prefix,
		capacity: capacity,
		entries:  make(map[string]T),
	}
}

// put issues the next ID, inserts the entry and evicts oldest-first down to
// the capacity. The caller holds the store lock.
func (f *fifoStore[T]) put(entry T) string {
	f.seq++
	id := fmt.Sprintf("%s_%d", f.prefix, f.seq)
	f.entries[id] = entry
	f.order = append(f.order, id)
	for len(f.order) > f.capacity {
		oldest := f.order[0]
		f.order = f.order[1:]
		delete(f.entries, oldest)
	}
	return id
}

func (f *fifoStore[T]) get(id string) (T, bool) {
	entry, ok := f.entries[id]
	return entry, ok
}

// Store owns the cached query results and chart images. Entries are
// immutable once stored; other components only read and re-slice them.
type Store struct {
	mu      sync.Mutex
	results *fifoStore[*query.Result]
	charts  *fifoStore[*Image]
}

// Option configures a Store.
type Option func(*Store)

// WithResultCapacity overrides the query-result bound.
func WithResultCapacity(n int) Option {
	return func(s *Store) { s.results.capacity = n }
}

// WithChartCapacity overrides the chart-image bound.
func WithChartCapacity(n int) Option {
	return func(s *Store) { s.charts.capacity = n }
}

// NewStore creates a Store with the default capacities.
func NewStore(opts ...Option) *Store {
	s := &Store{
		results: newFIFOStore[*query.Result](resultIDPrefix, DefaultResultCapacity),
		charts:  newFIFOStore[*Image](chartIDPrefix, DefaultChartCapacity),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutResult stores a query result and returns its fresh opaque ID.
func (s *Store) PutResult(r *query.Result) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results.put(r)
}

// Result returns the stored result for id, or ErrNotFound if the ID is
// unknown or the entry has been evicted.
func (s *Store) Result(id string) (*query.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// PutChart stores a rendered chart image and returns its fresh opaque ID.
func (s *Store) PutChart(img *Image) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.charts.put(img)
}

// Chart returns the stored image for id, or ErrNotFound if the ID is
// unknown or the entry has been evicted.
func (s *Store) Chart(id string) (*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.charts.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return img, nil
}
