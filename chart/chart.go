//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package chart turns a visualization directive and tabular rows into a
// rendered PNG. Rendering is CPU-bound, so every render runs on a dedicated
// worker pool instead of the goroutine servicing the request; one slow
// render cannot head-of-line-block unrelated users. Any failure, from an
// unresolvable column to a renderer fault, surfaces as ErrRender and the
// caller falls back to the table view.
package chart

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-databot-go/log"
	"trpc.group/trpc-go/trpc-databot-go/query"
	"trpc.group/trpc-go/trpc-databot-go/viz"
)

const defaultPoolSize = 4

// MimeType of every image this package produces.
const MimeType = "image/png"

// Renderer renders charts on a bounded worker pool.
type Renderer struct {
	pool *ants.Pool
}

// Option configures a Renderer.
type Option func(*rendererOpts)

type rendererOpts struct {
	poolSize int
}

// WithPoolSize sets the number of concurrent render workers.
func WithPoolSize(n int) Option {
	return func(o *rendererOpts) { o.poolSize = n }
}

// NewRenderer creates a Renderer with its worker pool.
func NewRenderer(opts ...Option) (*Renderer, error) {
	o := rendererOpts{poolSize: defaultPoolSize}
	for _, opt := range opts {
		opt(&o)
	}
	pool, err := ants.NewPool(o.poolSize)
	if err != nil {
		return nil, fmt.Errorf("create render worker pool: %w", err)
	}
	return &Renderer{pool: pool}, nil
}

// Close releases the worker pool.
func (r *Renderer) Close() {
	r.pool.Release()
}

type renderResult struct {
	png []byte
	err error
}

// Render draws the chart described by spec over the given tabular data and
// returns the encoded PNG. The work is submitted to the pool and the calling
// goroutine waits for it; an expired context returns early but the render
// runs to completion. Failures return ErrRender.
func (r *Renderer) Render(ctx context.Context, spec *viz.Spec, columns []string, rows []query.Row) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	done := make(chan renderResult, 1)
	if err := r.pool.Submit(func() {
		png, err := renderOne(spec, columns, rows)
		done <- renderResult{png: png, err: err}
	}); err != nil {
		return nil, fmt.Errorf("%w: submit: %v", ErrRender, err)
	}

	select {
	case res := <-done:
		return res.png, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrRender, ctx.Err())
	}
}

// renderOne runs on a pool worker. A panicking renderer is converted into
// ErrRender so a malformed dataset can never take the process down.
func renderOne(spec *viz.Spec, columns []string, rows []query.Row) (png []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("chart: renderer panic: %v", r)
			png, err = nil, fmt.Errorf("%w: renderer panic: %v", ErrRender, r)
		}
	}()

	data, err := prepare(spec, columns, rows)
	if err != nil {
		return nil, err
	}

	switch data.chartType {
	case "line":
		png, err = drawLine(data, false)
	case "area":
		png, err = drawLine(data, true)
	case "pie":
		png, err = drawPie(data)
	case "scatter":
		png, err = drawScatter(data)
	default:
		// Unrecognized types degrade to a bar chart rather than failing.
		png, err = drawBar(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRender, data.chartType, err)
	}
	return png, nil
}
