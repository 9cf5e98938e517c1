//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the OpenTelemetry handles used around the remote
// assistant call and chart rendering. The default provider is a no-op;
// deployments wire a real one through SetTracerProvider.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentName = "trpc.group/trpc-go/trpc-databot-go"

// TracerProvider is the global tracer provider.
var TracerProvider trace.TracerProvider = noop.NewTracerProvider()

// Tracer is the global tracer instance.
var Tracer trace.Tracer = TracerProvider.Tracer(instrumentName)

// Span attribute keys.
var (
	KeyUserID         = attribute.Key("databot.user.id")
	KeyConversationID = attribute.Key("databot.conversation.id")
	KeySpaceID        = attribute.Key("databot.space.id")
	KeyChartType      = attribute.Key("databot.chart.type")
	KeyResultID       = attribute.Key("databot.result.id")
	KeyRowCount       = attribute.Key("databot.result.rows")
)

// SetTracerProvider installs a real tracer provider.
func SetTracerProvider(tp trace.TracerProvider) {
	TracerProvider = tp
	Tracer = tp.Tracer(instrumentName)
}
