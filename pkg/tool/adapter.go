// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/jllopis/fincrew/pkg/resilience"
	"github.com/jllopis/fincrew/pkg/telemetry"
)

// FirstText returns the text produced by the first tool in tools for input.
//
// Later tools are never invoked here; agents use them directly. An empty list or a nil first
// tool yields "". The call runs through resilience.Offload so the caller only waits on a
// channel and can stop waiting when ctx ends.
func FirstText(ctx context.Context, tools []Tool, input string) (string, error) {
	if len(tools) == 0 || tools[0] == nil {
		return "", nil
	}
	first := tools[0]

	ctx, span := otel.Tracer("fincrew/tool").Start(ctx, "Tool.Produce")
	defer span.End()
	start := time.Now()
	text, err := resilience.Offload(ctx, func() (string, error) {
		return first.Produce(ctx, input)
	})
	span.SetAttributes(telemetry.ToolAttributes(first.Name(), string(KindOf(first)), float64(time.Since(start).Milliseconds()))...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}
