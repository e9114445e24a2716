// SPDX-License-Identifier: Apache-2.0
// Package telemetry provides logging, tracing and metrics for the analysis pipeline.
package telemetry

import (
	"context"
	stderrors "errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/fincrew/pkg/errors"
)

// PipelineMetrics tracks stage outcomes, provider fallbacks and errors.
// All methods are safe on a nil receiver so components can run without metrics.
type PipelineMetrics struct {
	// stageRuns counts stage executions by stage and outcome
	stageRuns metric.Int64Counter

	// stageDuration records how long each stage took
	stageDuration metric.Float64Histogram

	// kickoffs counts whole pipeline runs by outcome
	kickoffs metric.Int64Counter

	// fallbacks counts switches from the primary to the secondary provider
	fallbacks metric.Int64Counter

	// errorCounter tracks total errors by code and component
	errorCounter metric.Int64Counter

	// recoveryCounter tracks errors absorbed by a fallback
	recoveryCounter metric.Int64Counter
}

const meterName = "fincrew/pipeline"

// NewPipelineMetrics creates the instruments on meter, or on the global meter
// provider when meter is nil.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	stageRuns, err := meter.Int64Counter(
		"fincrew.stage.runs",
		metric.WithDescription("Stage executions by stage and outcome"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"fincrew.stage.duration_ms",
		metric.WithDescription("Stage execution time in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	kickoffs, err := meter.Int64Counter(
		"fincrew.kickoff.total",
		metric.WithDescription("Pipeline runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"fincrew.llm.fallbacks",
		metric.WithDescription("Generations served by the secondary provider"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"fincrew.errors.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	recoveryCounter, err := meter.Int64Counter(
		"fincrew.errors.recovered",
		metric.WithDescription("Errors absorbed by a fallback, by code"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		stageRuns:       stageRuns,
		stageDuration:   stageDuration,
		kickoffs:        kickoffs,
		fallbacks:       fallbacks,
		errorCounter:    errorCounter,
		recoveryCounter: recoveryCounter,
	}, nil
}

// RecordStage records one stage execution. outcome is "ok", "sentinel" or "error".
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage, outcome string, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrStageName, stage),
		attribute.String(AttrStageOutcome, outcome),
	)
	m.stageRuns.Add(ctx, 1, attrs)
	m.stageDuration.Record(ctx, durationMs, attrs)
}

// RecordKickoff records one pipeline run.
func (m *PipelineMetrics) RecordKickoff(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.kickoffs.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStageOutcome, outcome)))
}

// RecordFallback increments the fallback counter for the failed primary provider.
func (m *PipelineMetrics) RecordFallback(ctx context.Context, primary string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrLLMProvider, primary)))
}

// RecordError increments the error counter for the given error and component.
func (m *PipelineMetrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}

	code, recoverable := "UNKNOWN", "unknown"
	var e *errors.Error
	if stderrors.As(err, &e) {
		code, recoverable = string(e.Code), e.RecoverableString()
	}
	m.errorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", code),
			attribute.String("component", component),
			attribute.String("recoverable", recoverable),
		),
	)
}

// RecordRecovery increments the recovery counter for the given error code.
func (m *PipelineMetrics) RecordRecovery(ctx context.Context, code errors.ErrorCode) {
	if m == nil {
		return
	}
	m.recoveryCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", string(code)),
		),
	)
}
