// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package crew runs an ordered list of tasks, threading each result into the next stage.
package crew

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/fincrew/pkg/agent"
	"github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/telemetry"
)

// Stage outcomes reported to logs, spans and metrics.
const (
	OutcomeOK       = "ok"
	OutcomeSentinel = "sentinel"
	OutcomeError    = "error"
)

// Crew executes tasks sequentially.
type Crew struct {
	tasks   []Task
	logger  *slog.Logger
	metrics *telemetry.PipelineMetrics
	tracer  trace.Tracer
}

// Option configures a Crew.
type Option func(*Crew)

// WithLogger sets the crew logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crew) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records stage and kickoff metrics.
func WithMetrics(m *telemetry.PipelineMetrics) Option {
	return func(c *Crew) {
		c.metrics = m
	}
}

// New validates tasks and returns a crew that runs them in the given order.
func New(tasks []Task, opts ...Option) (*Crew, error) {
	if len(tasks) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "crew needs at least one task", nil)
	}
	seen := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if err := t.validate(i); err != nil {
			return nil, err
		}
		if prev, dup := seen[t.Description]; dup {
			return nil, errors.New(errors.CodeInvalidInput, "task descriptions must be unique", nil).
				WithContext("description", t.Description).
				WithContext("first", prev).
				WithContext("duplicate", i)
		}
		seen[t.Description] = i
	}

	c := &Crew{
		tasks:  append([]Task(nil), tasks...),
		logger: slog.Default(),
		tracer: otel.Tracer("fincrew/crew"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tasks returns the configured tasks in execution order.
func (c *Crew) Tasks() []Task {
	return append([]Task(nil), c.tasks...)
}

// Kickoff runs every task in order and returns the results keyed by task description.
//
// inputs is copied, never modified. After each stage its result is stored under
// agent.KeyPreviousResult in the working payload, so every later stage can read it.
// An agent error stops the run and no results are returned.
func (c *Crew) Kickoff(ctx context.Context, inputs agent.Payload) (map[string]string, error) {
	runID := uuid.NewString()
	ctx = telemetry.ContextWithRunID(ctx, runID)
	ctx, span := c.tracer.Start(ctx, "Crew.Kickoff",
		trace.WithAttributes(telemetry.RunAttributes(runID, inputs[agent.KeyFilePath], len(c.tasks))...),
	)
	defer span.End()

	c.logger.InfoContext(ctx, "kickoff started", "stages", len(c.tasks))

	payload := inputs.Clone()
	results := make(map[string]string, len(c.tasks))
	for i, task := range c.tasks {
		result, err := c.runStage(ctx, i, task, payload)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String(telemetry.AttrRunOutcome, OutcomeError))
			c.metrics.RecordKickoff(ctx, OutcomeError)
			return nil, err
		}
		results[task.Description] = result
		payload[agent.KeyPreviousResult] = result
	}

	span.SetAttributes(attribute.String(telemetry.AttrRunOutcome, OutcomeOK))
	c.metrics.RecordKickoff(ctx, OutcomeOK)
	c.logger.InfoContext(ctx, "kickoff finished", "stages", len(c.tasks))
	return results, nil
}

func (c *Crew) runStage(ctx context.Context, index int, task Task, payload agent.Payload) (string, error) {
	name := task.agentName()
	stageCtx, span := c.tracer.Start(ctx, "Crew.Stage",
		trace.WithAttributes(telemetry.StageAttributes(index, task.Description, name, len(task.Tools), task.AsyncExecution)...),
	)
	defer span.End()

	c.logger.DebugContext(stageCtx, "stage started", "stage", index, "agent", name)
	start := time.Now()
	result, err := task.Agent.Run(stageCtx, payload, task.Tools)
	elapsed := float64(time.Since(start).Milliseconds())

	if err != nil {
		wrapped := errors.New(errors.CodeStageFailed, fmt.Sprintf("stage %d (%s) failed", index, name), err).
			WithContext("description", task.Description).
			WithAttribute("agent", name)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		span.SetAttributes(attribute.String(telemetry.AttrStageOutcome, OutcomeError))
		c.metrics.RecordStage(stageCtx, name, OutcomeError, elapsed)
		c.metrics.RecordError(stageCtx, err, "crew")
		c.logger.ErrorContext(stageCtx, "stage failed", "stage", index, "agent", name, "error", err)
		return "", wrapped
	}

	outcome := OutcomeOK
	if isSentinel(result) {
		outcome = OutcomeSentinel
	}
	span.SetAttributes(attribute.String(telemetry.AttrStageOutcome, outcome))
	c.metrics.RecordStage(stageCtx, name, outcome, elapsed)
	c.logger.InfoContext(stageCtx, "stage finished",
		"stage", index,
		"agent", name,
		"outcome", outcome,
		"duration_ms", elapsed,
	)
	return result, nil
}

func isSentinel(result string) bool {
	return result == agent.UnreadableDocument || result == agent.NoPreviousAnalysis
}
