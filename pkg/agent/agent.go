// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the three pipeline stages: analyst, advisor and risk assessor.
package agent

import (
	"context"
	"log/slog"

	"github.com/jllopis/fincrew/pkg/tool"
)

// Payload keys.
const (
	KeyFilePath       = "file_path"
	KeyQuery          = "query"
	KeyPreviousResult = "previous_task_result"
)

// Sentinel results returned in place of an analysis when a stage precondition is not met.
const (
	UnreadableDocument = "Could not read the document."
	NoPreviousAnalysis = "No analysis from the previous agent to provide advice on."
)

// Payload is the mapping threaded through the stages of one kickoff.
type Payload map[string]string

// Clone returns an independent copy of p.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Agent runs one pipeline stage.
//
// Implementations hold no per-call state; the same instance may serve concurrent kickoffs.
type Agent interface {
	Name() string
	Run(ctx context.Context, payload Payload, tools []tool.Tool) (string, error)
}

// Analyzer turns document text into a narrative.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (string, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, text string) (string, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Option configures an agent.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the agent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
