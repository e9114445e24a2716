// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"log/slog"

	"github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/resilience"
	"github.com/jllopis/fincrew/pkg/tool"
)

// AdvicePreamble precedes the previous stage's result in the advice prompt.
const AdvicePreamble = "Based on the following financial analysis, provide investment advice:\n\n"

// Advisor turns the previous stage's analysis into investment advice. Tools are ignored.
type Advisor struct {
	generator resilience.Generator
	logger    *slog.Logger
}

// NewAdvisor creates the investment advisor stage.
func NewAdvisor(generator resilience.Generator, opts ...Option) (*Advisor, error) {
	if generator == nil {
		return nil, errors.New(errors.CodeInvalidInput, "investment_advisor: generator is required", nil)
	}
	o := buildOptions(opts)
	return &Advisor{generator: generator, logger: o.logger}, nil
}

// Name implements Agent.
func (a *Advisor) Name() string { return "investment_advisor" }

// Run implements Agent.
func (a *Advisor) Run(ctx context.Context, payload Payload, _ []tool.Tool) (string, error) {
	previous := payload[KeyPreviousResult]
	if previous == "" {
		a.logger.InfoContext(ctx, "no previous analysis, skipping advice", "agent", a.Name())
		return NoPreviousAnalysis, nil
	}
	return a.generator.Generate(ctx, AdvicePreamble+previous)
}

var _ Agent = (*Advisor)(nil)
