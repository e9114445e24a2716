// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package analysis provides the LLM-backed analyzers that turn document text into narrative.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/llm"
	"github.com/jllopis/fincrew/pkg/tool"
)

// Kind selects the analysis an Analyzer performs.
type Kind string

const (
	KindInvestment Kind = "investment"
	KindRisk       Kind = "risk"
)

// Sampling used for every analyzer request.
const (
	Temperature = 0.6
	TopP        = 0.7
	MaxTokens   = 4096
)

var toolNames = map[Kind]string{
	KindInvestment: "analyze_investment",
	KindRisk:       "assess_risk",
}

var templates = map[Kind]string{
	KindInvestment: `You are a senior financial analyst. Produce an investment analysis of the financial data below.

Financial data:
%s

Cover key metrics (revenue growth, net income, EPS, operating margin, debt-to-equity, free cash flow),
two or three growth areas backed by figures from the document, market position against competitors,
and a clear Buy, Hold or Sell recommendation with the investor risk profile it suits.
Use the figures exactly as reported. Structure the answer with headings.`,
	KindRisk: `You are a risk assessment expert. Identify and evaluate the risks visible in the financial data below.

Financial data:
%s

List market, operational, financial, regulatory and technological risks in non-overlapping categories.
Rate each as Low, Medium or High with its likely impact, give a mitigation for every High risk,
and quantify the financial impact of the most critical ones where the data allows.
Structure the answer with headings.`,
}

// Analyzer sends document text to a provider and returns the narrative verbatim.
type Analyzer struct {
	kind     Kind
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithModel sets the model requested from the provider.
func WithModel(model string) Option {
	return func(a *Analyzer) {
		a.model = model
	}
}

// WithLogger sets the analyzer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an analyzer of the given kind.
func New(kind Kind, provider llm.Provider, opts ...Option) (*Analyzer, error) {
	if _, ok := templates[kind]; !ok {
		return nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("unknown analysis kind %q", kind), nil)
	}
	if provider == nil {
		return nil, errors.New(errors.CodeInvalidInput, "analysis provider is required", nil)
	}
	a := &Analyzer{
		kind:     kind,
		provider: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Kind returns the analysis kind.
func (a *Analyzer) Kind() Kind { return a.kind }

// Name returns the tool name of the analyzer.
func (a *Analyzer) Name() string { return toolNames[a.kind] }

// Prompt renders the request prompt for text.
func (a *Analyzer) Prompt(text string) string {
	return fmt.Sprintf(templates[a.kind], text)
}

// Analyze runs the analysis. Provider errors are returned as CodeLLMError.
func (a *Analyzer) Analyze(ctx context.Context, text string) (string, error) {
	req := llm.UserPrompt(a.Prompt(text))
	req.Model = a.model
	req.Temperature = Temperature
	req.TopP = TopP
	req.MaxTokens = MaxTokens

	start := time.Now()
	out, err := llm.Complete(ctx, a.provider, req)
	if err != nil {
		return "", errors.New(errors.CodeLLMError, "analysis request failed", err).
			WithAttribute("analysis", string(a.kind)).
			WithAttribute("provider", llm.NameOf(a.provider))
	}
	a.logger.DebugContext(ctx, "analysis completed",
		"analysis", string(a.kind),
		"provider", llm.NameOf(a.provider),
		"duration_ms", time.Since(start).Milliseconds(),
		"chars", len(out),
	)
	return out, nil
}

// Run implements tool.Runner. It is not cancellable; pipeline stages reach RunContext instead.
func (a *Analyzer) Run(text string) (string, error) {
	return a.Analyze(context.Background(), text)
}

// RunContext implements tool.ContextRunner.
func (a *Analyzer) RunContext(ctx context.Context, text string) (string, error) {
	return a.Analyze(ctx, text)
}

// Tool returns the analyzer as a runner-shaped tool.
func (a *Analyzer) Tool() tool.Tool {
	return tool.FromRunner(a.Name(), a)
}
