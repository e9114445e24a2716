// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"log/slog"

	"github.com/jllopis/fincrew/pkg/document"
	"github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/resilience"
	"github.com/jllopis/fincrew/pkg/tool"
)

// extractionAgent reads the source document through the first tool and hands its text to an analyzer.
type extractionAgent struct {
	name     string
	analyzer Analyzer
	logger   *slog.Logger
}

func newExtractionAgent(name string, analyzer Analyzer, opts []Option) (extractionAgent, error) {
	if analyzer == nil {
		return extractionAgent{}, errors.New(errors.CodeInvalidInput, name+": analyzer is required", nil)
	}
	o := buildOptions(opts)
	return extractionAgent{name: name, analyzer: analyzer, logger: o.logger}, nil
}

func (a extractionAgent) run(ctx context.Context, payload Payload, tools []tool.Tool) (string, error) {
	path := payload[KeyFilePath]
	text, err := tool.FirstText(ctx, tools, path)
	if err != nil && !errors.IsCode(err, errors.CodeExtraction) {
		return "", err
	}
	if document.IsExtractionFailure(text, err) {
		a.logger.InfoContext(ctx, "document unreadable, skipping analysis",
			"agent", a.name,
			"file_path", path,
			"tools", len(tools),
		)
		return UnreadableDocument, nil
	}

	return resilience.Offload(ctx, func() (string, error) {
		return a.analyzer.Analyze(ctx, text)
	})
}

// Analyst extracts the document and produces an investment analysis.
type Analyst struct {
	extractionAgent
}

// NewAnalyst creates the financial analyst stage.
func NewAnalyst(analyzer Analyzer, opts ...Option) (*Analyst, error) {
	core, err := newExtractionAgent("financial_analyst", analyzer, opts)
	if err != nil {
		return nil, err
	}
	return &Analyst{extractionAgent: core}, nil
}

// Name implements Agent.
func (a *Analyst) Name() string { return a.name }

// Run implements Agent.
func (a *Analyst) Run(ctx context.Context, payload Payload, tools []tool.Tool) (string, error) {
	return a.run(ctx, payload, tools)
}

// RiskAssessor extracts the document and produces a risk assessment.
type RiskAssessor struct {
	extractionAgent
}

// NewRiskAssessor creates the risk assessment stage.
func NewRiskAssessor(analyzer Analyzer, opts ...Option) (*RiskAssessor, error) {
	core, err := newExtractionAgent("risk_assessor", analyzer, opts)
	if err != nil {
		return nil, err
	}
	return &RiskAssessor{extractionAgent: core}, nil
}

// Name implements Agent.
func (r *RiskAssessor) Name() string { return r.name }

// Run implements Agent.
func (r *RiskAssessor) Run(ctx context.Context, payload Payload, tools []tool.Tool) (string, error) {
	return r.run(ctx, payload, tools)
}

var (
	_ Agent = (*Analyst)(nil)
	_ Agent = (*RiskAssessor)(nil)
)
