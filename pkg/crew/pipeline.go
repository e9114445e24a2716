// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package crew

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output keys of the financial pipeline.
const (
	OutputFinancialAnalysis  = "financial_analysis"
	OutputInvestmentAdvising = "investment_advising"
	OutputRiskAssessment     = "risk_assessment"
)

// StageSpec declares one stage by agent and tool names.
type StageSpec struct {
	Description    string   `json:"description" yaml:"description"`
	ExpectedOutput string   `json:"expected_output" yaml:"expected_output"`
	Agent          string   `json:"agent" yaml:"agent"`
	Tools          []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	AsyncExecution bool     `json:"async_execution" yaml:"async_execution"`
	OutputKey      string   `json:"output_key,omitempty" yaml:"output_key,omitempty"`
}

// Pipeline is a declarative list of stages.
type Pipeline struct {
	Name   string      `json:"name" yaml:"name"`
	Stages []StageSpec `json:"stages" yaml:"stages"`
}

// Validate checks that the pipeline could become a crew.
func (p *Pipeline) Validate() error {
	if p == nil {
		return fmt.Errorf("pipeline is nil")
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("pipeline %q has no stages", p.Name)
	}
	seen := make(map[string]bool, len(p.Stages))
	for i, s := range p.Stages {
		if strings.TrimSpace(s.Description) == "" {
			return fmt.Errorf("stage %d: description is required", i)
		}
		if strings.TrimSpace(s.Agent) == "" {
			return fmt.Errorf("stage %d: agent is required", i)
		}
		if seen[s.Description] {
			return fmt.Errorf("stage %d: duplicate description", i)
		}
		seen[s.Description] = true
	}
	return nil
}

// ParseYAML loads a pipeline from YAML and validates it.
func ParseYAML(data []byte) (*Pipeline, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty YAML payload")
	}
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse yaml pipeline: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParseJSON loads a pipeline from JSON and validates it.
func ParseJSON(data []byte) (*Pipeline, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON payload")
	}
	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse json pipeline: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPipeline reads a pipeline from a YAML or JSON file.
func LoadPipeline(path string) (*Pipeline, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("pipeline path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			return ParseJSON(data)
		}
		return ParseYAML(data)
	}
}

// MarshalYAML serializes a pipeline to YAML.
func MarshalYAML(p *Pipeline) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return yaml.Marshal(p)
}

// Agent and tool names used by DefaultPipeline.
const (
	AgentFinancialAnalyst  = "financial_analyst"
	AgentInvestmentAdvisor = "investment_advisor"
	AgentRiskAssessor      = "risk_assessor"

	ToolReadDocument      = "read_financial_document"
	ToolAnalyzeInvestment = "analyze_investment"
	ToolAssessRisk        = "assess_risk"
)

// DefaultPipeline returns the three-stage financial analysis pipeline.
// The {file_path} placeholders are kept literal.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		Name: "financial-document-analysis",
		Stages: []StageSpec{
			{
				Description: "Analyze the financial document at {file_path} to identify key financial metrics, " +
					"performance indicators, and overall market positioning. Your analysis will serve as the " +
					"foundation for subsequent investment and risk assessments.",
				ExpectedOutput: "A comprehensive report detailing the financial health of the entity, including " +
					"an analysis of its revenue, profitability, cash flow, and balance sheet. " +
					"Highlight any significant trends or anomalies.",
				Agent:     AgentFinancialAnalyst,
				Tools:     []string{ToolReadDocument, ToolAnalyzeInvestment},
				OutputKey: OutputFinancialAnalysis,
			},
			{
				Description: "Based on the financial analysis, develop a strategic investment plan. " +
					"Your recommendations should be tailored to the user's query and take into " +
					"account long-term growth potential and market opportunities.",
				ExpectedOutput: "A detailed investment strategy that includes specific recommendations, " +
					"potential returns, and a clear rationale. The strategy should be aligned with " +
					"the findings of the financial analysis and risk assessment.",
				Agent:     AgentInvestmentAdvisor,
				Tools:     []string{ToolAnalyzeInvestment, ToolAssessRisk},
				OutputKey: OutputInvestmentAdvising,
			},
			{
				Description: "Conduct a thorough risk assessment of the investment opportunities identified " +
					"in the financial analysis of the document at {file_path}. Your evaluation should cover market risks, operational risks, " +
					"and any other potential threats to the investment.",
				ExpectedOutput: "A comprehensive risk report that outlines all identified risks, their potential impact, " +
					"and recommended mitigation strategies. This report will help in making a well-informed " +
					"investment decision.",
				Agent:     AgentRiskAssessor,
				Tools:     []string{ToolReadDocument, ToolAssessRisk},
				OutputKey: OutputRiskAssessment,
			},
		},
	}
}
