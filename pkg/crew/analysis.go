// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package crew

import "github.com/jllopis/fincrew/pkg/store"

// Placeholders for stages that produced no result.
const (
	NoFinancialAnalysis  = "No financial analysis available."
	NoInvestmentAdvising = "No investment advising available."
	NoRiskAssessment     = "No risk assessment available."
)

// Analysis files Kickoff results into a store.Analysis using each task's OutputKey.
// Tasks without a known OutputKey are ignored.
func Analysis(tasks []Task, results map[string]string) store.Analysis {
	out := store.Analysis{
		FinancialAnalysis:  NoFinancialAnalysis,
		InvestmentAdvising: NoInvestmentAdvising,
		RiskAssessment:     NoRiskAssessment,
	}
	for _, t := range tasks {
		result, ok := results[t.Description]
		if !ok {
			continue
		}
		switch t.OutputKey {
		case OutputFinancialAnalysis:
			out.FinancialAnalysis = result
		case OutputInvestmentAdvising:
			out.InvestmentAdvising = result
		case OutputRiskAssessment:
			out.RiskAssessment = result
		}
	}
	return out
}
