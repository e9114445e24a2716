// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for pipeline telemetry.
// LLM keys follow the OpenTelemetry gen_ai conventions where applicable.
const (
	// Run attributes
	AttrRunID      = "fincrew.run.id"
	AttrRunStages  = "fincrew.run.stages"
	AttrRunFile    = "fincrew.run.file_path"
	AttrRunOutcome = "fincrew.run.outcome"

	// Stage attributes
	AttrStageIndex   = "fincrew.stage.index"
	AttrStageName    = "fincrew.stage.description"
	AttrStageAgent   = "fincrew.stage.agent"
	AttrStageOutcome = "fincrew.stage.outcome"
	AttrStageAsync   = "fincrew.stage.async_execution"

	// Tool attributes
	AttrToolName       = "fincrew.tool.name"
	AttrToolKind       = "fincrew.tool.kind"
	AttrToolsCount     = "fincrew.tools.count"
	AttrToolDurationMs = "fincrew.tool.duration_ms"

	// LLM attributes
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
	AttrLLMFallback     = "fincrew.llm.fallback"

	// Resource
	AttrStoreDriver = "fincrew.store.driver"
)

// maxAttrLen caps free-text attribute values.
const maxAttrLen = 200

// Truncate shortens s to max bytes, appending "..." when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		max = maxAttrLen
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// StageAttributes returns attributes for a stage span.
func StageAttributes(index int, description, agent string, tools int, async bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrStageIndex, index),
		attribute.String(AttrStageName, Truncate(description, maxAttrLen)),
		attribute.Int(AttrToolsCount, tools),
	}
	if agent != "" {
		attrs = append(attrs, attribute.String(AttrStageAgent, agent))
	}
	if async {
		attrs = append(attrs, attribute.Bool(AttrStageAsync, async))
	}
	return attrs
}

// RunAttributes returns attributes for a kickoff span.
func RunAttributes(runID, filePath string, stages int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrRunStages, stages),
	}
	if runID != "" {
		attrs = append(attrs, attribute.String(AttrRunID, runID))
	}
	if filePath != "" {
		attrs = append(attrs, attribute.String(AttrRunFile, filePath))
	}
	return attrs
}

// ToolAttributes returns attributes for a tool invocation.
func ToolAttributes(name, kind string, durationMs float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrToolName, name),
	}
	if kind != "" {
		attrs = append(attrs, attribute.String(AttrToolKind, kind))
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrToolDurationMs, durationMs))
	}
	return attrs
}

// LLMUsageAttributes returns model and token usage attributes.
func LLMUsageAttributes(provider, model string, inputTokens, outputTokens int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrLLMModel, model))
	}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	return attrs
}
