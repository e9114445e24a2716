// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Log keys stamped on every record whose context carries them.
const (
	LogKeyRunID   = "run_id"
	LogKeyTraceID = "trace_id"
	LogKeySpanID  = "span_id"
)

type runIDKey struct{}

// ContextWithRunID tags ctx with the pipeline run it belongs to. Every component
// logging with that context gets run_id on its records.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id set by ContextWithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// NewLogger builds a logger that adds run and trace correlation from the context.
// format is "json" or "text"; level is debug, info, warn or error. A nil output discards.
func NewLogger(output io.Writer, level, format string) *slog.Logger {
	if output == nil {
		output = io.Discard
	}
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	var base slog.Handler = slog.NewTextHandler(output, opts)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		base = slog.NewJSONHandler(output, opts)
	}
	return slog.New(&correlationHandler{Handler: base})
}

// correlationHandler embeds the base handler and only intercepts Handle.
type correlationHandler struct {
	slog.Handler
}

func (h *correlationHandler) Handle(ctx context.Context, record slog.Record) error {
	present := existingKeys(record)
	add := func(key, value string) {
		if value != "" && !present[key] {
			record.AddAttrs(slog.String(key, value))
		}
	}
	add(LogKeyRunID, RunIDFromContext(ctx))
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			add(LogKeyTraceID, sc.TraceID().String())
			add(LogKeySpanID, sc.SpanID().String())
		}
	}
	return h.Handler.Handle(ctx, record)
}

func (h *correlationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &correlationHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *correlationHandler) WithGroup(name string) slog.Handler {
	return &correlationHandler{Handler: h.Handler.WithGroup(name)}
}

func existingKeys(record slog.Record) map[string]bool {
	keys := make(map[string]bool, record.NumAttrs())
	record.Attrs(func(attr slog.Attr) bool {
		keys[attr.Key] = true
		return true
	})
	return keys
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
