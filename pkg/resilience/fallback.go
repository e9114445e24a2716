// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/llm"
	"github.com/jllopis/fincrew/pkg/telemetry"
)

// FallbackFunc produces a value after the primary operation failed with primaryErr.
type FallbackFunc[T any] func(ctx context.Context, primaryErr error) (T, error)

// WithFallback executes fn, and on error hands the failure to fallback. Nothing is retried.
func WithFallback[T any](ctx context.Context, fn func() (T, error), fallback FallbackFunc[T]) (T, error) {
	value, err := fn()
	if err == nil {
		return value, nil
	}
	return fallback(ctx, err)
}

// SecondaryConfig is the fixed request shape used for the second tier.
type SecondaryConfig struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Stream      bool
}

// DefaultSecondaryConfig bounds output length and keeps sampling conservative.
func DefaultSecondaryConfig() SecondaryConfig {
	return SecondaryConfig{
		Temperature: 0.5,
		TopP:        1,
		MaxTokens:   1024,
		Stream:      false,
	}
}

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FallbackGenerator tries Primary once and, only if it fails, Secondary once.
type FallbackGenerator struct {
	primary      llm.Provider
	secondary    llm.Provider
	primaryModel string
	secondaryCfg SecondaryConfig
	logger       *slog.Logger
	metrics      *telemetry.PipelineMetrics
	tracer       trace.Tracer
}

// FallbackOption configures a FallbackGenerator.
type FallbackOption func(*FallbackGenerator)

// WithPrimaryModel overrides the model requested from the primary provider.
func WithPrimaryModel(model string) FallbackOption {
	return func(g *FallbackGenerator) {
		g.primaryModel = model
	}
}

// WithSecondaryConfig replaces the second-tier request settings.
func WithSecondaryConfig(cfg SecondaryConfig) FallbackOption {
	return func(g *FallbackGenerator) {
		g.secondaryCfg = cfg
	}
}

// WithLogger sets the logger used to report tier switches.
func WithLogger(logger *slog.Logger) FallbackOption {
	return func(g *FallbackGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics records fallbacks and provider failures.
func WithMetrics(m *telemetry.PipelineMetrics) FallbackOption {
	return func(g *FallbackGenerator) {
		g.metrics = m
	}
}

// NewFallbackGenerator builds a two-tier generator.
func NewFallbackGenerator(primary, secondary llm.Provider, opts ...FallbackOption) *FallbackGenerator {
	g := &FallbackGenerator{
		primary:      primary,
		secondary:    secondary,
		secondaryCfg: DefaultSecondaryConfig(),
		logger:       slog.Default(),
		tracer:       otel.Tracer("fincrew/resilience"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate implements Generator.
//
// Tier 1 runs the primary provider through Offload. Any error from it (including a nil
// provider) moves to tier 2, which sends the prompt to the secondary provider with the fixed
// SecondaryConfig. A tier 2 failure is returned as a non-recoverable CodeLLMError.
// When ctx has ended, tier 2 is skipped and the tier 1 error (CodeContextLost) is returned as is.
func (g *FallbackGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := g.tracer.Start(ctx, "FallbackGenerator.Generate")
	defer span.End()

	text, err := WithFallback(ctx, func() (string, error) {
		return g.generatePrimary(ctx, prompt)
	}, func(ctx context.Context, primaryErr error) (string, error) {
		if ctx.Err() != nil || errors.IsCode(primaryErr, errors.CodeContextLost) {
			return "", primaryErr
		}
		return g.generateSecondary(ctx, prompt, primaryErr)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}

func (g *FallbackGenerator) generatePrimary(ctx context.Context, prompt string) (string, error) {
	if g.primary == nil {
		return "", errors.New(errors.CodeLLMError, "primary provider not configured", nil)
	}
	start := time.Now()
	req := llm.UserPrompt(prompt)
	req.Model = g.primaryModel
	text, err := Offload(ctx, func() (string, error) {
		return llm.Complete(ctx, g.primary, req)
	})
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(telemetry.AttrLLMProvider, llm.NameOf(g.primary)),
		attribute.Float64(telemetry.AttrLLMDurationMs, float64(time.Since(start).Milliseconds())),
	)
	return text, err
}

func (g *FallbackGenerator) generateSecondary(ctx context.Context, prompt string, primaryErr error) (string, error) {
	primaryName := "none"
	if g.primary != nil {
		primaryName = llm.NameOf(g.primary)
	}
	g.logger.WarnContext(ctx, "primary provider failed, falling back",
		"primary", primaryName,
		"error", primaryErr,
	)
	g.metrics.RecordFallback(ctx, primaryName)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool(telemetry.AttrLLMFallback, true))

	if g.secondary == nil {
		return "", errors.New(errors.CodeLLMError, "secondary provider not configured", primaryErr).
			WithRecoverable(false)
	}

	req := llm.UserPrompt(prompt)
	req.Model = g.secondaryCfg.Model
	req.Temperature = g.secondaryCfg.Temperature
	req.TopP = g.secondaryCfg.TopP
	req.MaxTokens = g.secondaryCfg.MaxTokens
	req.Stream = g.secondaryCfg.Stream

	text, err := llm.Complete(ctx, g.secondary, req)
	if err != nil {
		wrapped := errors.New(errors.CodeLLMError, "secondary provider failed", err).
			WithContext("primary_error", primaryErr.Error()).
			WithAttribute("provider", llm.NameOf(g.secondary)).
			WithRecoverable(false)
		g.metrics.RecordError(ctx, wrapped, "fallback_generator")
		return "", wrapped
	}
	g.metrics.RecordRecovery(ctx, errors.CodeLLMError)
	return text, nil
}

// Ensure FallbackGenerator implements Generator.
var _ Generator = (*FallbackGenerator)(nil)
