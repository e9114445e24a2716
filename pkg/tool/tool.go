// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package tool defines the narrow tool contract agents consume and the two shapes tools come in.
package tool

import (
	"context"
	"fmt"
	"log/slog"
)

// Kind tags the shape a Tool was built from.
type Kind string

const (
	// KindRunner is an object exposing Run; its errors pass through.
	KindRunner Kind = "runner"
	// KindFunc is a bare callable; its errors and panics become empty output.
	KindFunc Kind = "func"
)

// Tool produces text from a file path or from prior text.
type Tool interface {
	Name() string
	Produce(ctx context.Context, input string) (string, error)
}

// Runner is an object-shaped tool.
type Runner interface {
	Run(input string) (string, error)
}

// ContextRunner is a Runner that honours cancellation. FromRunner prefers RunContext when present.
type ContextRunner interface {
	RunContext(ctx context.Context, input string) (string, error)
}

// Func is a callable-shaped tool.
type Func func(input string) (string, error)

// Kinded is implemented by tools that know which shape they were built from.
type Kinded interface {
	Kind() Kind
}

type runnerTool struct {
	name   string
	runner Runner
}

// FromRunner wraps an object-shaped tool. Errors from Run are returned unchanged.
func FromRunner(name string, r Runner) Tool {
	return &runnerTool{name: name, runner: r}
}

func (t *runnerTool) Name() string { return t.name }
func (t *runnerTool) Kind() Kind   { return KindRunner }

func (t *runnerTool) Produce(ctx context.Context, input string) (string, error) {
	if t.runner == nil {
		return "", nil
	}
	if cr, ok := t.runner.(ContextRunner); ok {
		return cr.RunContext(ctx, input)
	}
	return t.runner.Run(input)
}

type funcTool struct {
	name string
	fn   Func
}

// FromFunc wraps a bare callable.
//
// Any error or panic raised by fn is swallowed and reported as empty output, so a broken
// extraction degrades to "no content" instead of failing the stage.
func FromFunc(name string, fn Func) Tool {
	return &funcTool{name: name, fn: fn}
}

func (t *funcTool) Name() string { return t.name }
func (t *funcTool) Kind() Kind   { return KindFunc }

func (t *funcTool) Produce(ctx context.Context, input string) (out string, err error) {
	if t.fn == nil {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			slog.DebugContext(ctx, "tool panicked, treating as empty output", "tool", t.name, "panic", fmt.Sprint(r))
			out, err = "", nil
		}
	}()
	text, callErr := t.fn(input)
	if callErr != nil {
		slog.DebugContext(ctx, "tool failed, treating as empty output", "tool", t.name, "error", callErr)
		return "", nil
	}
	return text, nil
}

// KindOf reports the shape of t, or "" when t does not say.
func KindOf(t Tool) Kind {
	if k, ok := t.(Kinded); ok {
		return k.Kind()
	}
	return ""
}

// Names returns the names of tools in order, skipping nil entries.
func Names(tools []Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		if t != nil {
			names = append(names, t.Name())
		}
	}
	return names
}
