// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"

	"github.com/jllopis/fincrew/pkg/config"
	"github.com/jllopis/fincrew/pkg/llm"
	"github.com/jllopis/fincrew/providers/anthropic"
	"github.com/jllopis/fincrew/providers/gemini"
	"github.com/jllopis/fincrew/providers/openai"
)

// mockResponse is what the mock provider answers; it keeps offline runs readable.
const mockResponse = "Mock analysis: no provider configured."

func newProvider(ctx context.Context, cfg config.ProviderConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		var opts []gemini.Option
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		return gemini.New(ctx, cfg.ResolveAPIKey(), opts...)
	case "openai":
		opts := []openai.Option{openai.WithAPIKey(cfg.ResolveAPIKey())}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...), nil
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithAPIKey(cfg.ResolveAPIKey())}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(opts...), nil
	case "ollama":
		return llm.NewOllama(cfg.BaseURL, cfg.Model), nil
	case "mock":
		return &llm.MockProvider{Response: mockResponse}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
