// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm defines the provider contract used by analyzers and the fallback generator.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single unit of communication.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest encapsulates the input for the LLM.
// Zero values mean "provider default".
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

// ChatResponse encapsulates the output from the LLM.
type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider defines the interface for interacting with LLM backends.
type Provider interface {
	// Chat sends a chat request to the LLM and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// UserPrompt builds a request holding a single user message.
func UserPrompt(prompt string) ChatRequest {
	return ChatRequest{Messages: []Message{{Role: RoleUser, Content: prompt}}}
}

// Complete sends req and returns the response text.
// A nil response is reported as an error so callers never see a silent empty answer.
func Complete(ctx context.Context, p Provider, req ChatRequest) (string, error) {
	if p == nil {
		return "", fmt.Errorf("llm provider is nil")
	}
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("llm provider returned no response")
	}
	return resp.Content, nil
}

// Named is implemented by providers that can report a short backend name for logs and spans.
type Named interface {
	Name() string
}

// NameOf returns the provider's backend name, or its Go type when it does not implement Named.
func NameOf(p Provider) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	name := fmt.Sprintf("%T", p)
	return strings.TrimPrefix(name, "*")
}
