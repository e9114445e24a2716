// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/jllopis/fincrew/pkg/llm"
)

// ScenarioProvider is a scripted llm.Provider for pipeline scenarios.
// Prompt rules are consulted first, then the queue, then the default error.
type ScenarioProvider struct {
	mu           sync.Mutex
	rules        []promptRule
	responses    []ScriptedResponse
	currentIndex int
	requests     []llm.ChatRequest
	defaultError error
}

// ScriptedResponse defines a response for the scenario provider.
type ScriptedResponse struct {
	Content string
	Error   error
	Usage   llm.Usage
}

type promptRule struct {
	matcher StringMatcher
	resp    ScriptedResponse
}

// NewScenarioProvider creates a new scenario provider.
func NewScenarioProvider() *ScenarioProvider {
	return &ScenarioProvider{}
}

// Name reports the backend name used in logs and spans.
func (p *ScenarioProvider) Name() string { return "scenario" }

// When answers every request whose last message matches with content.
func (p *ScenarioProvider) When(matcher StringMatcher, content string) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = append(p.rules, promptRule{matcher: matcher, resp: ScriptedResponse{Content: content}})
	return p
}

// WhenFail fails every request whose last message matches.
func (p *ScenarioProvider) WhenFail(matcher StringMatcher, err error) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = append(p.rules, promptRule{matcher: matcher, resp: ScriptedResponse{Error: err}})
	return p
}

// AddResponse queues a response to be returned.
func (p *ScenarioProvider) AddResponse(content string) *ScenarioProvider {
	return p.AddScriptedResponse(ScriptedResponse{Content: content})
}

// AddErrorResponse queues an error response.
func (p *ScenarioProvider) AddErrorResponse(err error) *ScenarioProvider {
	return p.AddScriptedResponse(ScriptedResponse{Error: err})
}

// AddScriptedResponse adds a fully configured response.
func (p *ScenarioProvider) AddScriptedResponse(resp ScriptedResponse) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, resp)
	return p
}

// WithDefaultError sets the error to return when nothing else applies.
func (p *ScenarioProvider) WithDefaultError(err error) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaultError = err
	return p
}

// Chat implements llm.Provider.
func (p *ScenarioProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := lastMessage(req)
	for _, r := range p.rules {
		if r.matcher.Match(prompt) {
			return respond(r.resp)
		}
	}

	if p.currentIndex >= len(p.responses) {
		if p.defaultError != nil {
			return nil, p.defaultError
		}
		return nil, fmt.Errorf("no more scripted responses (call %d)", len(p.requests))
	}
	resp := p.responses[p.currentIndex]
	p.currentIndex++
	return respond(resp)
}

func respond(r ScriptedResponse) (*llm.ChatResponse, error) {
	if r.Error != nil {
		return nil, r.Error
	}
	return &llm.ChatResponse{Content: r.Content, Usage: r.Usage}, nil
}

func lastMessage(req llm.ChatRequest) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[len(req.Messages)-1].Content
}

// Requests returns all captured requests.
func (p *ScenarioProvider) Requests() []llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]llm.ChatRequest, len(p.requests))
	copy(result, p.requests)
	return result
}

// LastRequest returns the most recent request.
func (p *ScenarioProvider) LastRequest() *llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	req := p.requests[len(p.requests)-1]
	return &req
}

// CallCount returns the number of Chat calls made.
func (p *ScenarioProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Reset rewinds the queue and forgets captured requests. Rules are kept.
func (p *ScenarioProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentIndex = 0
	p.requests = p.requests[:0]
}
