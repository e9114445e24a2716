// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package crew

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jllopis/fincrew/pkg/agent"
	"github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/tool"
)

// Registry resolves agent and tool names used in pipeline definitions.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]agent.Agent
	tools  map[string]tool.Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]agent.Agent),
		tools:  make(map[string]tool.Tool),
	}
}

// RegisterAgent adds a under name. Registering the same name twice is an error.
func (r *Registry) RegisterAgent(name string, a agent.Agent) error {
	if name == "" || a == nil {
		return errors.New(errors.CodeInvalidInput, "agent name and instance are required", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[name]; exists {
		return errors.New(errors.CodeInvalidInput, fmt.Sprintf("agent %q already registered", name), nil)
	}
	r.agents[name] = a
	return nil
}

// RegisterTool adds t under its name.
func (r *Registry) RegisterTool(t tool.Tool) error {
	if t == nil || t.Name() == "" {
		return errors.New(errors.CodeInvalidInput, "tool with a name is required", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return errors.New(errors.CodeInvalidInput, fmt.Sprintf("tool %q already registered", t.Name()), nil)
	}
	r.tools[t.Name()] = t
	return nil
}

// AgentNames returns registered agent names, sorted.
func (r *Registry) AgentNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tasks resolves every stage of p into a Task.
func (r *Registry) Tasks(p *Pipeline) ([]Task, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "invalid pipeline", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]Task, 0, len(p.Stages))
	for i, s := range p.Stages {
		a, ok := r.agents[s.Agent]
		if !ok {
			return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("stage %d: unknown agent %q", i, s.Agent), nil)
		}
		tools := make([]tool.Tool, 0, len(s.Tools))
		for _, name := range s.Tools {
			t, ok := r.tools[name]
			if !ok {
				return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("stage %d: unknown tool %q", i, name), nil)
			}
			tools = append(tools, t)
		}
		tasks = append(tasks, Task{
			Description:    s.Description,
			ExpectedOutput: s.ExpectedOutput,
			Agent:          a,
			Tools:          tools,
			AsyncExecution: s.AsyncExecution,
			OutputKey:      s.OutputKey,
		})
	}
	return tasks, nil
}

// Build resolves p and returns a ready crew.
func (r *Registry) Build(p *Pipeline, opts ...Option) (*Crew, error) {
	tasks, err := r.Tasks(p)
	if err != nil {
		return nil, err
	}
	return New(tasks, opts...)
}
