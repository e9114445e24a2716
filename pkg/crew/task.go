// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package crew

import (
	"strings"

	"github.com/jllopis/fincrew/pkg/agent"
	"github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/tool"
)

// Task binds a stage description to the agent and tools that perform it.
//
// Tasks are built once at configuration time and never mutated. Description doubles as the
// key of the stage result in the Kickoff output, so it must be unique within a crew.
type Task struct {
	Description    string
	ExpectedOutput string
	Agent          agent.Agent
	Tools          []tool.Tool
	// AsyncExecution is carried for pipeline definitions but not read by Kickoff;
	// stages always run in order.
	AsyncExecution bool
	// OutputKey names the field a finished stage is filed under (see Analysis).
	OutputKey string
}

func (t Task) validate(index int) error {
	if strings.TrimSpace(t.Description) == "" {
		return errors.New(errors.CodeInvalidInput, "task description is required", nil).
			WithContext("index", index)
	}
	if t.Agent == nil {
		return errors.New(errors.CodeInvalidInput, "task agent is required", nil).
			WithContext("index", index).
			WithContext("description", t.Description)
	}
	return nil
}

func (t Task) agentName() string {
	if t.Agent == nil {
		return ""
	}
	return t.Agent.Name()
}
