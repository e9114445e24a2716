// SPDX-License-Identifier: Apache-2.0
package crew

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	ferrors "github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/tool"
)

const pipelineYAML = `
name: quick
stages:
  - description: Read and analyse
    expected_output: A report
    agent: financial_analyst
    tools: [read_financial_document]
    output_key: financial_analysis
  - description: Advise
    agent: investment_advisor
    async_execution: true
    output_key: investment_advising
`

func TestParseYAML(t *testing.T) {
	p, err := ParseYAML([]byte(pipelineYAML))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if p.Name != "quick" || len(p.Stages) != 2 {
		t.Fatalf("unexpected pipeline %+v", p)
	}
	if !p.Stages[1].AsyncExecution || p.Stages[0].Tools[0] != "read_financial_document" {
		t.Fatalf("unexpected stages %+v", p.Stages)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":     "",
		"no stages": "name: x\n",
		"no agent":  "stages:\n  - description: a\n",
		"duplicate": "stages:\n  - description: a\n    agent: x\n  - description: a\n    agent: y\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseYAML([]byte(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadPipelineJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "p.yaml")
	if err := os.WriteFile(yamlPath, []byte(pipelineYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	jsonPath := filepath.Join(dir, "p.json")
	if err := os.WriteFile(jsonPath, []byte(`{"name":"j","stages":[{"description":"a","agent":"x"}]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if p, err := LoadPipeline(yamlPath); err != nil || p.Name != "quick" {
		t.Fatalf("yaml load: %+v, %v", p, err)
	}
	if p, err := LoadPipeline(jsonPath); err != nil || p.Name != "j" {
		t.Fatalf("json load: %+v, %v", p, err)
	}
	if _, err := LoadPipeline(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestDefaultPipelineRoundTrip(t *testing.T) {
	data, err := MarshalYAML(DefaultPipeline())
	if err != nil {
		t.Fatalf("MarshalYAML: %v", err)
	}
	p, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if len(p.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(p.Stages))
	}
	if !strings.Contains(p.Stages[0].Description, "{file_path}") {
		t.Fatalf("placeholder must stay literal")
	}
}

func TestRegistryUnknownNames(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Tasks(DefaultPipeline()); !ferrors.IsCode(err, ferrors.CodeNotFound) {
		t.Fatalf("expected CodeNotFound for unknown agent, got %v", err)
	}

	_ = reg.RegisterAgent(AgentFinancialAnalyst, &recordingAgent{name: "a"})
	p := &Pipeline{Stages: []StageSpec{{Description: "a", Agent: AgentFinancialAnalyst, Tools: []string{"missing"}}}}
	if _, err := reg.Tasks(p); !ferrors.IsCode(err, ferrors.CodeNotFound) {
		t.Fatalf("expected CodeNotFound for unknown tool, got %v", err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterAgent("a", &recordingAgent{name: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterAgent("a", &recordingAgent{name: "a"}); err == nil {
		t.Fatalf("expected duplicate agent error")
	}
	tl := tool.FromFunc("t", func(string) (string, error) { return "", nil })
	if err := reg.RegisterTool(tl); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	if err := reg.RegisterTool(tl); err == nil {
		t.Fatalf("expected duplicate tool error")
	}
	if names := reg.AgentNames(); len(names) != 1 || names[0] != "a" {
		t.Fatalf("unexpected agent names %v", names)
	}
}

func TestRegistryCarriesStageFields(t *testing.T) {
	reg := NewRegistry()
	_ = reg.RegisterAgent(AgentFinancialAnalyst, &recordingAgent{name: "a"})
	_ = reg.RegisterAgent(AgentInvestmentAdvisor, &recordingAgent{name: "b"})
	_ = reg.RegisterTool(tool.FromFunc(ToolReadDocument, func(string) (string, error) { return "", nil }))

	p, _ := ParseYAML([]byte(pipelineYAML))
	tasks, err := reg.Tasks(p)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if tasks[0].OutputKey != OutputFinancialAnalysis || tasks[0].ExpectedOutput != "A report" || len(tasks[0].Tools) != 1 {
		t.Fatalf("unexpected first task %+v", tasks[0])
	}
	if !tasks[1].AsyncExecution {
		t.Fatalf("async flag must be carried")
	}
}
