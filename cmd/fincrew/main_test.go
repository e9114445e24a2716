// SPDX-License-Identifier: Apache-2.0
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jllopis/fincrew/pkg/crew"
	"github.com/jllopis/fincrew/pkg/store"
)

func offlineArgs(t *testing.T) []string {
	t.Helper()
	return []string{
		"--set", "store.driver=sqlite",
		"--set", "store.dsn=file:" + filepath.Join(t.TempDir(), "fincrew.db"),
		"--set", "telemetry.exporter=none",
		"--set", "log.level=error",
		"--set", "llm.primary.provider=mock",
		"--set", "llm.secondary.provider=mock",
		"--set", "llm.analysis.provider=mock",
		"--set", "data_dir=" + t.TempDir(),
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "fincrew version") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPipelineJSON(t *testing.T) {
	out, err := run(t, append(offlineArgs(t), "--json", "pipeline")...)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	var p crew.Pipeline
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(p.Stages) != 3 || p.Stages[1].Agent != crew.AgentInvestmentAdvisor {
		t.Fatalf("unexpected pipeline %+v", p)
	}
}

func TestAnalyzeThenHistory(t *testing.T) {
	args := offlineArgs(t)
	doc := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(doc, []byte("Revenue up 10%"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := run(t, append(args, "--json", "analyze", "--file", doc, "--user", "alice")...)
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, out)
	}
	var rec store.Record
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if rec.Username != "alice" || rec.Analysis.FinancialAnalysis == "" {
		t.Fatalf("unexpected record %+v", rec)
	}

	out, err = run(t, append(args, "--json", "history", "--user", "alice")...)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var recs []store.Record
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(recs) != 1 || recs[0].ID != rec.ID {
		t.Fatalf("unexpected history %+v", recs)
	}

	out, err = run(t, append(args, "history", "--user", "alice", "--id", rec.ID)...)
	if err != nil {
		t.Fatalf("history --id: %v", err)
	}
	if !strings.Contains(out, "Risk assessment") {
		t.Fatalf("expected full record output, got %q", out)
	}

	if _, err := run(t, append(args, "history", "--user", "bob", "--id", rec.ID)...); err == nil {
		t.Fatalf("expected another user's analysis to be hidden")
	}

	out, err = run(t, append(args, "--json", "history", "--user", "bob")...)
	if err != nil {
		t.Fatalf("history bob: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected an empty JSON list, got %q", out)
	}
}

func TestAnalyzeRequiresFlags(t *testing.T) {
	if _, err := run(t, append(offlineArgs(t), "analyze", "--user", "alice")...); err == nil {
		t.Fatalf("expected error without --file")
	}
}
