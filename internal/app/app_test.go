// SPDX-License-Identifier: Apache-2.0
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jllopis/fincrew/pkg/agent"
	"github.com/jllopis/fincrew/pkg/config"
	ferrors "github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/llm"
	"github.com/jllopis/fincrew/pkg/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadWithOptions(config.Options{Overrides: []string{
		"store.driver=memory",
		"telemetry.exporter=none",
		"llm.primary.provider=mock",
		"llm.secondary.provider=mock",
		"llm.analysis.provider=mock",
		"data_dir=" + t.TempDir(),
	}})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func analysisProvider() *llm.MockProvider {
	return &llm.MockProvider{ChatFunc: func(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		if strings.Contains(req.Messages[0].Content, "risk assessment expert") {
			return &llm.ChatResponse{Content: "Low risk"}, nil
		}
		return &llm.ChatResponse{Content: "Strong buy"}, nil
	}}
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return path
}

func TestAnalyzeEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	st := store.NewMemoryStore()
	a, err := New(context.Background(), cfg,
		WithLogOutput(io.Discard),
		WithStore(st),
		WithProviders(
			&llm.FailingMockProvider{Err: errors.New("quota exceeded")},
			&llm.MockProvider{Response: "Recommend accumulating"},
			analysisProvider(),
		),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	rec, err := a.Analyze(context.Background(), AnalyzeRequest{
		Username:   "testuser",
		SourcePath: writeDoc(t, "Revenue up 10%"),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if rec.Query != DefaultQuery {
		t.Errorf("expected default query, got %q", rec.Query)
	}
	if rec.Analysis.FinancialAnalysis != "Strong buy" ||
		rec.Analysis.InvestmentAdvising != "Recommend accumulating" ||
		rec.Analysis.RiskAssessment != "Low risk" {
		t.Errorf("unexpected analysis %+v", rec.Analysis)
	}
	if filepath.Dir(rec.FilePath) != cfg.DataDir || !strings.HasPrefix(filepath.Base(rec.FilePath), "financial_document_") {
		t.Errorf("document must be copied into the data dir, got %q", rec.FilePath)
	}
	if _, err := os.Stat(rec.FilePath); err != nil {
		t.Errorf("copied document missing: %v", err)
	}

	history, err := a.History(context.Background(), "testuser")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].ID != rec.ID {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestAnalyzeUnreadableDocument(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg,
		WithLogOutput(io.Discard),
		WithProviders(&llm.MockProvider{Response: "Hold"}, nil, analysisProvider()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	src := filepath.Join(t.TempDir(), "scan.pdf")
	if err := os.WriteFile(src, []byte("not a pdf"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec, err := a.Analyze(context.Background(), AnalyzeRequest{Username: "u", Query: "  Is it a buy?  ", SourcePath: src})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rec.Query != "Is it a buy?" {
		t.Errorf("query must be trimmed, got %q", rec.Query)
	}
	if rec.Analysis.FinancialAnalysis != agent.UnreadableDocument || rec.Analysis.RiskAssessment != agent.UnreadableDocument {
		t.Errorf("expected sentinels, got %+v", rec.Analysis)
	}
	if rec.Analysis.InvestmentAdvising != "Hold" {
		t.Errorf("advisor must still run on the sentinel, got %q", rec.Analysis.InvestmentAdvising)
	}
}

func TestAnalyzeFailsWhenBothTiersFail(t *testing.T) {
	cfg := testConfig(t)
	st := store.NewMemoryStore()
	a, err := New(context.Background(), cfg,
		WithLogOutput(io.Discard),
		WithStore(st),
		WithProviders(&llm.FailingMockProvider{}, &llm.FailingMockProvider{}, analysisProvider()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	if _, err := a.Analyze(context.Background(), AnalyzeRequest{Username: "u", SourcePath: writeDoc(t, "Revenue up 10%")}); err == nil {
		t.Fatalf("expected error")
	}
	if recs, _ := st.ListByUsername(context.Background(), "u"); len(recs) != 0 {
		t.Fatalf("failed runs must not be stored")
	}
}

func TestAnalyzeValidatesRequest(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	if _, err := a.Analyze(context.Background(), AnalyzeRequest{SourcePath: "x"}); err == nil {
		t.Errorf("expected error without username")
	}
	if _, err := a.Analyze(context.Background(), AnalyzeRequest{Username: "u", SourcePath: filepath.Join(t.TempDir(), "missing.pdf")}); err == nil {
		t.Errorf("expected error for missing source")
	}
}

func TestNewWithPipelineFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	doc := `
name: advice-only
stages:
  - description: Advise
    agent: investment_advisor
    output_key: investment_advising
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg.Pipeline.File = path

	a, err := New(context.Background(), cfg, WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())
	if a.Pipeline().Name != "advice-only" {
		t.Fatalf("unexpected pipeline %q", a.Pipeline().Name)
	}

	rec, err := a.Analyze(context.Background(), AnalyzeRequest{Username: "u", SourcePath: writeDoc(t, "x")})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rec.Analysis.InvestmentAdvising != agent.NoPreviousAnalysis {
		t.Errorf("a lone advisor has nothing to advise on, got %q", rec.Analysis.InvestmentAdvising)
	}
	if rec.Analysis.FinancialAnalysis == "" || rec.Analysis.RiskAssessment == "" {
		t.Errorf("missing stages must fall back to placeholders, got %+v", rec.Analysis)
	}
}

func TestSQLiteStoreWiring(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "sqlite"
	cfg.Store.DSN = "file:app_wiring_test?mode=memory&cache=shared"

	a, err := New(context.Background(), cfg, WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.Analyze(context.Background(), AnalyzeRequest{Username: "u", SourcePath: writeDoc(t, "Revenue up 10%")}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestResultChecksOwnership(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg,
		WithLogOutput(io.Discard),
		WithProviders(&llm.MockProvider{Response: "Hold"}, &llm.MockProvider{Response: "Hold"}, analysisProvider()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	rec, err := a.Analyze(context.Background(), AnalyzeRequest{Username: "alice", SourcePath: writeDoc(t, "Revenue up 10%")})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	got, err := a.Result(context.Background(), "alice", rec.ID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("expected record %s, got %s", rec.ID, got.ID)
	}

	if _, err := a.Result(context.Background(), "bob", rec.ID); !ferrors.IsCode(err, ferrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for another user, got %v", err)
	}
	if _, err := a.Result(context.Background(), "alice", "missing"); !ferrors.IsCode(err, ferrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for unknown id, got %v", err)
	}
}
