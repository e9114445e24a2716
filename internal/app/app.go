// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package app wires together all fincrew components.
// This is the composition root: every collaborator is created and connected here.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/fincrew/pkg/agent"
	"github.com/jllopis/fincrew/pkg/analysis"
	"github.com/jllopis/fincrew/pkg/config"
	"github.com/jllopis/fincrew/pkg/crew"
	"github.com/jllopis/fincrew/pkg/document"
	"github.com/jllopis/fincrew/pkg/errors"
	"github.com/jllopis/fincrew/pkg/llm"
	"github.com/jllopis/fincrew/pkg/resilience"
	"github.com/jllopis/fincrew/pkg/store"
	"github.com/jllopis/fincrew/pkg/telemetry"
)

// Version is stamped at build time.
var Version = "dev"

// DefaultQuery is used when a request carries no query.
const DefaultQuery = "Analyze this financial document for investment insights"

// App holds the application state and components.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *telemetry.PipelineMetrics
	pipeline *crew.Pipeline
	crew     *crew.Crew
	store    store.Store
	tel      *telemetry.Telemetry
	closers  []func() error
}

// Option customises construction, mostly for tests.
type Option func(*options)

type options struct {
	logOutput io.Writer
	primary   llm.Provider
	secondary llm.Provider
	analysis  llm.Provider
	store     store.Store
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

// WithProviders replaces the configured providers. Nil arguments keep the configured one.
func WithProviders(primary, secondary, analysis llm.Provider) Option {
	return func(o *options) {
		o.primary = primary
		o.secondary = secondary
		o.analysis = analysis
	}
}

// WithStore replaces the configured store.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// New creates the application with all components wired.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeInvalidInput, "config is required", nil)
	}
	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:    cfg,
		logger: telemetry.NewLogger(o.logOutput, cfg.Log.Level, cfg.Log.Format),
	}

	// 1. Observability first
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      Version,
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		Profile:      cfg.Profile,
		StoreDriver:  cfg.Store.Driver,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.tel = tel
	a.metrics = tel.Metrics

	// 2. Providers
	primary := o.primary
	if primary == nil {
		// A primary that cannot be built is treated like one that fails: advice comes from tier 2.
		if primary, err = newProvider(ctx, cfg.LLM.Primary); err != nil {
			a.logger.Warn("primary provider unavailable", "provider", cfg.LLM.Primary.Provider, "error", err)
			primary = nil
		}
	}
	secondary := o.secondary
	if secondary == nil {
		if secondary, err = newProvider(ctx, cfg.LLM.Secondary); err != nil {
			return nil, fmt.Errorf("create secondary provider: %w", err)
		}
	}
	analysisProvider := o.analysis
	if analysisProvider == nil {
		if analysisProvider, err = newProvider(ctx, cfg.LLM.Analysis); err != nil {
			return nil, fmt.Errorf("create analysis provider: %w", err)
		}
	}

	// 3. Tools and agents
	registry, err := a.buildRegistry(primary, secondary, analysisProvider)
	if err != nil {
		return nil, err
	}

	// 4. Pipeline
	a.pipeline = crew.DefaultPipeline()
	if cfg.Pipeline.File != "" {
		if a.pipeline, err = crew.LoadPipeline(cfg.Pipeline.File); err != nil {
			return nil, fmt.Errorf("load pipeline: %w", err)
		}
	}
	if a.crew, err = registry.Build(a.pipeline, crew.WithLogger(a.logger), crew.WithMetrics(a.metrics)); err != nil {
		return nil, fmt.Errorf("build crew: %w", err)
	}

	// 5. Persistence
	a.store = o.store
	if a.store == nil {
		if a.store, err = a.openStore(); err != nil {
			return nil, err
		}
	}

	a.logger.Info("fincrew ready",
		"pipeline", a.pipeline.Name,
		"stages", len(a.pipeline.Stages),
		"primary", cfg.LLM.Primary.Provider,
		"secondary", cfg.LLM.Secondary.Provider,
		"store", cfg.Store.Driver,
	)
	return a, nil
}

func (a *App) buildRegistry(primary, secondary, analysisProvider llm.Provider) (*crew.Registry, error) {
	investment, err := analysis.New(analysis.KindInvestment, analysisProvider,
		analysis.WithModel(a.cfg.LLM.Analysis.Model), analysis.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	risk, err := analysis.New(analysis.KindRisk, analysisProvider,
		analysis.WithModel(a.cfg.LLM.Analysis.Model), analysis.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}

	secondaryCfg := resilience.DefaultSecondaryConfig()
	secondaryCfg.Model = a.cfg.LLM.Secondary.Model
	generator := resilience.NewFallbackGenerator(primary, secondary,
		resilience.WithPrimaryModel(a.cfg.LLM.Primary.Model),
		resilience.WithSecondaryConfig(secondaryCfg),
		resilience.WithLogger(a.logger),
		resilience.WithMetrics(a.metrics),
	)

	analyst, err := agent.NewAnalyst(investment, agent.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	advisor, err := agent.NewAdvisor(generator, agent.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	assessor, err := agent.NewRiskAssessor(risk, agent.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}

	registry := crew.NewRegistry()
	for name, ag := range map[string]agent.Agent{
		crew.AgentFinancialAnalyst:  analyst,
		crew.AgentInvestmentAdvisor: advisor,
		crew.AgentRiskAssessor:      assessor,
	} {
		if err := registry.RegisterAgent(name, ag); err != nil {
			return nil, err
		}
	}
	if err := registry.RegisterTool(document.NewExtractor().Tool()); err != nil {
		return nil, err
	}
	if err := registry.RegisterTool(investment.Tool()); err != nil {
		return nil, err
	}
	if err := registry.RegisterTool(risk.Tool()); err != nil {
		return nil, err
	}
	return registry, nil
}

func (a *App) openStore() (store.Store, error) {
	switch a.cfg.Store.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		s, err := store.OpenSQLite(a.cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", a.cfg.Store.Driver)
	}
}

// AnalyzeRequest describes one document analysis.
type AnalyzeRequest struct {
	Username string
	Query    string
	// SourcePath is copied into the data directory before the pipeline runs.
	SourcePath string
}

// Analyze stores a copy of the document, runs the pipeline and persists the result.
func (a *App) Analyze(ctx context.Context, req AnalyzeRequest) (store.Record, error) {
	if strings.TrimSpace(req.Username) == "" {
		return store.Record{}, errors.New(errors.CodeInvalidInput, "username is required", nil)
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = DefaultQuery
	}

	filePath, err := copyDocument(req.SourcePath, a.cfg.DataDir)
	if err != nil {
		return store.Record{}, err
	}

	start := time.Now()
	results, err := a.crew.Kickoff(ctx, agent.Payload{
		agent.KeyQuery:    query,
		agent.KeyFilePath: filePath,
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "analysis failed", "file_path", filePath, "error", err)
		return store.Record{}, fmt.Errorf("process financial document: %w", err)
	}

	rec := store.Record{
		Username: req.Username,
		Query:    query,
		FilePath: filePath,
		Analysis: crew.Analysis(a.crew.Tasks(), results),
	}
	if rec.ID, err = a.store.Insert(ctx, rec); err != nil {
		return store.Record{}, fmt.Errorf("store analysis: %w", err)
	}
	a.logger.InfoContext(ctx, "analysis stored",
		"id", rec.ID,
		"username", rec.Username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return a.store.Get(ctx, rec.ID)
}

// History returns the user's analyses, newest first.
func (a *App) History(ctx context.Context, username string) ([]store.Record, error) {
	return a.store.ListByUsername(ctx, username)
}

// Result returns one stored analysis. A record owned by another user is reported as not found.
func (a *App) Result(ctx context.Context, username, id string) (store.Record, error) {
	rec, err := a.store.Get(ctx, id)
	if err != nil {
		return store.Record{}, err
	}
	if rec.Username != username {
		return store.Record{}, errors.New(errors.CodeNotFound, "analysis not found", nil).
			WithContext("id", id)
	}
	return rec, nil
}

// Pipeline returns the active pipeline definition.
func (a *App) Pipeline() *crew.Pipeline {
	return a.pipeline
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Close releases the store and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.tel.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close app: %v", errs)
	}
	return nil
}

// copyDocument copies src into dataDir as financial_document_<uuid><ext>.
// Anything other than .txt or .md is stored with a .pdf extension.
func copyDocument(src, dataDir string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", errors.New(errors.CodeInvalidInput, "document path is required", nil)
	}
	in, err := os.Open(src)
	if err != nil {
		return "", errors.New(errors.CodeInvalidInput, "open document", err).WithContext("path", src)
	}
	defer in.Close()

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", errors.New(errors.CodeInternal, "create data directory", err)
	}
	ext := strings.ToLower(filepath.Ext(src))
	if ext != ".txt" && ext != ".md" {
		ext = ".pdf"
	}
	dst := filepath.Join(dataDir, "financial_document_"+uuid.NewString()+ext)
	out, err := os.Create(dst)
	if err != nil {
		return "", errors.New(errors.CodeInternal, "create document copy", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", errors.New(errors.CodeInternal, "copy document", err)
	}
	if err := out.Close(); err != nil {
		return "", errors.New(errors.CodeInternal, "copy document", err)
	}
	return dst, nil
}
