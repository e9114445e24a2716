package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	ferrors "github.com/jllopis/fincrew/pkg/errors"
)

func TestSetupStdoutExportsPipelineTelemetry(t *testing.T) {
	var out bytes.Buffer
	tel, err := Setup(context.Background(), Config{
		Version:     "v0.0.1",
		Exporter:    ExporterStdout,
		Profile:     "dev",
		StoreDriver: "sqlite",
		Output:      &out,
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if tel.Metrics == nil {
		t.Fatalf("expected pipeline metrics to be registered")
	}

	ctx, span := otel.Tracer("fincrew/crew").Start(context.Background(), "Crew.Stage")
	tel.Metrics.RecordStage(ctx, "financial_analyst", "ok", 3)
	span.End()

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	for _, want := range []string{"Crew.Stage", "fincrew.stage.runs", "deployment.environment", "dev", AttrStoreDriver, "fincrew"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in exported telemetry", want)
		}
	}
}

func TestSetupNone(t *testing.T) {
	tel, err := Setup(context.Background(), Config{Exporter: ExporterNone})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if tel.Metrics == nil {
		t.Fatalf("metrics must be usable without exporters")
	}
	tel.Metrics.RecordKickoff(context.Background(), "ok")
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	var nilTel *Telemetry
	if err := nilTel.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil Shutdown: %v", err)
	}
}

func TestSetupErrors(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Exporter: ExporterOTLP}); err == nil {
		t.Fatalf("expected error for otlp without endpoint")
	}
	if _, err := Setup(context.Background(), Config{Exporter: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}

func TestResourceAttributes(t *testing.T) {
	if got := len(resourceAttributes(Config{ServiceName: "fincrew", Version: "dev"})); got != 2 {
		t.Fatalf("expected service name and version only, got %d", got)
	}
	if got := len(resourceAttributes(Config{ServiceName: "fincrew", Profile: "prod", StoreDriver: "memory"})); got != 4 {
		t.Fatalf("expected 4 attributes, got %d", got)
	}
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	ctx := context.Background()
	var m *PipelineMetrics
	m.RecordStage(ctx, "stage", "ok", 1)
	m.RecordKickoff(ctx, "ok")
	m.RecordFallback(ctx, "gemini")
	m.RecordError(ctx, errors.New("x"), "crew")
	m.RecordRecovery(ctx, ferrors.CodeLLMError)
}

func TestPipelineMetricsRecord(t *testing.T) {
	ctx := context.Background()
	m, err := NewPipelineMetrics(nil)
	if err != nil {
		t.Fatalf("NewPipelineMetrics: %v", err)
	}
	m.RecordStage(ctx, "analysis", "ok", 12.5)
	m.RecordStage(ctx, "analysis", "sentinel", 0.1)
	m.RecordKickoff(ctx, "error")
	m.RecordFallback(ctx, "gemini")
	m.RecordError(ctx, ferrors.New(ferrors.CodeLLMError, "down", nil), "fallback_generator")
	m.RecordError(ctx, errors.New("generic"), "crew")
	m.RecordError(ctx, nil, "crew")
	m.RecordRecovery(ctx, ferrors.CodeLLMError)
}

func TestNewLoggerJSONWithTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.DebugContext(ctx, "stage started", "stage", "analysis")
	span.End()

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "stage started" {
		t.Fatalf("unexpected msg %v", record["msg"])
	}
	if record["trace_id"] == nil || record["span_id"] == nil {
		t.Fatalf("expected trace ids in record: %v", record)
	}
}

func TestNewLoggerRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "json")

	ctx := ContextWithRunID(context.Background(), "run-42")
	if RunIDFromContext(ctx) != "run-42" {
		t.Fatalf("run id not stored in context")
	}
	logger.InfoContext(ctx, "kickoff started")
	logger.InfoContext(ctx, "explicit", LogKeyRunID, "override")
	logger.Info("no context")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	want := []any{"run-42", "override", nil}
	for i, line := range lines {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if record[LogKeyRunID] != want[i] {
			t.Errorf("line %d: expected run_id %v, got %v", i, want[i], record[LogKeyRunID])
		}
	}
	if strings.Count(lines[1], LogKeyRunID) != 1 {
		t.Errorf("explicit run_id must not be duplicated: %s", lines[1])
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn line: %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("abcdefghij", 4); got != "abcd..." {
		t.Fatalf("unexpected %q", got)
	}
}

func TestStageAttributes(t *testing.T) {
	attrs := StageAttributes(1, strings.Repeat("x", 300), "advisor", 2, true)
	found := map[attribute.Key]attribute.Value{}
	for _, kv := range attrs {
		found[kv.Key] = kv.Value
	}
	if found[AttrStageIndex].AsInt64() != 1 {
		t.Fatalf("missing stage index")
	}
	if len(found[AttrStageName].AsString()) != maxAttrLen+3 {
		t.Fatalf("expected truncated description")
	}
	if found[AttrStageAgent].AsString() != "advisor" {
		t.Fatalf("missing agent")
	}
	if !found[AttrStageAsync].AsBool() {
		t.Fatalf("missing async flag")
	}
}

func TestLLMUsageAttributes(t *testing.T) {
	if len(LLMUsageAttributes("", "", 0, 0)) != 0 {
		t.Fatalf("expected no attributes for empty usage")
	}
	if got := len(LLMUsageAttributes("gemini", "gemini-1.5-flash", 10, 5)); got != 4 {
		t.Fatalf("expected 4 attributes, got %d", got)
	}
}
