package telemetry

import (
	"context"
	"os"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestOTLPSmoke(t *testing.T) {
	if os.Getenv("FINCREW_OTLP_SMOKE_TEST") != "1" {
		t.Skip("set FINCREW_OTLP_SMOKE_TEST=1 to run")
	}

	endpoint := os.Getenv("FINCREW_TELEMETRY_OTLP_ENDPOINT")
	if endpoint == "" {
		t.Skip("set FINCREW_TELEMETRY_OTLP_ENDPOINT for OTLP smoke test")
	}

	cfg := Config{
		ServiceName:  "telemetry-smoke-test",
		Version:      "dev",
		Exporter:     ExporterOTLP,
		OTLPEndpoint: endpoint,
		OTLPInsecure: os.Getenv("FINCREW_TELEMETRY_OTLP_INSECURE") == "true",
	}

	tel, err := Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to init telemetry: %v", err)
	}

	ctx, span := otel.Tracer("fincrew/telemetry-smoke").Start(context.Background(), "smoke.span")
	span.SetAttributes(attribute.String("smoke.test", "otlp"))
	span.End()

	tel.Metrics.RecordStage(ctx, "smoke", "ok", 1)

	time.Sleep(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tel.Shutdown(ctx); err != nil {
		t.Fatalf("telemetry shutdown failed: %v", err)
	}
}
