package otelx

import (
	"context"
	"testing"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	t.Setenv("DEPLOY_ENV", "staging")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")

	cfg := ConfigFromEnv("notification-service")
	if !cfg.Enabled || cfg.SampleRatio != 0.25 || cfg.Environment != "staging" || cfg.Insecure {
		t.Fatalf("unexpected config %+v", cfg)
	}

	found := map[string]string{}
	for _, kv := range cfg.attributes() {
		found[string(kv.Key)] = kv.Value.Emit()
	}
	if found["service.name"] != "notification-service" || found["deployment.environment"] != "staging" {
		t.Fatalf("unexpected resource attributes %v", found)
	}
}

func TestParseRatioFallsBackToAlways(t *testing.T) {
	for raw, want := range map[string]float64{"0": 0, "0.5": 0.5, "2": 1, "-1": 1, "half": 1, "": 1} {
		if got := parseRatio(raw); got != want {
			t.Fatalf("parseRatio(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "studio-service"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
