package otel

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = secret ,broken,=skip, tenant=acre,")
	if len(got) != 2 {
		t.Fatalf("expected two headers, got %v", got)
	}
	if got["api-key"] != "secret" || got["tenant"] != "acre" {
		t.Fatalf("unexpected headers %v", got)
	}
	if len(ParseHeaders("")) != 0 {
		t.Fatalf("empty input must yield no headers")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvEndpoint, " collector:4318 ")
	t.Setenv(EnvHeaders, "authorization=Bearer x")
	t.Setenv(EnvInsecure, "false")

	cfg := ConfigFromEnv("vaultd", "test")
	if cfg.ServiceName != "vaultd" || cfg.Environment != "test" {
		t.Fatalf("unexpected identity %+v", cfg)
	}
	if cfg.Endpoint != "collector:4318" {
		t.Fatalf("unexpected endpoint %q", cfg.Endpoint)
	}
	if cfg.Insecure {
		t.Fatalf("insecure should follow %s", EnvInsecure)
	}
	if cfg.Headers["authorization"] != "Bearer x" {
		t.Fatalf("unexpected headers %v", cfg.Headers)
	}
	if !cfg.Traces || !cfg.Metrics {
		t.Fatalf("traces and metrics should be enabled")
	}
}

func TestConfigFromEnvDefaultsInsecure(t *testing.T) {
	t.Setenv(EnvInsecure, "")
	if !ConfigFromEnv("vaultd", "").Insecure {
		t.Fatalf("insecure transport should be the default")
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing service name to fail")
	}
}

func TestInitWithoutExportersInstallsPropagator(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "vaultd"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
