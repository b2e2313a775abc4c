package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithOptions("vaultd", "test", Options{Output: &buf})
	logger.Info("hello", MaskField("apiKey", "secret"), MaskField("component", "keeper"))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for _, key := range []string{"timestamp", "severity", "message", "service", "env"} {
		if _, ok := line[key]; !ok {
			t.Fatalf("missing key %q in %v", key, line)
		}
	}
	if line["severity"] != "INFO" || line["service"] != "vaultd" {
		t.Fatalf("unexpected attributes: %v", line)
	}
	if line["apiKey"] != RedactedValue {
		t.Fatalf("apiKey should be redacted, got %v", line["apiKey"])
	}
	if line["component"] != "keeper" {
		t.Fatalf("allowlisted key should pass through, got %v", line["component"])
	}
}

func TestSetupWritesRotatingFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "vaultd.log")
	logger := SetupWithOptions("vaultd", "", Options{Output: &buf, File: path, MaxSizeMB: 1})
	logger.Warn("persisted")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "persisted") {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestMaskPartial(t *testing.T) {
	attr := MaskPartial("client", "198.51.100.77", 3)
	if got := attr.Value.String(); got != "198....77" {
		t.Fatalf("unexpected partial mask %q", got)
	}
	if got := MaskPartial("client", "short", 3).Value.String(); got != RedactedValue {
		t.Fatalf("short values should be fully redacted, got %q", got)
	}
	if got := MaskPartial("status", "200", 3).Value.String(); got != "200" {
		t.Fatalf("allowlisted short values pass through, got %q", got)
	}
}
