package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestConfigureReportLevelIsInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("report", "text", "discard", 0); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if got := log.GetLevel().String(); got != "info" {
		t.Fatalf("level = %s, want info", got)
	}
	if !IsReportLevel(" Report ") {
		t.Fatalf("expected report level to be recognised")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "app.log")
	log := Logger()
	if err := log.Configure("info", "json", path, 0); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	log.WithComponent("file").Info("hello file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("log file missing message: %s", data)
	}
}

func TestJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)
	log.WithComponent("market").Info("fetched")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not json: %v (%s)", err, buf.String())
	}
	for _, key := range []string{"timestamp", "level", "message", "component"} {
		if _, ok := record[key]; !ok {
			t.Errorf("missing key %q in %v", key, record)
		}
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestReportFieldsCountWarnings(t *testing.T) {
	log := Logger()
	log.SetOutput(&bytes.Buffer{})
	log.WithComponent("report_test").Warn("careful")
	IncrementQuery()
	IncrementUpstream(true)
	IncrementCacheLookup(true)

	fields := reportFields(context.Background())
	warnCounts, ok := fields["warns"].(map[string]int64)
	if !ok || warnCounts["report_test"] < 1 {
		t.Fatalf("warning not counted: %v", fields["warns"])
	}
	if fields["upstream_errors"].(int64) < 1 {
		t.Fatalf("upstream error not counted: %v", fields)
	}
	if fields["queries"].(int64) < 1 || fields["cache_hits"].(int64) < 1 {
		t.Fatalf("counters not updated: %v", fields)
	}
}
