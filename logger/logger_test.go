package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-service")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-service" {
		t.Errorf("expected service test-service, got %s", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := &Config{Level: "nonsense", Format: "json"}
	l := New(cfg, "svc")
	if l.GetLogger().GetLevel().String() != "info" {
		t.Errorf("invalid level should fall back to info, got %s", l.GetLogger().GetLevel())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").WithComponent("request-tracker")
	l.Info("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if line[FieldComponent] != "request-tracker" {
		t.Errorf("expected component field, got %v", line)
	}
	if line["message"] != "hello" {
		t.Errorf("expected message hello, got %v", line["message"])
	}
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug")
	l.Warn("fetch failed", Fields(FieldHref, "/api/items/1", FieldStatus, 404))

	out := buf.String()
	if !strings.Contains(out, `"href":"/api/items/1"`) {
		t.Errorf("missing href field: %s", out)
	}
	if !strings.Contains(out, `"status":404`) {
		t.Errorf("missing status field: %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected warn level: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden too")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %s", buf.String())
	}
}

func TestWithErrorAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").WithError(fmt.Errorf("boom")).WithFields(map[string]interface{}{"k": "v"})
	l.Error("failed")
	out := buf.String()
	if !strings.Contains(out, `"error":"boom"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("unexpected output %s", out)
	}
}

func TestNopAndOrNop(t *testing.T) {
	Nop().Info("discarded")
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) should return a logger")
	}
	l := NewDefault("x")
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger")
	}
}

func TestGlobalLogger(t *testing.T) {
	custom := Nop()
	SetGlobalLogger(custom)
	defer SetGlobalLogger(nil)
	if GetGlobalLogger() != custom {
		t.Error("expected custom global logger")
	}
	Info("via global")
	if WithComponent("c") == nil {
		t.Error("expected component logger")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("timestamp should default to true")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Level: "info", Format: "json"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid level")
	}
	cfg.Level = "info"
	cfg.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestDurationAndErrorFields(t *testing.T) {
	f := ErrorFields("fetch", fmt.Errorf("x"))
	if f[FieldOperation] != "fetch" || f[FieldError] != "x" {
		t.Errorf("unexpected fields %v", f)
	}
	d := DurationFields("fetch", 1500_000_000)
	if d[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", d[FieldDuration])
	}
}
