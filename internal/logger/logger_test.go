package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestTextOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	Info("upload complete", "file_id", "abc123", "bytes", 42)

	out := buf.String()
	if !strings.Contains(out, "[INFO] upload complete") {
		t.Errorf("missing message in output: %q", out)
	}
	if !strings.Contains(out, "file_id=abc123") {
		t.Errorf("missing attribute in output: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text", false)

	Debug("noise")
	Info("more noise")
	Warn("important")

	out := buf.String()
	if strings.Contains(out, "noise") {
		t.Errorf("suppressed levels leaked through: %q", out)
	}
	if !strings.Contains(out, "important") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json", false)

	Info("job claimed", "job_id", "j1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if record["msg"] != "job claimed" {
		t.Errorf("unexpected msg field: %v", record["msg"])
	}
	if record["job_id"] != "j1" {
		t.Errorf("unexpected job_id field: %v", record["job_id"])
	}
}

func TestInvalidLevelIgnored(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)
	SetLevel("LOUD")

	Info("still works")
	if !strings.Contains(buf.String(), "still works") {
		t.Errorf("logger broken after invalid level: %q", buf.String())
	}
}
