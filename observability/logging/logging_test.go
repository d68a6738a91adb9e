package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("paylockd", "test", Options{Level: "warn", Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept", Field("auth_token", "abc"), Field("sender", "plk1xyz"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line above the warn level, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for key, want := range map[string]string{
		"service":    "paylockd",
		"env":        "test",
		"severity":   "WARN",
		"message":    "kept",
		"auth_token": RedactedValue,
		"sender":     "plk1xyz",
	} {
		if entry[key] != want {
			t.Fatalf("%s: expected %q, got %v", key, want, entry[key])
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatalf("timestamp key missing: %v", entry)
	}
}

func TestSetupWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")
	var buf bytes.Buffer
	logger := Setup("paylockd", "", Options{File: path, MaxSizeMB: 1, Output: &buf})
	logger.Info("to both sinks")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both sinks") || !strings.Contains(buf.String(), "to both sinks") {
		t.Fatalf("expected line in file and stdout sinks")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG").String() != "DEBUG" || ParseLevel("bogus").String() != "INFO" {
		t.Fatalf("unexpected level mapping")
	}
	if !IsSensitive("Keystore_Passphrase") || IsSensitive("contentId") {
		t.Fatalf("unexpected sensitivity mapping")
	}
	if Field("secret", "").Value.String() != "" {
		t.Fatalf("empty secrets should remain empty")
	}
}
