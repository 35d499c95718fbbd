package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(DefaultConfig(), &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	log.WithField("request_id", "abc").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" || entry["request_id"] != "abc" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestNew_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "text"
	cfg.Level = "warn"

	log, err := New(cfg, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if log.GetLevel() != logrus.WarnLevel {
		t.Errorf("expected warn level, got %s", log.GetLevel())
	}

	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message should be filtered")
	}
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("expected text formatted warning, got %q", buf.String())
	}
}

func TestNew_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	cfg := DefaultConfig()
	cfg.Dir = dir

	var buf bytes.Buffer
	log, err := New(cfg, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.Info("to both")

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(buf.String(), "to both") {
		t.Error("expected message in file and stdout")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "loud", Format: "json"}},
		{"bad format", Config{Level: "info", Format: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, &bytes.Buffer{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}
