package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Options{Level: "info"})

	logger.Debug().Msg("dropped")
	logger.Info().Str("document_type", "prescription").Msg("issued")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "issued" {
		t.Errorf("expected message issued, got %v", line["message"])
	}
	if line["service"] != "docs-server" {
		t.Errorf("expected service field, got %v", line["service"])
	}
	if _, ok := line["time"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestNewWithWriter_FileSink(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "docs.log")
	logger := NewWithWriter(&buf, Options{Level: "info", File: path, FileMaxSizeMB: 1})

	logger.Warn().Msg("upload failed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(data, []byte("upload failed")) {
		t.Errorf("expected file to contain log line, got %q", data)
	}
	if !bytes.Contains(buf.Bytes(), []byte("upload failed")) {
		t.Errorf("expected stdout to contain log line, got %q", buf.String())
	}
}
