package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newthinker/nseetl/internal/config"
)

func TestNew_Development(t *testing.T) {
	log, err := New(config.LogConfig{Development: true})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}

	// Should not panic
	log.Info("test message")
}

func TestNew_Production(t *testing.T) {
	log, err := New(config.LogConfig{Level: "warn"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log.Core().Enabled(-1) {
		t.Error("debug should be disabled at warn level")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(config.LogConfig{OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	log.Info("fetched sector data")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "fetched sector data") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestMust(t *testing.T) {
	// Should not panic
	log := Must(config.LogConfig{Development: true})
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}
