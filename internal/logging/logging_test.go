package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "gazereport.log")
	var console bytes.Buffer

	logger, closeFn, err := New(Options{FilePath: logPath, Console: &console})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	logger.Info("report written")
	logger.Debug("debug detail")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out := console.String()
	if !strings.Contains(out, "report written") {
		t.Fatalf("expected console output, got: %s", out)
	}
	if strings.Contains(out, "debug detail") {
		t.Fatalf("expected debug to be filtered from console, got: %s", out)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"message":"report written"`) {
		t.Fatalf("expected JSON entry in file, got: %s", content)
	}
	if !strings.Contains(content, "debug detail") {
		t.Fatalf("expected debug entry in file, got: %s", content)
	}
}

func TestNewDebugConsole(t *testing.T) {
	var console bytes.Buffer
	logger, closeFn, err := New(Options{Debug: true, Console: &console})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	logger.Debug("visible")
	_ = closeFn()
	if !strings.Contains(console.String(), "visible") {
		t.Fatalf("expected debug output, got: %s", console.String())
	}
}
