package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	if cfg.Paths.Input != nil || len(cfg.AOIs) != 0 {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
input = "gaze"
output = "out"

[analysis]
variant = "aoi"
fail_fast = true
extensions = [".csv"]

[export]
charts = true

[[aoi]]
name = "Left"
x1 = 0
y1 = 0
x2 = 10
y2 = 10

[[aoi]]
name = "Right"
x1 = 20
y1 = 0
x2 = 30
y2 = 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Paths.Input == nil || *cfg.Paths.Input != "gaze" {
		t.Fatalf("unexpected input path: %v", cfg.Paths.Input)
	}
	if cfg.Analysis.Variant == nil || *cfg.Analysis.Variant != "aoi" {
		t.Fatalf("unexpected variant: %v", cfg.Analysis.Variant)
	}
	if cfg.Analysis.FailFast == nil || !*cfg.Analysis.FailFast {
		t.Fatalf("expected fail_fast true")
	}
	if cfg.Analysis.Task != nil {
		t.Fatalf("expected task to stay unset")
	}
	if cfg.Export.Charts == nil || !*cfg.Export.Charts {
		t.Fatalf("expected charts true")
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if len(reg) != 2 || reg[1].Name != "Right" || reg[1].Bounds.X2 != 30 {
		t.Fatalf("unexpected registry: %+v", reg)
	}
	if got := reg.Locate(25, 5); got != "Right" {
		t.Fatalf("expected Right, got %q", got)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `paths:
  output: yaml-out
aoi:
  - name: Panel
    x1: 0
    y1: 0
    x2: 50
    y2: 50
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Paths.Output == nil || *cfg.Paths.Output != "yaml-out" {
		t.Fatalf("unexpected output path: %v", cfg.Paths.Output)
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if len(reg) != 1 || reg.Locate(50, 50) != "Panel" {
		t.Fatalf("unexpected registry: %+v", reg)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[paths\ninput ="), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestRegistryDefaultsAndValidation(t *testing.T) {
	reg, err := FileConfig{}.Registry()
	if err != nil || len(reg) != 4 {
		t.Fatalf("expected default registry, got %v, %v", reg, err)
	}
	bad := FileConfig{AOIs: []AOIConfig{{Name: "Outside"}}}
	if _, err := bad.Registry(); err == nil {
		t.Fatalf("expected reserved name to be rejected")
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "gazereport", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultHistoryPath(); got != filepath.Join("/tmp/data", "gazereport", "history.db") {
		t.Fatalf("unexpected history path %q", got)
	}
}
