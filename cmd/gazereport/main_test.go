package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/gazereport/internal/config"
	"github.com/verte-zerg/gazereport/internal/report"
)

const twoSampleCSV = "x,y,timestamp,duration\n150,150,500,100\n350,150,900,200\n"

func isolateXDG(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("NO_COLOR", "1")
	return root
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeInput(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
}

func TestRunCommandWritesReportsAndHistory(t *testing.T) {
	root := isolateXDG(t)
	input := filepath.Join(root, "in")
	output := filepath.Join(root, "out")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeInput(t, input, "w7.csv", twoSampleCSV)

	stdout, stderr, err := execute(t, "run", "--input", input, "--output", output, "--variant", "aoi")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "w7") || !strings.Contains(stdout, "Efficient") {
		t.Fatalf("expected summary row, got:\n%s", stdout)
	}
	if _, err := os.Stat(report.ReportPath(output, "w7")); err != nil {
		t.Fatalf("expected report: %v", err)
	}
	if !strings.Contains(stderr, "Report written.") {
		t.Fatalf("expected log output, got:\n%s", stderr)
	}

	stdout, _, err = execute(t, "history", "--plain", "--worker", "w7")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(stdout, "w7") || !strings.Contains(stdout, "100") {
		t.Fatalf("expected recorded worker in history, got:\n%s", stdout)
	}
}

func TestRunCommandConfigFileAndFlagPrecedence(t *testing.T) {
	root := isolateXDG(t)
	input := filepath.Join(root, "in")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeInput(t, input, "w1.csv", twoSampleCSV)
	cfgPath := filepath.Join(root, "gazereport.yaml")
	cfg := "paths:\n  input: " + input + "\n  output: " + filepath.Join(root, "from-config") + "\nanalysis:\n  variant: aoi\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flagOutput := filepath.Join(root, "from-flag")
	if _, stderr, err := execute(t, "--config", cfgPath, "--no-history", "--output", flagOutput); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr)
	}
	if _, err := os.Stat(report.ReportPath(flagOutput, "w1")); err != nil {
		t.Fatalf("expected flag output dir to win: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "from-config")); !os.IsNotExist(err) {
		t.Fatalf("expected config output dir to be unused")
	}
}

func TestRunCommandReportsFailures(t *testing.T) {
	root := isolateXDG(t)
	input := filepath.Join(root, "in")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeInput(t, input, "bad.csv", "timestamp\n1\n")
	writeInput(t, input, "good.csv", "timestamp,duration\n100,150\n")

	stdout, _, err := execute(t, "run", "--input", input, "--output", filepath.Join(root, "out"), "--no-history")
	if err == nil {
		t.Fatalf("expected error for bad file")
	}
	if !strings.Contains(stdout, "1 processed, 1 failed") {
		t.Fatalf("expected summary counts, got:\n%s", stdout)
	}
}

func TestRunCommandInvalidVariant(t *testing.T) {
	isolateXDG(t)
	if _, _, err := execute(t, "run", "--variant", "fancy", "--no-history"); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}

func TestInspectCommand(t *testing.T) {
	root := isolateXDG(t)
	path := filepath.Join(root, "w3.csv")
	writeInput(t, root, "w3.csv", twoSampleCSV)

	stdout, _, err := execute(t, "inspect", "--variant", "aoi", path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"Worker w3 (aoi, 2 samples)", "AOI Coverage", "Instruction Label"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in:\n%s", want, stdout)
		}
	}
	if _, err := os.Stat(report.ReportPath(root, "w3")); !os.IsNotExist(err) {
		t.Fatalf("expected inspect not to write a report")
	}
}

func TestAOIsCommand(t *testing.T) {
	isolateXDG(t)
	stdout, _, err := execute(t, "aois")
	if err != nil {
		t.Fatalf("aois: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "1. Component Bin (100,100)-(300,300)") {
		t.Fatalf("unexpected registry listing:\n%s", stdout)
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	isolateXDG(t)
	var cfg config.FileConfig
	if _, err := toml.Decode(defaultConfigTemplate(), &cfg); err != nil {
		t.Fatalf("template is not valid TOML: %v", err)
	}
	if cfg.Paths.Input != nil || len(cfg.AOIs) != 0 {
		t.Fatalf("expected every value commented out, got %+v", cfg)
	}
	if !strings.Contains(defaultConfigTemplate(), `# name = "Instruction Label"`) {
		t.Fatalf("expected default AOIs in template")
	}
}

func TestEnsureConfigFileKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := ensureConfigFile(path); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := os.WriteFile(path, []byte("# mine\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ensureConfigFile(path); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "# mine\n" {
		t.Fatalf("expected existing config to be kept, got %q", data)
	}
}

func TestApplyConfigRespectsFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	var target string
	cmd.Flags().StringVar(&target, "input", "flag-default", "")
	fromFile := "from-file"

	applyStringConfig(cmd, "input", &target, &fromFile)
	if target != "from-file" {
		t.Fatalf("expected file value, got %q", target)
	}
	if err := cmd.Flags().Set("input", "from-flag"); err != nil {
		t.Fatalf("set: %v", err)
	}
	applyStringConfig(cmd, "input", &target, &fromFile)
	if target != "from-flag" {
		t.Fatalf("expected flag value, got %q", target)
	}

	var enabled bool
	cmd.Flags().BoolVar(&enabled, "charts", false, "")
	on := true
	applyBoolConfig(cmd, "charts", &enabled, &on)
	applyStringConfig(cmd, "input", &target, nil)
	if !enabled || target != "from-flag" {
		t.Fatalf("unexpected values %v %q", enabled, target)
	}
}
