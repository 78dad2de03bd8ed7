// Package main provides the CLI entrypoint for gazereport.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/gazereport/internal/aoi"
	"github.com/verte-zerg/gazereport/internal/batch"
	"github.com/verte-zerg/gazereport/internal/config"
	"github.com/verte-zerg/gazereport/internal/historyui"
	"github.com/verte-zerg/gazereport/internal/ingest"
	"github.com/verte-zerg/gazereport/internal/logging"
	"github.com/verte-zerg/gazereport/internal/metrics"
	"github.com/verte-zerg/gazereport/internal/model"
	"github.com/verte-zerg/gazereport/internal/plot"
	"github.com/verte-zerg/gazereport/internal/report"
	"github.com/verte-zerg/gazereport/internal/store"
)

var (
	configPath string
	logFile    string
	debug      bool

	runInput        string
	runOutput       string
	runVariant      string
	runTask         string
	runFailFast     bool
	runNoHistory    bool
	runPromTextfile string
	runCharts       bool

	inspectVariant string

	historyWorker string
	historySince  string
	historyLast   int
	historyPlain  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gazereport",
		Short:         "Eye-tracking efficiency reports per worker",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runRunCmd,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/gazereport/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write a rotating JSON log to this file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	addRunFlags(rootCmd)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newAOIsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a PDF report for every gaze log in the input directory",
		Args:  cobra.NoArgs,
		RunE:  runRunCmd,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runInput, "input", config.DefaultInputDir, "directory with gaze logs")
	cmd.Flags().StringVar(&runOutput, "output", config.DefaultOutputDir, "directory for PDF reports")
	cmd.Flags().StringVar(&runVariant, "variant", config.DefaultVariant, "metric pipeline: basic or aoi")
	cmd.Flags().StringVar(&runTask, "task", config.DefaultTask, "task label printed on reports")
	cmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "stop at the first file that fails")
	cmd.Flags().BoolVar(&runNoHistory, "no-history", false, "do not record the run in the history database")
	cmd.Flags().StringVar(&runPromTextfile, "prom-textfile", "", "write Prometheus metrics to this textfile")
	cmd.Flags().BoolVar(&runCharts, "charts", false, "write an HTML chart of fixation time per AOI")
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "input", &runInput, fileCfg.Paths.Input)
	applyStringConfig(cmd, "output", &runOutput, fileCfg.Paths.Output)
	applyStringConfig(cmd, "variant", &runVariant, fileCfg.Analysis.Variant)
	applyStringConfig(cmd, "task", &runTask, fileCfg.Analysis.Task)
	applyBoolConfig(cmd, "fail-fast", &runFailFast, fileCfg.Analysis.FailFast)
	applyStringConfig(cmd, "prom-textfile", &runPromTextfile, fileCfg.Export.PromTextfile)
	applyBoolConfig(cmd, "charts", &runCharts, fileCfg.Export.Charts)

	variant, err := model.ParseVariant(runVariant)
	if err != nil {
		return err
	}
	reg, err := fileCfg.Registry()
	if err != nil {
		return err
	}
	extensions := config.DefaultExtensions
	if len(fileCfg.Analysis.Extensions) > 0 {
		extensions = fileCfg.Analysis.Extensions
	}
	cfg := model.Config{
		InputDir:     runInput,
		OutputDir:    runOutput,
		Variant:      variant,
		Task:         runTask,
		Extensions:   extensions,
		FailFast:     runFailFast,
		PromTextfile: runPromTextfile,
		Charts:       runCharts,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	log, closeLog, err := newLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()
	warnOverlaps(log, reg)

	runner := &batch.Runner{
		Config:   cfg,
		Registry: reg,
		Renderer: report.NewRenderer(cfg.Task),
		Logger:   log,
	}
	if !runNoHistory {
		st, err := store.Open(historyPath(fileCfg))
		if err != nil {
			log.Warn("History unavailable, continuing without it.", zap.Error(err))
		} else {
			defer func() {
				if cerr := st.Close(); cerr != nil {
					logErrf("failed to close db: %v\n", cerr)
				}
			}()
			runner.Store = st
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	summary, runErr := runner.Run(ctx)
	if len(summary.Results) > 0 {
		out := cmd.OutOrStdout()
		if err := report.WriteSummary(out, summary.Results, plot.UseColor(out)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return runErr
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the metrics of one gaze log without writing a report",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspectCmd,
	}
	cmd.Flags().StringVar(&inspectVariant, "variant", config.DefaultVariant, "metric pipeline: basic or aoi")
	return cmd
}

func runInspectCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "variant", &inspectVariant, fileCfg.Analysis.Variant)
	variant, err := model.ParseVariant(inspectVariant)
	if err != nil {
		return err
	}
	reg, err := fileCfg.Registry()
	if err != nil {
		return err
	}
	ds, err := ingest.Load(args[0], variant)
	if err != nil {
		return err
	}
	r, err := metrics.Compute(ds, variant, reg)
	if err != nil {
		return err
	}
	if err := report.WriteMetrics(cmd.OutOrStdout(), ds.WorkerID, r); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newAOIsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aois",
		Short: "List the areas of interest in lookup order",
		Args:  cobra.NoArgs,
		RunE:  runAOIsCmd,
	}
}

func runAOIsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	reg, err := fileCfg.Registry()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, a := range reg {
		if _, err := fmt.Fprintf(out, "%d. %s %s\n", i+1, a.Name, a.Bounds); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	for _, pair := range reg.Overlaps() {
		if _, err := fmt.Fprintf(out, "overlap: %s and %s (later entry wins)\n", pair[0], pair[1]); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded runs and worker score trends",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyWorker, "worker", "", "show one worker's history")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to the last N entries")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print tables instead of opening the TUI")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	filter := model.HistoryFilter{WorkerID: historyWorker, Last: historyLast}
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}

	st, err := store.Open(historyPath(fileCfg))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if historyPlain {
		return writePlainHistory(cmd, st, filter)
	}
	ui := historyui.NewModel(st, filter)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func writePlainHistory(cmd *cobra.Command, st *store.Store, filter model.HistoryFilter) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	if filter.WorkerID == "" {
		runs, err := st.ListRuns(ctx, filter.Last)
		if err != nil {
			return fmt.Errorf("failed to load runs: %w", err)
		}
		if err := report.WriteRuns(out, runs); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if _, err := fmt.Fprintln(out, ""); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	records, err := st.ListWorkerReports(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load worker history: %w", err)
	}
	if err := report.WriteWorkerHistory(out, records); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := resolvedConfigPath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// ensureConfigFile writes the commented template unless a file already exists.
func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadFileConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(resolvedConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

func historyPath(fileCfg config.FileConfig) string {
	if fileCfg.Paths.HistoryDB != nil && *fileCfg.Paths.HistoryDB != "" {
		return *fileCfg.Paths.HistoryDB
	}
	return config.DefaultHistoryPath()
}

func newLogger(cmd *cobra.Command, fileCfg config.FileConfig) (*zap.Logger, func() error, error) {
	path := logFile
	if path == "" && fileCfg.Paths.LogFile != nil {
		path = *fileCfg.Paths.LogFile
	}
	log, closeFn, err := logging.New(logging.Options{
		Debug:    debug,
		FilePath: path,
		Console:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return log, closeFn, nil
}

func warnOverlaps(log *zap.Logger, reg aoi.Registry) {
	for _, pair := range reg.Overlaps() {
		log.Debug("AOIs overlap; the later entry wins.", zap.String("first", pair[0]), zap.String("second", pair[1]))
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# gazereport configuration
# Uncomment a value to enable it. CLI flags override config values.

[paths]
# input = %q              # Directory with gaze logs
# output = %q          # Directory for PDF reports
# history_db = %q
# log_file = %q

[analysis]
# variant = %q            # basic or aoi
# task = %q
# extensions = [".csv", ".tsv"]
# fail_fast = false

[export]
# prom_textfile = "/var/lib/node_exporter/textfile/gazereport.prom"
# charts = false

# Areas of interest, checked in order; the last match wins on overlap.
# Listing any [[aoi]] replaces the built-in layout.
%s`,
		config.DefaultInputDir,
		config.DefaultOutputDir,
		config.DefaultHistoryPath(),
		config.DefaultLogPath(),
		config.DefaultVariant,
		config.DefaultTask,
		aoiTemplate(aoi.DefaultRegistry()),
	)
}

func aoiTemplate(reg aoi.Registry) string {
	var b strings.Builder
	for _, a := range reg {
		fmt.Fprintf(&b, "# [[aoi]]\n# name = %q\n# x1 = %g\n# y1 = %g\n# x2 = %g\n# y2 = %g\n",
			a.Name, a.Bounds.X1, a.Bounds.Y1, a.Bounds.X2, a.Bounds.Y2)
	}
	return b.String()
}

func validateConfig(cfg model.Config) error {
	if strings.TrimSpace(cfg.InputDir) == "" {
		return fmt.Errorf("--input must not be empty")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return fmt.Errorf("--output must not be empty")
	}
	if len(cfg.Extensions) == 0 {
		return fmt.Errorf("at least one input extension is required")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
