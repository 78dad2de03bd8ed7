// Package batch drives report generation over a directory of gaze recordings.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/gazereport/internal/aoi"
	"github.com/verte-zerg/gazereport/internal/export"
	"github.com/verte-zerg/gazereport/internal/ingest"
	"github.com/verte-zerg/gazereport/internal/metrics"
	"github.com/verte-zerg/gazereport/internal/model"
	"github.com/verte-zerg/gazereport/internal/report"
)

// ErrNoInputFiles is returned when the input directory holds no recordings.
var ErrNoInputFiles = errors.New("no input files found")

// ErrDuplicateWorker marks a file whose worker id was already claimed by an
// earlier file in the same run, e.g. w1.csv and w1.tsv.
var ErrDuplicateWorker = errors.New("duplicate worker id")

// History records run outcomes. *store.Store satisfies it.
type History interface {
	StartRun(ctx context.Context, info model.RunInfo) (string, error)
	FinishRun(ctx context.Context, id string, processed, failed int, endedAt time.Time) error
	InsertWorkerReport(ctx context.Context, runID string, res model.WorkerResult) (int64, error)
}

// Summary is the outcome of one run.
type Summary struct {
	RunID     string
	Results   []model.WorkerResult
	Processed int
	Failed    int
}

// Runner processes every recording in Config.InputDir.
type Runner struct {
	Config   model.Config
	Registry aoi.Registry
	Renderer *report.Renderer
	Store    History
	Logger   *zap.Logger
	Now      func() time.Time
}

// Discover lists files in dir whose extension matches exts, ignoring case.
// Subdirectories are not searched. Results are sorted by name.
func Discover(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input dir: %w", err)
	}
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Run processes the input directory. Failures are isolated per file unless
// Config.FailFast is set; the returned error joins every per-file failure.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	log := r.logger()
	cfg := r.Config

	files, err := Discover(cfg.InputDir, cfg.Extensions)
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		return Summary{}, fmt.Errorf("%w in %s", ErrNoInputFiles, cfg.InputDir)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("failed to create output dir: %w", err)
	}

	var summary Summary
	if r.Store != nil {
		id, err := r.Store.StartRun(ctx, model.RunInfo{
			StartedAt: r.now(),
			Variant:   cfg.Variant,
			InputDir:  cfg.InputDir,
			OutputDir: cfg.OutputDir,
		})
		if err != nil {
			log.Warn("History unavailable, continuing without it.", zap.Error(err))
		} else {
			summary.RunID = id
		}
	}
	log.Info("Starting run.",
		zap.Int("files", len(files)),
		zap.String("variant", string(cfg.Variant)),
		zap.String("output", cfg.OutputDir),
	)

	var errs []error
	claimed := make(map[string]string, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		var res model.WorkerResult
		workerID := ingest.WorkerID(path)
		if owner, ok := claimed[workerID]; ok {
			res = r.failedResult(path, fmt.Errorf("%w %q: report already written from %s", ErrDuplicateWorker, workerID, filepath.Base(owner)))
		} else {
			claimed[workerID] = path
			res = r.processFile(path)
		}
		summary.Results = append(summary.Results, res)
		r.record(ctx, summary.RunID, res)

		if res.Err != nil {
			summary.Failed++
			log.Error("Failed to process file.", zap.String("file", path), zap.Error(res.Err))
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), res.Err))
			if cfg.FailFast {
				break
			}
			continue
		}
		summary.Processed++
		log.Info("Report written.",
			zap.String("worker", res.WorkerID),
			zap.Int("score", res.Report.Score),
			zap.String("classification", metrics.Classify(res.Report.Score)),
			zap.String("path", res.ReportPath),
		)
	}

	if cfg.PromTextfile != "" {
		if err := export.WritePromTextfile(cfg.PromTextfile, summary.Results); err != nil {
			errs = append(errs, err)
		} else {
			log.Debug("Prometheus textfile written.", zap.String("path", cfg.PromTextfile))
		}
	}

	if summary.RunID != "" {
		// History is informational; a failed update never fails the run.
		if err := r.Store.FinishRun(context.WithoutCancel(ctx), summary.RunID, summary.Processed, summary.Failed, r.now()); err != nil {
			log.Warn("Failed to finish run in history.", zap.Error(err))
		}
	}
	log.Info("Run complete.", zap.Int("processed", summary.Processed), zap.Int("failed", summary.Failed))
	return summary, errors.Join(errs...)
}

func (r *Runner) failedResult(path string, err error) model.WorkerResult {
	return model.WorkerResult{
		WorkerID:   ingest.WorkerID(path),
		SourcePath: path,
		Variant:    r.Config.Variant,
		Err:        err,
	}
}

func (r *Runner) processFile(path string) model.WorkerResult {
	res := model.WorkerResult{
		WorkerID:   ingest.WorkerID(path),
		SourcePath: path,
		Variant:    r.Config.Variant,
	}
	r.logger().Debug("Processing file.", zap.String("file", path), zap.String("worker", res.WorkerID))

	ds, err := ingest.Load(path, r.Config.Variant)
	if err != nil {
		res.Err = err
		return res
	}
	mr, err := metrics.Compute(ds, r.Config.Variant, r.Registry)
	if err != nil {
		res.Err = err
		return res
	}
	res.Report = mr
	if mr.Empty {
		r.logger().Warn("No usable gaze samples.", zap.String("worker", res.WorkerID))
	}

	out := report.ReportPath(r.Config.OutputDir, res.WorkerID)
	if err := r.renderer().Render(res.WorkerID, mr, out); err != nil {
		res.Err = err
		return res
	}
	res.ReportPath = out

	if r.Config.Charts && len(mr.FixationByAOI) > 0 {
		chart := export.ChartPath(r.Config.OutputDir, res.WorkerID)
		// The PDF is the deliverable; a missing chart only warns.
		if err := export.WriteAOIChart(chart, res.WorkerID, mr); err != nil {
			r.logger().Warn("Failed to write AOI chart.", zap.String("worker", res.WorkerID), zap.Error(err))
		} else {
			res.ChartPath = chart
		}
	}
	return res
}

func (r *Runner) record(ctx context.Context, runID string, res model.WorkerResult) {
	if runID == "" {
		return
	}
	if _, err := r.Store.InsertWorkerReport(ctx, runID, res); err != nil {
		r.logger().Warn("Failed to record worker in history.", zap.String("worker", res.WorkerID), zap.Error(err))
	}
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) renderer() *report.Renderer {
	if r.Renderer == nil {
		r.Renderer = report.NewRenderer(r.Config.Task)
	}
	return r.Renderer
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
