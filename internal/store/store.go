// Package store handles SQLite persistence of run history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/gazereport/internal/metrics"
	"github.com/verte-zerg/gazereport/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for run history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			variant TEXT NOT NULL,
			input_dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			processed INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS worker_reports (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id),
			worker_id TEXT NOT NULL,
			source_path TEXT NOT NULL,
			report_path TEXT NOT NULL,
			variant TEXT NOT NULL,
			score INTEGER NOT NULL,
			classification TEXT NOT NULL,
			metrics_json TEXT NOT NULL,
			error TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_worker_reports_worker ON worker_reports(worker_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// StartRun records the beginning of a batch run and returns its id.
func (s *Store) StartRun(ctx context.Context, info model.RunInfo) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, variant, input_dir, output_dir) VALUES (?, ?, ?, ?, ?)`,
		id,
		info.StartedAt.UTC().Format(time.RFC3339Nano),
		string(info.Variant),
		info.InputDir,
		info.OutputDir,
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, id string, processed, failed int, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, processed = ?, failed = ? WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339Nano), processed, failed, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// InsertWorkerReport stores the outcome of one worker file.
func (s *Store) InsertWorkerReport(ctx context.Context, runID string, res model.WorkerResult) (int64, error) {
	metricsJSON, err := encodeMetrics(res.Report)
	if err != nil {
		return 0, err
	}
	errText := ""
	classification := ""
	if res.Err != nil {
		errText = res.Err.Error()
	} else {
		classification = metrics.Classify(res.Report.Score)
	}
	variant := res.Variant
	if variant == "" {
		variant = res.Report.Variant
	}
	inserted, err := s.db.ExecContext(ctx,
		`INSERT INTO worker_reports (run_id, worker_id, source_path, report_path, variant, score, classification, metrics_json, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		res.WorkerID,
		res.SourcePath,
		res.ReportPath,
		string(variant),
		res.Report.Score,
		classification,
		metricsJSON,
		errText,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert worker report: %w", err)
	}
	return inserted.LastInsertId()
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	query := `SELECT id, started_at, ended_at, variant, input_dir, output_dir, processed, failed
		FROM runs
		ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunRecord
	for rows.Next() {
		var rec model.RunRecord
		var startedAt, variant string
		var endedAt sql.NullString
		if err := rows.Scan(&rec.ID, &startedAt, &endedAt, &variant, &rec.InputDir, &rec.OutputDir, &rec.Processed, &rec.Failed); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		rec.StartedAt = parsed
		rec.Variant = model.Variant(variant)
		if endedAt.Valid {
			ended, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, err
			}
			rec.EndedAt = &ended
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// ListWorkerReports returns stored reports matching filter in chronological
// order. With filter.Last set only the most recent entries are kept.
func (s *Store) ListWorkerReports(ctx context.Context, filter model.HistoryFilter) ([]model.WorkerRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.WorkerID != "" {
		clauses = append(clauses, "worker_id = ?")
		args = append(args, filter.WorkerID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT %s FROM worker_reports
		WHERE %s
		ORDER BY created_at DESC, id DESC`, workerColumns, strings.Join(clauses, " AND "))
	if filter.Last > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Last)
	}
	records, err := s.queryWorkers(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// ListWorkerLatest returns the newest stored report for every worker, ordered
// by worker id.
func (s *Store) ListWorkerLatest(ctx context.Context) ([]model.WorkerRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM worker_reports
		WHERE id IN (
			SELECT MAX(id) FROM worker_reports GROUP BY worker_id
		)
		ORDER BY worker_id ASC`, workerColumns)
	return s.queryWorkers(ctx, query)
}

const workerColumns = `id, run_id, worker_id, source_path, report_path, variant, score, classification, metrics_json, error, created_at`

func (s *Store) queryWorkers(ctx context.Context, query string, args ...any) ([]model.WorkerRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.WorkerRecord
	for rows.Next() {
		var rec model.WorkerRecord
		var variant, metricsJSON, createdAt string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.WorkerID, &rec.SourcePath, &rec.ReportPath, &variant,
			&rec.Score, &rec.Classification, &metricsJSON, &rec.Error, &createdAt); err != nil {
			return nil, err
		}
		rec.Variant = model.Variant(variant)
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		rec.CreatedAt = parsed
		if err := json.Unmarshal([]byte(metricsJSON), &rec.Metrics); err != nil {
			return nil, fmt.Errorf("worker report %d: invalid metrics: %w", rec.ID, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// encodeMetrics stores absent values as JSON null.
func encodeMetrics(r model.MetricsReport) (string, error) {
	values := make(map[string]*float64, len(r.Metrics))
	for _, m := range r.Metrics {
		if v, ok := m.Value.Float(); ok {
			values[m.Key] = &v
		} else {
			values[m.Key] = nil
		}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode metrics: %w", err)
	}
	return string(data), nil
}
