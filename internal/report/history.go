package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/gazereport/internal/model"
	"github.com/verte-zerg/gazereport/internal/plot"
)

// HistoryTimeLayout formats timestamps in history tables.
const HistoryTimeLayout = "2006-01-02 15:04"

// WriteRuns prints stored runs as a plain table.
func WriteRuns(w io.Writer, runs []model.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, RunRow(run))
	}
	return writeTable(w, RunHeaders, rows, map[int]bool{4: true, 5: true})
}

// RunHeaders are the column titles for run listings.
var RunHeaders = []string{"Run", "Started", "Duration", "Variant", "Processed", "Failed"}

// RunRow renders one run for a table.
func RunRow(run model.RunRecord) []string {
	duration := "running"
	if run.EndedAt != nil {
		duration = run.EndedAt.Sub(run.StartedAt).Round(10 * time.Millisecond).String()
	}
	return []string{
		shortID(run.ID),
		run.StartedAt.Local().Format(HistoryTimeLayout),
		duration,
		string(run.Variant),
		strconv.Itoa(run.Processed),
		strconv.Itoa(run.Failed),
	}
}

// WriteWorkerHistory prints stored worker reports with a score sparkline per
// worker.
func WriteWorkerHistory(w io.Writer, records []model.WorkerRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No worker reports recorded.")
		return err
	}
	rows := make([][]string, 0, len(records))
	scores := map[string][]float64{}
	var order []string
	for _, rec := range records {
		rows = append(rows, WorkerRow(rec))
		if rec.Error != "" {
			continue
		}
		if _, ok := scores[rec.WorkerID]; !ok {
			order = append(order, rec.WorkerID)
		}
		scores[rec.WorkerID] = append(scores[rec.WorkerID], float64(rec.Score))
	}
	if err := writeTable(w, WorkerHeaders, rows, map[int]bool{2: true}); err != nil {
		return err
	}
	if len(order) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	trend := make([][]string, 0, len(order))
	for _, id := range order {
		trend = append(trend, []string{id, plot.Sparkline(scores[id], 0, 100)})
	}
	return writeTable(w, []string{"Worker", "Trend"}, trend, nil)
}

// WorkerHeaders are the column titles for worker report listings.
var WorkerHeaders = []string{"Worker", "Recorded", "Score", "Classification", "Variant", "Run"}

// WorkerRow renders one stored worker report for a table.
func WorkerRow(rec model.WorkerRecord) []string {
	score := strconv.Itoa(rec.Score)
	label := rec.Classification
	if rec.Error != "" {
		score = "-"
		label = "failed"
	}
	return []string{
		rec.WorkerID,
		rec.CreatedAt.Local().Format(HistoryTimeLayout),
		score,
		label,
		string(rec.Variant),
		shortID(rec.RunID),
	}
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	for _, cells := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " ")); err != nil {
			return err
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
