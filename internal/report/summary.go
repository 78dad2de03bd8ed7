package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/gazereport/internal/metrics"
	"github.com/verte-zerg/gazereport/internal/model"
)

var (
	labelStyles = map[string]lipgloss.Style{
		metrics.LabelEfficient:      lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true),
		metrics.LabelAcceptable:     lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")),
		metrics.LabelNeedsAttention: lipgloss.NewStyle().Foreground(lipgloss.Color("#FA8C16")),
		metrics.LabelHighRisk:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true),
	}
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

const labelCol = 2

// WriteSummary prints one row per processed worker. With color set the
// classification column is styled.
func WriteSummary(w io.Writer, results []model.WorkerResult, color bool) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No worker files processed.")
		return err
	}
	headers := []string{"Worker", "Score", "Classification", "Report"}
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			rows = append(rows, []string{res.WorkerID, "-", "failed", res.Err.Error()})
			continue
		}
		rows = append(rows, []string{
			res.WorkerID,
			strconv.Itoa(res.Report.Score),
			metrics.Classify(res.Report.Score),
			res.ReportPath,
		})
	}
	table := formatTable(headers, rows, map[int]bool{1: true})
	for i, cells := range table {
		if color && i > 0 {
			res := results[i-1]
			if res.Err != nil {
				cells[labelCol] = errorStyle.Render(cells[labelCol])
			} else if style, ok := labelStyles[metrics.Classify(res.Report.Score)]; ok {
				cells[labelCol] = style.Render(cells[labelCol])
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d processed, %d failed\n", len(results)-failed, failed)
	return err
}

// WriteMetrics prints the page lines of one report, used by inspect.
func WriteMetrics(w io.Writer, workerID string, r model.MetricsReport) error {
	headers := []string{"Metric", "Value"}
	var rows [][]string
	for _, f := range fieldsByVariant[r.Variant] {
		rows = append(rows, []string{f.key, formatValue(r.Lookup(f.key), f.suffix)})
	}
	rows = append(rows,
		[]string{model.KeyEfficiencyScore, fmt.Sprintf("%d/100", r.Score)},
		[]string{"Classification", metrics.Classify(r.Score)},
	)
	if _, err := fmt.Fprintf(w, "Worker %s (%s, %d samples)\n", workerID, r.Variant, r.SampleCount); err != nil {
		return err
	}
	if err := writeTable(w, headers, rows, nil); err != nil {
		return err
	}
	if len(r.FixationByAOI) > 0 {
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
		return WriteAOIBreakdown(w, r.FixationByAOI)
	}
	return nil
}

// WriteAOIBreakdown prints fixation time per region, largest first.
func WriteAOIBreakdown(w io.Writer, byAOI map[string]float64) error {
	total := 0.0
	for _, v := range byAOI {
		total += v
	}
	rows := make([][]string, 0, len(byAOI))
	for _, name := range SortedAOIs(byAOI) {
		share := 0.0
		if total != 0 {
			share = byAOI[name] / total * 100
		}
		rows = append(rows, []string{
			name,
			model.FormatNumber(metrics.Round2(byAOI[name])),
			fmt.Sprintf("%.2f%%", share),
		})
	}
	return writeTable(w, []string{"AOI", "Fixation (ms)", "Share"}, rows, map[int]bool{1: true, 2: true})
}

// SortedAOIs orders region names by fixation time, descending, then by name.
func SortedAOIs(byAOI map[string]float64) []string {
	names := make([]string, 0, len(byAOI))
	for name := range byAOI {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if byAOI[names[i]] == byAOI[names[j]] {
			return names[i] < names[j]
		}
		return byAOI[names[i]] > byAOI[names[j]]
	})
	return names
}
