// Package report lays out worker metrics as report pages and terminal tables.
package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/verte-zerg/gazereport/internal/metrics"
	"github.com/verte-zerg/gazereport/internal/model"
)

// LineKind selects the typography of a report line.
type LineKind int

// Line kinds in page order.
const (
	LineTitle LineKind = iota
	LineBody
	LineNotes
)

// Line is one block of report text.
type Line struct {
	Kind LineKind
	Text string
}

// DateLayout formats the rendering date, e.g. "March 04, 2025".
const DateLayout = "January 02, 2006"

// Notes text per variant.
const (
	BasicNotes = "Efficiency calculated from total gaze data without AOI-specific metrics."
	AOINotes   = "Gaze distribution across task areas was monitored; low coverage or a late first look at the instruction label indicates attention drifting from the task."
)

type field struct {
	key    string
	suffix string
}

var fieldsByVariant = map[model.Variant][]field{
	model.VariantBasic: {
		{key: model.KeyTotalFixation, suffix: " ms"},
		{key: model.KeyAvgFixation, suffix: " ms"},
		{key: model.KeyTimeToFirst, suffix: " ms"},
	},
	model.VariantAOI: {
		{key: model.KeyAOICoverage, suffix: "%"},
		{key: model.KeyAvgFixation, suffix: " ms"},
		{key: model.KeyTimeToFirstLabel, suffix: " ms"},
	},
}

// ReportPath returns where the report for workerID is written.
func ReportPath(outputDir, workerID string) string {
	return filepath.Join(outputDir, workerID+"_report.pdf")
}

// Lines builds the page content for one worker. Metrics missing from r are
// shown as N/A.
func Lines(workerID string, r model.MetricsReport, task string, now time.Time) []Line {
	lines := []Line{
		{Kind: LineTitle, Text: fmt.Sprintf("Worker #%s – Eye Tracking Efficiency Report", workerID)},
		{Kind: LineBody, Text: "Date: " + now.Format(DateLayout)},
		{Kind: LineBody, Text: "Task: " + task},
	}
	for _, f := range fieldsByVariant[r.Variant] {
		lines = append(lines, Line{Kind: LineBody, Text: f.key + ": " + formatValue(r.Lookup(f.key), f.suffix)})
	}
	lines = append(lines,
		Line{Kind: LineBody, Text: ScoreLine(r.Score)},
		Line{Kind: LineNotes, Text: "Notes:\n" + notesFor(r.Variant)},
	)
	return lines
}

// ScoreLine renders the score with its classification.
func ScoreLine(score int) string {
	return fmt.Sprintf("%s: %d/100 - %s", model.KeyEfficiencyScore, score, metrics.Classify(score))
}

func formatValue(v model.Value, suffix string) string {
	if !v.IsSet() {
		return model.NotAvailable
	}
	return v.String() + suffix
}

func notesFor(variant model.Variant) string {
	if variant == model.VariantAOI {
		return AOINotes
	}
	return BasicNotes
}
