// Package model defines shared data structures.
package model

import (
	"fmt"
	"strconv"
	"time"
)

// Variant selects which metric pipeline runs over a dataset.
type Variant string

// Supported pipeline variants.
const (
	VariantBasic Variant = "basic"
	VariantAOI   Variant = "aoi"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantBasic, VariantAOI:
		return Variant(s), nil
	default:
		return "", fmt.Errorf("unknown variant %q (expected %q or %q)", s, VariantBasic, VariantAOI)
	}
}

// Metric keys as they appear on reports.
const (
	KeyTotalFixation    = "Total Fixation Duration"
	KeyAvgFixation      = "Avg Fixation Duration"
	KeyTimeToFirst      = "Time to First Fixation"
	KeyAOICoverage      = "AOI Coverage"
	KeyTimeToFirstLabel = "Time to First Fixation (Instruction Label)"
	KeyEfficiencyScore  = "Efficiency Score"
)

// NotAvailable is rendered in place of an absent value.
const NotAvailable = "N/A"

// Units used by report lines.
const (
	UnitMilliseconds = "ms"
	UnitPercent      = "%"
)

// Config defines batch run settings.
type Config struct {
	InputDir     string
	OutputDir    string
	Variant      Variant
	Task         string
	Extensions   []string
	FailFast     bool
	PromTextfile string
	Charts       bool
}

// GazeSample is one row of a gaze log. X and Y are only read for the AOI variant.
// A blank or missing cell is stored as NaN and skipped by the aggregations.
type GazeSample struct {
	X         float64
	Y         float64
	Timestamp float64
	Duration  float64
}

// Dataset holds the ordered samples of one worker.
type Dataset struct {
	WorkerID string
	Source   string
	Samples  []GazeSample
}

// Value is a metric value that may be absent.
type Value struct {
	v  float64
	ok bool
}

// Some wraps a present value.
func Some(v float64) Value {
	return Value{v: v, ok: true}
}

// None returns an absent value.
func None() Value {
	return Value{}
}

// IsSet reports whether the value is present.
func (v Value) IsSet() bool {
	return v.ok
}

// Float returns the numeric value and whether it is present.
func (v Value) Float() (float64, bool) {
	return v.v, v.ok
}

// String renders the value, or N/A when absent.
func (v Value) String() string {
	if !v.ok {
		return NotAvailable
	}
	return FormatNumber(v.v)
}

// FormatNumber renders a float the way report lines show it: integral values
// keep one decimal place, others use the shortest exact representation.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Metric is a named report value.
type Metric struct {
	Key   string
	Unit  string
	Value Value
}

// MetricsReport is the computed result for one dataset.
type MetricsReport struct {
	Variant       Variant
	Metrics       []Metric
	Score         int
	Empty         bool
	SampleCount   int
	FixationByAOI map[string]float64
}

// Lookup returns the value stored under key, or an absent value.
func (r MetricsReport) Lookup(key string) Value {
	for _, m := range r.Metrics {
		if m.Key == key {
			return m.Value
		}
	}
	return None()
}

// Unit returns the unit registered for key, if any.
func (r MetricsReport) Unit(key string) string {
	for _, m := range r.Metrics {
		if m.Key == key {
			return m.Unit
		}
	}
	return ""
}

// WorkerResult captures the outcome of processing one input file. Variant is
// the run's variant, set even when the file failed before metrics were computed.
type WorkerResult struct {
	WorkerID   string
	SourcePath string
	ReportPath string
	ChartPath  string
	Variant    Variant
	Report     MetricsReport
	Err        error
}

// RunInfo describes a batch run for the history store.
type RunInfo struct {
	StartedAt time.Time
	Variant   Variant
	InputDir  string
	OutputDir string
}

// RunRecord is a stored batch run.
type RunRecord struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	Variant   Variant
	InputDir  string
	OutputDir string
	Processed int
	Failed    int
}

// WorkerRecord is a stored per-worker report outcome.
type WorkerRecord struct {
	ID             int64
	RunID          string
	WorkerID       string
	SourcePath     string
	ReportPath     string
	Variant        Variant
	Score          int
	Classification string
	Metrics        map[string]*float64
	Error          string
	CreatedAt      time.Time
}

// HistoryFilter narrows worker history queries.
type HistoryFilter struct {
	WorkerID string
	Since    *time.Time
	Last     int
}
