// Package metrics reduces gaze datasets to efficiency metrics.
package metrics

import (
	"fmt"
	"math"

	"github.com/verte-zerg/gazereport/internal/aoi"
	"github.com/verte-zerg/gazereport/internal/model"
)

// Compute runs the pipeline selected by variant.
func Compute(ds model.Dataset, variant model.Variant, reg aoi.Registry) (model.MetricsReport, error) {
	switch variant {
	case model.VariantBasic:
		return Basic(ds), nil
	case model.VariantAOI:
		return AOIAware(ds, reg), nil
	default:
		return model.MetricsReport{}, fmt.Errorf("unknown variant %q", variant)
	}
}

// Basic computes duration and latency metrics over the whole dataset.
// An empty dataset yields an empty report. NaN cells are skipped; a column
// with no values leaves its metric absent.
func Basic(ds model.Dataset) model.MetricsReport {
	report := model.MetricsReport{Variant: model.VariantBasic, SampleCount: len(ds.Samples)}
	if len(ds.Samples) == 0 {
		report.Empty = true
		return report
	}

	total := 0.0
	count := 0
	first := math.Inf(1)
	for _, s := range ds.Samples {
		if !math.IsNaN(s.Duration) {
			total += s.Duration
			count++
		}
		if s.Timestamp < first {
			first = s.Timestamp
		}
	}
	avg := math.NaN()
	avgValue := model.None()
	if count > 0 {
		avg = total / float64(count)
		avgValue = model.Some(Round2(avg))
	}
	firstValue := model.None()
	if !math.IsInf(first, 1) {
		firstValue = model.Some(Round2(first))
	}

	report.Metrics = []model.Metric{
		{Key: model.KeyTotalFixation, Unit: model.UnitMilliseconds, Value: model.Some(Round2(total))},
		{Key: model.KeyAvgFixation, Unit: model.UnitMilliseconds, Value: avgValue},
		{Key: model.KeyTimeToFirst, Unit: model.UnitMilliseconds, Value: firstValue},
	}
	// NaN and +Inf fail every bonus comparison.
	report.Score = BasicScore(avg, first)
	return report
}

// AOIAware attributes fixations to regions and computes coverage metrics.
// A dataset whose total fixation time is zero yields an empty report.
// Samples with a NaN duration are left out of every sum and average.
func AOIAware(ds model.Dataset, reg aoi.Registry) model.MetricsReport {
	report := model.MetricsReport{Variant: model.VariantAOI, SampleCount: len(ds.Samples)}

	byAOI := make(map[string]float64)
	total := 0.0
	count := 0
	labelFirst := math.Inf(1)
	for _, s := range ds.Samples {
		name := reg.Locate(s.X, s.Y)
		if name == aoi.InstructionLabel && s.Timestamp < labelFirst {
			labelFirst = s.Timestamp
		}
		if math.IsNaN(s.Duration) {
			continue
		}
		byAOI[name] += s.Duration
		total += s.Duration
		count++
	}
	if total == 0 {
		report.Empty = true
		return report
	}
	report.FixationByAOI = byAOI

	coverage := (total - byAOI[aoi.Outside]) / total * 100
	avg := total / float64(count)

	ttf := model.None()
	if !math.IsInf(labelFirst, 1) {
		ttf = model.Some(Round2(labelFirst))
	}

	report.Metrics = []model.Metric{
		{Key: model.KeyAOICoverage, Unit: model.UnitPercent, Value: model.Some(Round2(coverage))},
		{Key: model.KeyAvgFixation, Unit: model.UnitMilliseconds, Value: model.Some(Round2(avg))},
		{Key: model.KeyTimeToFirstLabel, Unit: model.UnitMilliseconds, Value: ttf},
	}
	report.Score = AOIScore(coverage, avg, labelTime(labelFirst))
	return report
}

// labelTime maps "never looked at the label" to a latency no bonus accepts.
func labelTime(first float64) float64 {
	if math.IsInf(first, 1) {
		return MissingLatency
	}
	return first
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
