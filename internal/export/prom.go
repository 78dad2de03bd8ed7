// Package export writes optional side artifacts next to the PDF reports.
package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/verte-zerg/gazereport/internal/metrics"
	"github.com/verte-zerg/gazereport/internal/model"
)

// Metric family names in the textfile.
const (
	FamilyScore       = "gazereport_efficiency_score"
	FamilyMetric      = "gazereport_metric"
	FamilyAOIFixation = "gazereport_aoi_fixation_ms"
)

// WritePromTextfile writes every successful worker result in Prometheus text
// exposition format. The file is replaced atomically.
func WritePromTextfile(path string, results []model.WorkerResult) error {
	families := buildFamilies(results)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create textfile dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "gazereport-*.prom")
	if err != nil {
		return fmt.Errorf("failed to create temp textfile: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(writer, mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush textfile: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close textfile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write textfile: %w", err)
	}
	return nil
}

func buildFamilies(results []model.WorkerResult) []*dto.MetricFamily {
	score := newGaugeFamily(FamilyScore, "Efficiency score (0-100) per worker.")
	values := newGaugeFamily(FamilyMetric, "Computed gaze metric per worker.")
	fixation := newGaugeFamily(FamilyAOIFixation, "Total fixation time per worker and area of interest.")

	sorted := append([]model.WorkerResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].WorkerID < sorted[j].WorkerID })

	// A worker id labels at most one set of series; repeats would make the
	// textfile invalid, so the first result for an id wins.
	seen := make(map[string]bool, len(sorted))
	for _, res := range sorted {
		if res.Err != nil || seen[res.WorkerID] {
			continue
		}
		seen[res.WorkerID] = true
		variant := string(res.Report.Variant)
		score.Metric = append(score.Metric, gauge(float64(res.Report.Score),
			"worker", res.WorkerID,
			"variant", variant,
			"classification", metrics.Classify(res.Report.Score),
		))
		for _, m := range res.Report.Metrics {
			v, ok := m.Value.Float()
			if !ok {
				continue
			}
			values.Metric = append(values.Metric, gauge(v,
				"worker", res.WorkerID,
				"variant", variant,
				"metric", MetricSlug(m.Key),
			))
		}
		for _, name := range sortedKeys(res.Report.FixationByAOI) {
			fixation.Metric = append(fixation.Metric, gauge(res.Report.FixationByAOI[name],
				"worker", res.WorkerID,
				"aoi", name,
			))
		}
	}

	var out []*dto.MetricFamily
	for _, mf := range []*dto.MetricFamily{score, values, fixation} {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	return out
}

func newGaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

// gauge builds a sample from a value and alternating label name/value pairs.
func gauge(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}

// MetricSlug turns a report key into a label-friendly identifier,
// e.g. "Time to First Fixation (Instruction Label)" -> "time_to_first_fixation_instruction_label".
func MetricSlug(key string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(key) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
