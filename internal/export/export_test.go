package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"

	"github.com/verte-zerg/gazereport/internal/model"
)

func sampleResults() []model.WorkerResult {
	return []model.WorkerResult{
		{
			WorkerID: "w2",
			Report: model.MetricsReport{
				Variant: model.VariantAOI,
				Metrics: []model.Metric{
					{Key: model.KeyAOICoverage, Value: model.Some(100)},
					{Key: model.KeyAvgFixation, Value: model.Some(150)},
					{Key: model.KeyTimeToFirstLabel, Value: model.None()},
				},
				Score:         85,
				FixationByAOI: map[string]float64{"Component Bin": 100, "Instruction Label": 200},
			},
		},
		{WorkerID: "w1", Report: model.MetricsReport{Variant: model.VariantBasic, Empty: true}},
		{WorkerID: "w3", Err: errors.New("boom")},
	}
}

func TestWritePromTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "gazereport.prom")
	if err := WritePromTextfile(path, sampleResults()); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`# TYPE gazereport_efficiency_score gauge`,
		`gazereport_efficiency_score{worker="w2",variant="aoi",classification="Efficient"} 85`,
		`gazereport_efficiency_score{worker="w1",variant="basic",classification="High Risk"} 0`,
		`gazereport_metric{worker="w2",variant="aoi",metric="aoi_coverage"} 100`,
		`gazereport_aoi_fixation_ms{worker="w2",aoi="Instruction Label"} 200`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "w3") {
		t.Fatalf("expected failed worker to be skipped:\n%s", out)
	}
	if strings.Contains(out, "time_to_first_fixation_instruction_label") {
		t.Fatalf("expected absent metric to be skipped:\n%s", out)
	}
	if strings.Index(out, `worker="w1"`) > strings.Index(out, `worker="w2"`) {
		t.Fatalf("expected workers sorted by id:\n%s", out)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(out))
	if err != nil {
		t.Fatalf("textfile does not parse: %v", err)
	}
	if len(families) != 3 {
		t.Fatalf("expected 3 families, got %d", len(families))
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "gazereport-*.prom"))
	if len(matches) != 0 {
		t.Fatalf("expected temp files to be cleaned up, got %v", matches)
	}
}

func TestWritePromTextfileKeepsFirstResultPerWorker(t *testing.T) {
	basic := func(total float64) model.WorkerResult {
		return model.WorkerResult{WorkerID: "w1", Report: model.MetricsReport{
			Variant: model.VariantBasic,
			Metrics: []model.Metric{{Key: model.KeyTotalFixation, Value: model.Some(total)}},
		}}
	}
	path := filepath.Join(t.TempDir(), "dup.prom")
	if err := WritePromTextfile(path, []model.WorkerResult{basic(100), basic(900)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(data)
	series := `gazereport_metric{worker="w1",variant="basic",metric="total_fixation_duration"}`
	if strings.Count(out, series) != 1 || !strings.Contains(out, series+" 100") {
		t.Fatalf("expected a single w1 series from the first result:\n%s", out)
	}
	var parser expfmt.TextParser
	if _, err := parser.TextToMetricFamilies(strings.NewReader(out)); err != nil {
		t.Fatalf("textfile does not parse: %v", err)
	}
}

func TestWritePromTextfileNoResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.prom")
	if err := WritePromTextfile(path, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty textfile, got %q", data)
	}
}

func TestMetricSlug(t *testing.T) {
	cases := map[string]string{
		model.KeyTimeToFirstLabel: "time_to_first_fixation_instruction_label",
		model.KeyAOICoverage:      "aoi_coverage",
		"  Odd -- Key ":           "odd_key",
	}
	for in, want := range cases {
		if got := MetricSlug(in); got != want {
			t.Fatalf("MetricSlug(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestWriteAOIChart(t *testing.T) {
	dir := t.TempDir()
	res := sampleResults()[0]
	path := ChartPath(dir, res.WorkerID)
	if err := WriteAOIChart(path, res.WorkerID, res.Report); err != nil {
		t.Fatalf("chart: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "Instruction Label") || !strings.Contains(out, "echarts") {
		t.Fatalf("expected chart html with aoi names")
	}
	if err := WriteAOIChart(filepath.Join(dir, "x.html"), "w1", model.MetricsReport{}); err == nil {
		t.Fatalf("expected error without aoi breakdown")
	}
}
