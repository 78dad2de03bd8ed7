package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/verte-zerg/gazereport/internal/metrics"
	"github.com/verte-zerg/gazereport/internal/model"
	"github.com/verte-zerg/gazereport/internal/report"
)

// ChartPath returns where the AOI chart for workerID is written.
func ChartPath(outputDir, workerID string) string {
	return filepath.Join(outputDir, workerID+"_aoi.html")
}

// WriteAOIChart renders fixation time per area of interest as an HTML bar chart.
func WriteAOIChart(path, workerID string, r model.MetricsReport) error {
	if len(r.FixationByAOI) == 0 {
		return fmt.Errorf("no aoi breakdown for worker %s", workerID)
	}
	bar := newAOIChart(workerID, r)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	if err := bar.Render(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to render chart: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close chart: %w", err)
	}
	return nil
}

func newAOIChart(workerID string, r model.MetricsReport) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Worker #%s fixation time by area", workerID),
			Subtitle: report.ScoreLine(r.Score),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ms"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)

	names := report.SortedAOIs(r.FixationByAOI)
	items := make([]opts.BarData, 0, len(names))
	for _, name := range names {
		items = append(items, opts.BarData{Name: name, Value: metrics.Round2(r.FixationByAOI[name])})
	}
	bar.SetXAxis(names).AddSeries("Fixation time", items)
	return bar
}
