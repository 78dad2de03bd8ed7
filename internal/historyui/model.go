// Package historyui provides the Bubble Tea run history browser.
package historyui

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/gazereport/internal/metrics"
	"github.com/verte-zerg/gazereport/internal/model"
	"github.com/verte-zerg/gazereport/internal/plot"
	"github.com/verte-zerg/gazereport/internal/report"
)

const (
	tabRuns = iota
	tabWorkers
	tabTrend
)

const (
	plotHeight = 10
	runLimit   = 200
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source is the read side of the history store.
type Source interface {
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	ListWorkerLatest(ctx context.Context) ([]model.WorkerRecord, error)
	ListWorkerReports(ctx context.Context, filter model.HistoryFilter) ([]model.WorkerRecord, error)
}

// Model implements the Bubble Tea history UI.
type Model struct {
	source Source
	filter model.HistoryFilter

	runs    []model.RunRecord
	latest  []model.WorkerRecord
	trend   []model.WorkerRecord
	errMsg  string
	current string

	tabs      []string
	activeTab int
	runTable  table.Model
	workers   table.Model
	trendView viewport.Model

	width  int
	height int
	color  bool
}

// NewModel constructs a history UI model. A WorkerID in filter preselects
// that worker's trend.
func NewModel(src Source, filter model.HistoryFilter) *Model {
	m := &Model{
		source:    src,
		filter:    filter,
		tabs:      []string{"Runs", "Workers", "Trend"},
		runTable:  newTable(columnsFor(report.RunHeaders)),
		workers:   newTable(columnsFor(report.WorkerHeaders)),
		trendView: viewport.New(0, 0),
		current:   filter.WorkerID,
		color:     plot.UseColor(os.Stdout),
	}
	m.refresh()
	if m.current != "" {
		m.activeTab = tabTrend
	}
	m.focusActive()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTrend()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "r":
			m.refresh()
			return m, nil
		case "enter":
			if m.activeTab == tabWorkers {
				m.selectWorker()
				return m, tea.ClearScreen
			}
			return m, nil
		}
		var cmd tea.Cmd
		switch m.activeTab {
		case tabRuns:
			m.runTable, cmd = m.runTable.Update(msg)
		case tabWorkers:
			m.workers, cmd = m.workers.Update(msg)
		default:
			m.trendView, cmd = m.trendView.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderTabs(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// Current returns the worker shown on the Trend tab.
func (m *Model) Current() string {
	return m.current
}

func (m *Model) refresh() {
	ctx := context.Background()
	m.errMsg = ""
	runs, err := m.source.ListRuns(ctx, runLimit)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load runs: %v", err)
	}
	m.runs = runs
	latest, err := m.source.ListWorkerLatest(ctx)
	if err != nil {
		m.errMsg = fmt.Sprintf("failed to load workers: %v", err)
	}
	m.latest = latest

	runRows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		runRows = append(runRows, report.RunRow(run))
	}
	m.runTable.SetRows(runRows)
	workerRows := make([]table.Row, 0, len(latest))
	for _, rec := range latest {
		workerRows = append(workerRows, report.WorkerRow(rec))
	}
	m.workers.SetRows(workerRows)
	m.loadTrend()
}

func (m *Model) selectWorker() {
	idx := m.workers.Cursor()
	if idx < 0 || idx >= len(m.latest) {
		return
	}
	m.current = m.latest[idx].WorkerID
	m.loadTrend()
	m.activeTab = tabTrend
	m.focusActive()
}

func (m *Model) loadTrend() {
	m.trend = nil
	if m.current != "" {
		filter := m.filter
		filter.WorkerID = m.current
		records, err := m.source.ListWorkerReports(context.Background(), filter)
		if err != nil {
			m.errMsg = fmt.Sprintf("failed to load history for %s: %v", m.current, err)
		}
		m.trend = records
	}
	m.renderTrend()
}

func (m *Model) renderTrend() {
	m.trendView.SetContent(renderTrend(m.current, m.trend, m.width, m.color))
	m.trendView.GotoTop()
}

func renderTrend(workerID string, records []model.WorkerRecord, width int, color bool) string {
	if workerID == "" {
		return "Select a worker on the Workers tab with enter."
	}
	var scores []float64
	for _, rec := range records {
		if rec.Error == "" {
			scores = append(scores, float64(rec.Score))
		}
	}
	if len(scores) == 0 {
		return fmt.Sprintf("No scored reports for worker %s.", workerID)
	}

	var buf bytes.Buffer
	opts := plot.Options{
		Height: plotHeight,
		Guides: []float64{metrics.ThresholdEfficient, metrics.ThresholdAcceptable, metrics.ThresholdNeedsAttention},
		Color:  color,
	}
	if width > 0 {
		opts.Width = plot.PlotWidthFor(width, len("100"))
	}
	title := fmt.Sprintf("Worker %s: efficiency score over %d reports", workerID, len(scores))
	if err := plot.PlotSeries(&buf, title, []plot.Series{{Name: workerID, Values: scores}}, opts); err != nil {
		return fmt.Sprintf("Failed to render trend: %v", err)
	}
	last := scores[len(scores)-1]
	buf.WriteString(fmt.Sprintf("\nLatest: %s/100 (%s)  Best: %s  Worst: %s\n",
		formatScore(last), metrics.Classify(int(last)), formatScore(maxOf(scores)), formatScore(minOf(scores))))
	var rows bytes.Buffer
	if err := report.WriteWorkerHistory(&rows, records); err == nil {
		buf.WriteString("\n")
		buf.Write(rows.Bytes())
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	m.focusActive()
}

func (m *Model) focusActive() {
	m.runTable.Blur()
	m.workers.Blur()
	switch m.activeTab {
	case tabRuns:
		m.runTable.Focus()
	case tabWorkers:
		m.workers.Focus()
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(1, lipgloss.Height(activeNavStyle.Render("X")))
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.trendView.Width = m.width
	m.trendView.Height = bodyHeight
	for _, t := range []*table.Model{&m.runTable, &m.workers} {
		t.SetWidth(m.width)
		t.SetHeight(max(1, bodyHeight-1))
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		label := tab
		if i == tabTrend && m.current != "" {
			label = fmt.Sprintf("%s: %s", tab, m.current)
		}
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(label))
		} else {
			parts = append(parts, inactiveNavStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderBody() string {
	switch m.activeTab {
	case tabRuns:
		if len(m.runs) == 0 {
			return "No runs recorded."
		}
		return mutedStyle.Render(m.runTable.View())
	case tabWorkers:
		if len(m.latest) == 0 {
			return "No worker reports recorded."
		}
		return mutedStyle.Render(m.workers.View())
	default:
		return m.trendView.View()
	}
}

func (m *Model) renderFooter() string {
	help := "Nav: left/right  Scroll: up/down  Refresh: r  Quit: q"
	if m.activeTab == tabWorkers {
		help = "Nav: left/right  Scroll: up/down  Trend: enter  Refresh: r  Quit: q"
	}
	footer := headerStyle.Render(help)
	if m.errMsg != "" {
		footer += "\n" + errorStyle.Render(m.errMsg)
	}
	return footer
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		PaddingLeft(0)
	styles.Cell = styles.Cell.PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	t.SetStyles(styles)
	return t
}

// columnsFor sizes columns to fit their title and typical content.
func columnsFor(headers []string) []table.Column {
	columns := make([]table.Column, len(headers))
	for i, title := range headers {
		width := max(lipgloss.Width(title), 10)
		if title == "Started" || title == "Recorded" {
			width = len(report.HistoryTimeLayout)
		}
		columns[i] = table.Column{Title: title, Width: width}
	}
	return columns
}

func formatScore(v float64) string {
	return strconv.Itoa(int(v))
}

func maxOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		out = max(out, v)
	}
	return out
}

func minOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		out = min(out, v)
	}
	return out
}

func fitLines(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if w := lipgloss.Width(line); w < width {
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
