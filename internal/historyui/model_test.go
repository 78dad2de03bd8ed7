package historyui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/gazereport/internal/model"
)

type fakeSource struct {
	runs    []model.RunRecord
	latest  []model.WorkerRecord
	history map[string][]model.WorkerRecord
	err     error
	asked   []model.HistoryFilter
}

func (f *fakeSource) ListRuns(context.Context, int) ([]model.RunRecord, error) {
	return f.runs, f.err
}

func (f *fakeSource) ListWorkerLatest(context.Context) ([]model.WorkerRecord, error) {
	return f.latest, nil
}

func (f *fakeSource) ListWorkerReports(_ context.Context, filter model.HistoryFilter) ([]model.WorkerRecord, error) {
	f.asked = append(f.asked, filter)
	return f.history[filter.WorkerID], nil
}

func newFakeSource() *fakeSource {
	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	return &fakeSource{
		runs: []model.RunRecord{{ID: "run-1", StartedAt: at, Variant: model.VariantAOI, Processed: 2}},
		latest: []model.WorkerRecord{
			{WorkerID: "w1", Score: 90, Classification: "Efficient", CreatedAt: at},
			{WorkerID: "w2", Score: 40, Classification: "High Risk", CreatedAt: at},
		},
		history: map[string][]model.WorkerRecord{
			"w2": {
				{WorkerID: "w2", Score: 20, CreatedAt: at},
				{WorkerID: "w2", Score: 40, CreatedAt: at.Add(time.Hour)},
			},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sized(m *Model) {
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
}

func TestRunsTabShowsRuns(t *testing.T) {
	m := NewModel(newFakeSource(), model.HistoryFilter{})
	sized(m)
	view := m.View()
	if !strings.Contains(view, "Runs") || !strings.Contains(view, "run-1") {
		t.Fatalf("expected runs table in view:\n%s", view)
	}
}

func TestSelectWorkerOpensTrend(t *testing.T) {
	src := newFakeSource()
	m := NewModel(src, model.HistoryFilter{Last: 5})
	sized(m)
	m.Update(key("right"))
	if m.activeTab != tabWorkers {
		t.Fatalf("expected workers tab, got %d", m.activeTab)
	}
	m.Update(key("down"))
	m.Update(key("enter"))
	if m.activeTab != tabTrend || m.Current() != "w2" {
		t.Fatalf("expected trend for w2, got tab %d worker %q", m.activeTab, m.Current())
	}
	last := src.asked[len(src.asked)-1]
	if last.WorkerID != "w2" || last.Last != 5 {
		t.Fatalf("expected filter to carry worker and limit, got %+v", last)
	}
	view := m.View()
	if !strings.Contains(view, "efficiency score over 2 reports") {
		t.Fatalf("expected trend plot in view:\n%s", view)
	}
}

func TestPreselectedWorker(t *testing.T) {
	m := NewModel(newFakeSource(), model.HistoryFilter{WorkerID: "w2"})
	if m.activeTab != tabTrend {
		t.Fatalf("expected trend tab for preselected worker")
	}
	m.Update(key("left"))
	if m.activeTab != tabWorkers {
		t.Fatalf("expected left to move back to workers")
	}
}

func TestTrendWithoutWorker(t *testing.T) {
	if got := renderTrend("", nil, 80, false); !strings.Contains(got, "Select a worker") {
		t.Fatalf("unexpected trend prompt %q", got)
	}
	if got := renderTrend("w9", []model.WorkerRecord{{Error: "bad"}}, 80, false); !strings.Contains(got, "No scored reports") {
		t.Fatalf("unexpected trend for failures only %q", got)
	}
}

func TestTrendColor(t *testing.T) {
	records := newFakeSource().history["w2"]
	if got := renderTrend("w2", records, 80, false); strings.Contains(got, "\x1b[") {
		t.Fatalf("expected plain trend without color:\n%s", got)
	}
	if got := renderTrend("w2", records, 80, true); !strings.Contains(got, "\x1b[") {
		t.Fatalf("expected colored trend")
	}

	t.Setenv("NO_COLOR", "1")
	if m := NewModel(newFakeSource(), model.HistoryFilter{}); m.color {
		t.Fatalf("expected NO_COLOR to disable trend color")
	}
}

func TestLoadErrorShownInFooter(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("database is locked")
	m := NewModel(src, model.HistoryFilter{})
	sized(m)
	if !strings.Contains(m.View(), "database is locked") {
		t.Fatalf("expected error in footer")
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(newFakeSource(), model.HistoryFilter{})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
}
