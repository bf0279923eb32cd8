package raceui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/verte-zerg/sectionals/internal/model"
)

type fakeSource struct {
	races   []model.RaceRow
	summary map[int64]model.RaceSummary
	queries []string
}

func (f *fakeSource) ListRaces(context.Context, model.RaceFilter) ([]model.RaceRow, error) {
	return f.races, nil
}

func (f *fakeSource) GetRace(_ context.Context, id int64) (model.RaceSummary, error) {
	return f.summary[id], nil
}

func (f *fakeSource) FindHorses(_ context.Context, query string) ([]model.HorseRow, error) {
	f.queries = append(f.queries, query)
	return []model.HorseRow{{RaceID: 2, Name: "Café Society", CourseName: "Happy Valley", RaceNumber: 4}}, nil
}

func newFakeSource() *fakeSource {
	day := time.Date(2023, 5, 14, 0, 0, 0, 0, time.UTC)
	race := func(name string) model.RaceSummary {
		r := model.NewRaceSummary()
		r.EventDate = day
		h := model.NewHorseSummary()
		h.Name = name
		h.Speeds = []model.Pair{{Index: 1, Value: decimal.NewFromInt(15)}, {Index: 2, Value: decimal.NewFromInt(16)}}
		r.Horses = append(r.Horses, h)
		return r
	}
	return &fakeSource{
		races: []model.RaceRow{
			{ID: 1, EventDate: day, CourseName: "Sha Tin", RaceNumber: 1, HorseCount: 1},
			{ID: 2, EventDate: day, CourseName: "Happy Valley", RaceNumber: 4, HorseCount: 1},
		},
		summary: map[int64]model.RaceSummary{1: race("Golden Sixty"), 2: race("Café Society")},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestOpenRaceSwitchesToHorses(t *testing.T) {
	m := NewModel(newFakeSource(), model.RaceFilter{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	m.Update(key("enter"))
	if m.activeTab != tabHorses || m.raceID != 1 {
		t.Fatalf("expected race 1 on horses tab, got tab %d race %d", m.activeTab, m.raceID)
	}
	if !strings.Contains(m.View(), "Golden Sixty") {
		t.Fatalf("expected horse in view:\n%s", m.View())
	}

	m.Update(key("right"))
	if m.activeTab != tabCurves {
		t.Fatalf("expected curves tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.curves.View(), "Legend:") {
		t.Fatalf("expected plot legend in curves view")
	}
}

func TestSearchOpensMatchingRace(t *testing.T) {
	src := newFakeSource()
	m := NewModel(src, model.RaceFilter{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	m.Update(key("/"))
	if !m.searchMode {
		t.Fatalf("expected search mode")
	}
	m.Update(key("q"))
	if !m.searchMode || m.searchInput.Value() != "q" {
		t.Fatalf("expected q typed into search, got %q", m.searchInput.Value())
	}
	m.Update(key("enter"))
	if len(src.queries) != 1 || src.queries[0] != "q" {
		t.Fatalf("unexpected queries %v", src.queries)
	}
	if m.activeTab != tabHorses || len(m.matches) != 1 {
		t.Fatalf("expected search results on horses tab")
	}

	m.Update(key("enter"))
	if m.raceID != 2 || m.query != "" {
		t.Fatalf("expected match race opened, got race %d query %q", m.raceID, m.query)
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(newFakeSource(), model.RaceFilter{})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
}

func TestViewEmptyStore(t *testing.T) {
	m := NewModel(&fakeSource{}, model.RaceFilter{Course: "Sha Tin"})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	view := m.View()
	if !strings.Contains(view, "No races stored") || !strings.Contains(view, "course=Sha Tin") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}
