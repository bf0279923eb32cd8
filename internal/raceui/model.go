// Package raceui provides the Bubble Tea race browser.
package raceui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/sectionals/internal/model"
	"github.com/verte-zerg/sectionals/internal/report"
)

const (
	tabRaces = iota
	tabHorses
	tabCurves
)

const plotHeight = 12

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
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source is the read side of the race store.
type Source interface {
	ListRaces(ctx context.Context, filter model.RaceFilter) ([]model.RaceRow, error)
	GetRace(ctx context.Context, id int64) (model.RaceSummary, error)
	FindHorses(ctx context.Context, query string) ([]model.HorseRow, error)
}

// Model implements the Bubble Tea race browser.
type Model struct {
	src    Source
	filter model.RaceFilter

	tabs      []string
	activeTab int
	errMsg    string

	races      []model.RaceRow
	raceTable  table.Model
	race       model.RaceSummary
	raceID     int64
	horseTable table.Model
	curves     viewport.Model

	searchMode  bool
	searchInput textinput.Model
	query       string
	matches     []model.HorseRow

	width  int
	height int
}

// NewModel constructs a race browser over src.
func NewModel(src Source, filter model.RaceFilter) *Model {
	m := &Model{
		src:    src,
		filter: filter,
		tabs:   []string{"Races", "Horses", "Curves"},
		curves: viewport.New(0, 0),
	}
	m.searchInput = textinput.New()
	m.searchInput.Prompt = "Horse: "
	m.searchInput.Placeholder = "name"
	m.searchInput.Cursor.SetMode(cursor.CursorBlink)
	m.raceTable = newTable(raceColumns(), nil)
	m.horseTable = newTable(horseColumns(), nil)
	m.loadRaces()
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
		m.renderCurves()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.searchMode {
			return m.updateSearch(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			m.searchMode = true
			m.searchInput.SetValue(m.query)
			return m, m.searchInput.Focus()
		case "esc":
			if m.query != "" {
				m.clearSearch()
			}
			return m, nil
		case "enter":
			m.openSelected()
			return m, nil
		}
		return m.updateActive(msg)
	}
	return m, nil
}

func (m *Model) updateActive(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activeTab {
	case tabRaces:
		m.raceTable, cmd = m.raceTable.Update(msg)
	case tabHorses:
		m.horseTable, cmd = m.horseTable.Update(msg)
	default:
		m.curves, cmd = m.curves.Update(msg)
	}
	return m, cmd
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.searchMode = false
		m.searchInput.Blur()
		m.search(strings.TrimSpace(m.searchInput.Value()))
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(lipgloss.Height(activeNavStyle.Render("X")), 1) + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	tableHeight := max(bodyHeight-1, 1)
	m.raceTable.SetWidth(m.width)
	m.raceTable.SetHeight(tableHeight)
	m.horseTable.SetWidth(m.width)
	m.horseTable.SetHeight(tableHeight)
	m.curves.Width = m.width
	m.curves.Height = bodyHeight
	m.searchInput.Width = max(10, m.width-lipgloss.Width(m.searchInput.Prompt)-2)
}

func (m *Model) moveTab(delta int) {
	m.activeTab = (m.activeTab + delta + len(m.tabs)) % len(m.tabs)
	m.raceTable.Blur()
	m.horseTable.Blur()
	switch m.activeTab {
	case tabRaces:
		m.raceTable.Focus()
	case tabHorses:
		m.horseTable.Focus()
	}
}

func (m *Model) loadRaces() {
	races, err := m.src.ListRaces(context.Background(), m.filter)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.races = races
	m.raceTable.SetRows(raceRows(races))
	m.raceTable.Focus()
}

// openSelected opens the race under the cursor of the races table or of the
// horse search results.
func (m *Model) openSelected() {
	var id int64
	switch {
	case m.activeTab == tabRaces && len(m.races) > 0:
		id = m.races[m.raceTable.Cursor()].ID
	case m.activeTab == tabHorses && m.query != "" && len(m.matches) > 0:
		id = m.matches[m.horseTable.Cursor()].RaceID
	default:
		return
	}
	m.openRace(id)
}

func (m *Model) openRace(id int64) {
	race, err := m.src.GetRace(context.Background(), id)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.race = race
	m.raceID = id
	m.query = ""
	m.matches = nil
	m.horseTable.SetRows(nil)
	m.horseTable.SetColumns(horseColumns())
	m.horseTable.SetRows(horseRows(race.Horses))
	m.horseTable.SetCursor(0)
	m.renderCurves()
	m.activeTab = tabRaces
	m.moveTab(1)
}

func (m *Model) search(query string) {
	if query == "" {
		m.clearSearch()
		return
	}
	matches, err := m.src.FindHorses(context.Background(), query)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.query = query
	m.matches = matches
	m.horseTable.SetRows(nil)
	m.horseTable.SetColumns(matchColumns())
	m.horseTable.SetRows(matchRows(matches))
	m.horseTable.SetCursor(0)
	m.activeTab = tabRaces
	m.moveTab(1)
}

func (m *Model) clearSearch() {
	m.query = ""
	m.matches = nil
	m.horseTable.SetRows(nil)
	m.horseTable.SetColumns(horseColumns())
	m.horseTable.SetRows(horseRows(m.race.Horses))
}

func (m *Model) renderCurves() {
	if m.raceID == 0 {
		m.curves.SetContent("Open a race to see its speed curves.")
		return
	}
	width := report.PlotWidthFor(m.width)
	var buf bytes.Buffer
	if err := report.PlotSpeedsWithColor(&buf, m.race.Horses, width, plotHeight); err != nil {
		m.curves.SetContent("Failed to render curves.")
		return
	}
	m.curves.SetContent(buf.String())
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return m.renderTabs() + "\n" + headerStyle.Render(truncateLine(m.summary(), m.width))
}

func (m *Model) summary() string {
	course := m.filter.Course
	if course == "" {
		course = "any"
	}
	since := "any"
	if m.filter.Since != nil {
		since = m.filter.Since.Format("2006-01-02")
	}
	line := fmt.Sprintf("Races: %d  course=%s  since=%s", len(m.races), course, since)
	if m.raceID != 0 {
		line += fmt.Sprintf("  open: %s %s R%d", m.race.EventDate.Format("2006-01-02"), m.race.CourseName, m.race.RaceNumber)
	}
	if m.query != "" {
		line += fmt.Sprintf("  search=%q (%d)", m.query, len(m.matches))
	}
	return line
}

func (m *Model) renderBody() string {
	if m.searchMode {
		return m.searchInput.View()
	}
	switch m.activeTab {
	case tabRaces:
		if len(m.races) == 0 {
			return "No races stored. Run ingest first."
		}
		return tableMutedStyle.Render(m.raceTable.View())
	case tabHorses:
		if m.query != "" && len(m.matches) == 0 {
			return fmt.Sprintf("No horses match %q.", m.query)
		}
		if m.query == "" && m.raceID == 0 {
			return "Open a race with enter, or search horses with /."
		}
		return tableMutedStyle.Render(m.horseTable.View())
	default:
		return m.curves.View()
	}
}

func (m *Model) renderFooter() string {
	help := "Nav: left/right  Move: up/down  Open: enter  Search: /  Quit: q"
	if m.searchMode {
		help = "enter: search  esc: cancel"
	}
	help = headerStyle.Render(help)
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func newTable(columns []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F0F0F0")).
		Background(lipgloss.Color("#4A4A4A"))
	t.SetStyles(styles)
	return t
}

func raceColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 10},
		{Title: "Course", Width: 16},
		{Title: "R", Width: 3},
		{Title: "Race", Width: 28},
		{Title: "Finish", Width: 12},
		{Title: "Runners", Width: 7},
		{Title: "Track", Width: 12},
	}
}

func raceRows(races []model.RaceRow) []table.Row {
	rows := make([]table.Row, 0, len(races))
	for _, r := range races {
		rows = append(rows, table.Row{
			r.EventDate.Format("2006-01-02"),
			r.CourseName,
			strconv.Itoa(int(r.RaceNumber)),
			r.RaceName,
			r.FinishTime.String(),
			strconv.Itoa(r.HorseCount),
			strings.TrimSpace(r.TrackName + " " + r.Condition),
		})
	}
	return rows
}

func horseColumns() []table.Column {
	return []table.Column{
		{Title: "Pos", Width: 4},
		{Title: "Bib", Width: 4},
		{Title: "Horse", Width: 22},
		{Title: "Finish", Width: 12},
		{Title: "Margin", Width: 8},
		{Title: "Top", Width: 7},
		{Title: "Sections", Width: 8},
	}
}

func horseRows(horses []model.HorseSummary) []table.Row {
	rows := make([]table.Row, 0, len(horses))
	for _, h := range horses {
		rows = append(rows, table.Row{
			strconv.Itoa(int(h.FinalRank)),
			strconv.Itoa(int(h.Bib)),
			h.Name,
			h.FinishTime.String(),
			h.OfficialMargin.String(),
			h.TopSpeed.StringFixed(2),
			strconv.Itoa(len(h.Sections)),
		})
	}
	return rows
}

func matchColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 10},
		{Title: "Course", Width: 16},
		{Title: "R", Width: 3},
		{Title: "Horse", Width: 22},
		{Title: "Pos", Width: 4},
		{Title: "Finish", Width: 12},
	}
}

func matchRows(matches []model.HorseRow) []table.Row {
	rows := make([]table.Row, 0, len(matches))
	for _, h := range matches {
		rows = append(rows, table.Row{
			h.EventDate.Format("2006-01-02"),
			h.CourseName,
			strconv.Itoa(int(h.RaceNumber)),
			h.Name,
			strconv.Itoa(int(h.FinalRank)),
			h.FinishTime.String(),
		})
	}
	return rows
}

func padLine(line string, width int) string {
	if lineWidth := lipgloss.Width(line); lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
