// Package statsui provides the Bubble Tea stats dashboard.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/flashread/internal/model"
	"github.com/verte-zerg/flashread/internal/stats"
	"github.com/verte-zerg/flashread/internal/store"
)

const (
	tabOverview = iota
	tabSessions
	tabMissed
	tabDrift
)

const (
	filterSince = iota
	filterLast
	filterWindow
	filterTop
)

const endedLayout = "2006-01-02 15:04"

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
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	store *store.Store
	cfg   model.StatsConfig

	report stats.Report
	errMsg string

	// driftSession is the session shown on the drift tab; it defaults to
	// the most recent one after every refresh.
	driftSession string
	drift        []model.PhaseDrift
	driftErr     string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	sessions  table.Model
	missed    table.Model
	// sessionIDs holds the session ID of each sessions table row.
	sessionIDs []string

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a stats UI model and loads the first report.
func NewModel(st *store.Store, cfg model.StatsConfig) *Model {
	m := &Model{
		store: st,
		cfg:   cfg,
		tabs:  []string{"Overview", "Sessions", "Missed Words", "Timing Drift"},
	}
	m.initInputs()
	m.initTables()
	m.initViewports()
	m.refreshReport()
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
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabSessions {
				m.selectSession(m.sessions.Cursor())
			}
			return m, nil
		case "g", "home":
			m.gotoEdge(true)
			return m, nil
		case "G", "end":
			m.gotoEdge(false)
			return m, nil
		default:
			if t := m.activeTable(); t != nil {
				var cmd tea.Cmd
				*t, cmd = t.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		filterSince:  newFilterInput("Since (YYYY-MM-DD): "),
		filterLast:   newFilterInput("Last: "),
		filterWindow: newFilterInput("Curve window: "),
		filterTop:    newFilterInput("Top missed: "),
	}
	m.setInputsFromConfig()
}

func (m *Model) initTables() {
	m.sessions = newTable(sessionColumns())
	m.missed = newTable(missedColumns(nil))
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func newTable(cols []table.Column) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithHeight(1),
	)
	t.SetStyles(tableStyles())
	return t
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) setInputsFromConfig() {
	if m.cfg.Since != nil {
		m.filterInputs[filterSince].SetValue(m.cfg.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[filterSince].SetValue("")
	}
	if m.cfg.Last > 0 {
		m.filterInputs[filterLast].SetValue(strconv.Itoa(m.cfg.Last))
	} else {
		m.filterInputs[filterLast].SetValue("")
	}
	m.filterInputs[filterWindow].SetValue(strconv.Itoa(m.cfg.CurveWindow))
	m.filterInputs[filterTop].SetValue(strconv.Itoa(m.cfg.TopMissed))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
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
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	for _, t := range []*table.Model{&m.sessions, &m.missed} {
		t.SetWidth(m.width)
		t.SetHeight(bodyHeight)
	}
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) activeTable() *table.Model {
	switch m.activeTab {
	case tabSessions:
		return &m.sessions
	case tabMissed:
		return &m.missed
	default:
		return nil
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	m.focusActiveTable()
}

func (m *Model) focusActiveTable() {
	m.sessions.Blur()
	m.missed.Blur()
	if t := m.activeTable(); t != nil {
		t.Focus()
	}
}

func (m *Model) gotoEdge(top bool) {
	if t := m.activeTable(); t != nil {
		if top {
			t.GotoTop()
		} else {
			t.GotoBottom()
		}
		return
	}
	if top {
		m.viewports[m.activeTab].GotoTop()
	} else {
		m.viewports[m.activeTab].GotoBottom()
	}
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
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Settings: since=%s  last=%s  window=%d  top=%d", since, last, m.cfg.CurveWindow, m.cfg.TopMissed)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q"
	if m.activeTab == tabSessions {
		help = "Nav: left/right  Move: up/down  Drift for session: enter  Settings: /  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  quit: ctrl+c")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	switch m.activeTab {
	case tabSessions:
		if len(m.report.Sessions) == 0 {
			return fitLines("No sessions found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.sessions.View()), m.width, height)
	case tabMissed:
		switch {
		case len(m.report.Sessions) == 0:
			return fitLines("No sessions found.", m.width, height)
		case len(m.report.MissedWords) == 0:
			return fitLines("No missed words.", m.width, height)
		default:
			return fitLines(tableMutedStyle.Render(m.missed.View()), m.width, height)
		}
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{}
		m.renderTabContents()
		return
	}
	m.errMsg = ""
	m.report = report
	m.driftErr = ""
	m.driftSession = ""
	m.drift = report.Drift
	if n := len(report.Sessions); n > 0 {
		m.driftSession = report.Sessions[n-1].SessionID
	}

	rows, ids := sessionRows(report.Sessions)
	m.sessionIDs = ids
	m.sessions.SetRows(rows)
	m.sessions.GotoTop()
	m.missed.SetColumns(missedColumns(report.MissedWords))
	m.missed.SetRows(missedRows(report.MissedWords, len(report.Sessions)))
	m.missed.GotoTop()
	m.updateLayout()
	m.renderTabContents()
}

// selectSession loads the drift of the session on the given sessions table
// row and switches to the drift tab.
func (m *Model) selectSession(row int) {
	if row < 0 || row >= len(m.sessionIDs) {
		return
	}
	id := m.sessionIDs[row]
	drift, err := m.store.PhaseDrift(context.Background(), id)
	m.driftSession = id
	if err != nil {
		m.driftErr = err.Error()
		m.drift = nil
	} else {
		m.driftErr = ""
		m.drift = drift
	}
	m.activeTab = tabDrift
	m.focusActiveTable()
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report.Sessions, m.cfg.CurveWindow, width))
	m.viewports[tabDrift].SetContent(m.renderDrift())
}

func renderOverview(sessions []model.SessionAggregate, window, width int) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}
	var buf bytes.Buffer
	if err := stats.RenderCurve(&buf, sessions, window, width); err != nil {
		return fmt.Sprintf("Failed to render curve: %v", err)
	}
	return strings.TrimRight(renderSummaryCards(sessions, width)+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(sessions []model.SessionAggregate, width int) string {
	var totalAcc, bestAcc float64
	var words int
	var exposureMs int64
	for _, s := range sessions {
		acc := stats.SessionAccuracy(s)
		totalAcc += acc
		bestAcc = max(bestAcc, acc)
		words += s.TotalWords
		exposureMs += s.ExposureMs
	}
	count := float64(len(sessions))
	cards := []string{
		metricCard("Sessions", strconv.Itoa(len(sessions))),
		metricCard("Words Shown", strconv.Itoa(words)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", totalAcc/count)),
		metricCard("Best Acc", fmt.Sprintf("%.1f%%", bestAcc)),
		metricCard("Avg Exposure", fmt.Sprintf("%.0f ms", float64(exposureMs)/count)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func (m *Model) renderDrift() string {
	if m.driftSession == "" {
		return "No sessions found."
	}
	title := headerStyle.Render("Session " + m.driftSession + m.endedSuffix(m.driftSession))
	if m.driftErr != "" {
		return title + "\n" + errorStyle.Render("Failed to load drift: "+m.driftErr)
	}
	var buf bytes.Buffer
	if err := stats.RenderDrift(&buf, m.drift); err != nil {
		return fmt.Sprintf("Failed to render drift: %v", err)
	}
	return strings.TrimRight(title+"\n"+buf.String(), "\n")
}

func (m *Model) endedSuffix(id string) string {
	for _, s := range m.report.Sessions {
		if s.SessionID == id {
			return " (" + s.EndedAt.Local().Format(endedLayout) + ")"
		}
	}
	return ""
}

func sessionColumns() []table.Column {
	return []table.Column{
		{Title: "Ended", Width: len(endedLayout)},
		{Title: "Words", Width: 5},
		{Title: "Correct", Width: 7},
		{Title: "Missed", Width: 6},
		{Title: "Accuracy", Width: 9},
		{Title: "Exposure", Width: 8},
		{Title: "Duration", Width: 8},
	}
}

// sessionRows lists sessions newest first, with the matching IDs.
func sessionRows(sessions []model.SessionAggregate) ([]table.Row, []string) {
	rows := make([]table.Row, 0, len(sessions))
	ids := make([]string, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		rows = append(rows, table.Row{
			s.EndedAt.Local().Format(endedLayout),
			strconv.Itoa(s.TotalWords),
			strconv.Itoa(s.Correct),
			strconv.Itoa(s.Incorrect),
			fmt.Sprintf("%.2f%%", stats.SessionAccuracy(s)),
			fmt.Sprintf("%d ms", s.ExposureMs),
			(time.Duration(s.DurationMs) * time.Millisecond).Round(time.Second).String(),
		})
		ids = append(ids, s.SessionID)
	}
	return rows, ids
}

func missedColumns(words []model.MissedWordAggregate) []table.Column {
	wordWidth := 4
	for _, w := range words {
		wordWidth = max(wordWidth, lipgloss.Width(w.Word))
	}
	return []table.Column{
		{Title: "Word", Width: wordWidth},
		{Title: "Misses", Width: 6},
		{Title: "Per Session", Width: 11},
	}
}

func missedRows(words []model.MissedWordAggregate, sessions int) []table.Row {
	rows := make([]table.Row, 0, len(words))
	for _, w := range words {
		perSession := 0.0
		if sessions > 0 {
			perSession = float64(w.Misses) / float64(sessions)
		}
		rows = append(rows, table.Row{
			w.Word,
			strconv.Itoa(w.Misses),
			fmt.Sprintf("%.2f", perSession),
		})
	}
	return rows
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	var since *time.Time
	if v := strings.TrimSpace(m.filterInputs[filterSince].Value()); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}
	last, err := parseCount(m.filterInputs[filterLast].Value(), 0)
	if err != nil {
		return fmt.Errorf("invalid last value (use 0 or positive integer)")
	}
	window, err := parseCount(m.filterInputs[filterWindow].Value(), m.cfg.CurveWindow)
	if err != nil || window < 1 {
		return fmt.Errorf("invalid curve window (use integer >= 1)")
	}
	top, err := parseCount(m.filterInputs[filterTop].Value(), m.cfg.TopMissed)
	if err != nil {
		return fmt.Errorf("invalid top value (use 0 or positive integer)")
	}
	m.cfg = model.StatsConfig{
		Since:       since,
		Last:        last,
		CurveWindow: window,
		TopMissed:   top,
	}
	return nil
}

// parseCount parses a non-negative integer; blank input yields def.
func parseCount(input string, def int) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return def, nil
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	if w := lipgloss.Width(line); w < width {
		return line + strings.Repeat(" ", width-w)
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
