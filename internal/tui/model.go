// Package tui provides the Bubble Tea presentation interface.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/flashread/internal/clock"
	"github.com/verte-zerg/flashread/internal/engine"
	"github.com/verte-zerg/flashread/internal/model"
	"github.com/verte-zerg/flashread/internal/stats"
	"github.com/verte-zerg/flashread/internal/timing"
)

const maxBarWidth = 40

// Saver persists finished sessions.
type Saver interface {
	InsertSession(ctx context.Context, res model.Result, metrics []model.PhaseMetric) error
}

// frameMsg carries the session generation so a frame scheduled before a
// restart does not start a second loop.
type frameMsg struct {
	gen int
}

func frame(gen int) tea.Cmd {
	return tea.Tick(timing.FrameInterval, func(time.Time) tea.Msg {
		return frameMsg{gen: gen}
	})
}

type keyMap struct {
	Mark    key.Binding
	Pause   key.Binding
	Stop    key.Binding
	Restart key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Mark:    key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space/x", "missed")),
		Pause:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Stop:    key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "stop")),
		Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "again")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// Model implements the Bubble Tea presentation UI.
type Model struct {
	engine   *engine.Engine
	saver    Saver
	words    []string
	settings model.Settings

	keys keyMap
	help help.Model
	bar  progress.Model

	width  int
	height int
	gen    int

	result  *model.Result
	stopped bool
	saveErr error
	err     error
}

// NewModel constructs a presentation model. The session starts on Init.
func NewModel(clk clock.Clock, saver Saver, words []string, settings model.Settings, opts ...engine.Option) *Model {
	m := &Model{
		saver:    saver,
		words:    words,
		settings: settings,
		keys:     defaultKeys(),
		help:     help.New(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.bar.Width = maxBarWidth
	m.engine = engine.New(clk, engine.Hooks{OnComplete: m.finishSession}, opts...)
	return m
}

// Err returns the error that prevented the session from starting.
func (m *Model) Err() error {
	return m.err
}

// Result returns the completed session, if any.
func (m *Model) Result() (model.Result, bool) {
	if m.result == nil {
		return model.Result{}, false
	}
	return *m.result, true
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.start()
}

func (m *Model) start() tea.Cmd {
	m.result = nil
	m.stopped = false
	m.saveErr = nil
	m.gen++
	if err := m.engine.Start(m.words, m.settings); err != nil {
		m.err = err
		return tea.Quit
	}
	return frame(m.gen)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(maxBarWidth, max(msg.Width-4, 1))
		return m, nil
	case frameMsg:
		if msg.gen != m.gen || !m.engine.Tick() {
			return m, nil
		}
		return m, frame(m.gen)
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.engine.Stop()
		return m, tea.Quit
	}
	if !m.engine.Running() {
		switch {
		case key.Matches(msg, m.keys.Restart):
			return m, m.start()
		case key.Matches(msg, m.keys.Stop):
			return m, tea.Quit
		}
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Mark):
		m.engine.MarkError()
	case key.Matches(msg, m.keys.Pause):
		m.engine.TogglePause()
	case key.Matches(msg, m.keys.Stop):
		m.engine.Stop()
		m.stopped = true
	}
	return m, nil
}

func (m *Model) finishSession(res model.Result) {
	m.result = &res
	if m.saver == nil {
		return
	}
	if err := m.saver.InsertSession(context.Background(), res, m.engine.Metrics()); err != nil {
		slog.Error("failed to save session", "session", res.SessionID, "err", err)
		m.saveErr = err
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch {
	case m.result != nil:
		content = m.renderSummary()
	case m.stopped:
		content = "Session stopped."
	default:
		content = m.renderStage()
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderStage() string {
	if m.engine.Paused() {
		return lipgloss.JoinVertical(lipgloss.Center,
			pausedStyle.Render("Paused"),
			"",
			footerStyle.Render("press p to resume"),
		)
	}
	stage := renderStimulus(m.engine.Phase(), m.engine.Display())
	if stage == "" {
		stage = " "
	}
	return lipgloss.JoinVertical(lipgloss.Center, stage, "", m.bar.ViewAs(m.engine.PhaseProgress()))
}

func (m *Model) renderSummary() string {
	var buf bytes.Buffer
	if err := stats.RenderResult(&buf, *m.result); err != nil {
		return err.Error()
	}
	out := strings.TrimRight(buf.String(), "\n")
	if m.saveErr != nil {
		out += "\n" + errorStyle.Render(fmt.Sprintf("not saved: %v", m.saveErr))
	}
	return out
}

func (m *Model) renderFooter() string {
	bindings := []key.Binding{m.keys.Restart, m.keys.Stop, m.keys.Quit}
	var segments []string
	if m.engine.Running() {
		p := m.engine.Progress()
		segments = append(segments,
			fmt.Sprintf("Word %d/%d", p.Index+1, len(p.Words)),
			fmt.Sprintf("Errors %d", len(p.Incorrect)),
		)
		if p.Paused {
			segments = append(segments, "Paused")
		}
		bindings = []key.Binding{m.keys.Mark, m.keys.Pause, m.keys.Stop, m.keys.Quit}
	}
	segments = append(segments, m.help.ShortHelpView(bindings))
	return footerStyle.Render(strings.Join(segments, "  "))
}
