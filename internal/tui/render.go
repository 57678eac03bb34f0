package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/flashread/internal/trial"
)

var (
	cueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	wordStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	maskStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// maskFor covers word with '#' cells, one per terminal column it occupies.
func maskFor(word string) string {
	width := runewidth.StringWidth(word)
	if width < 1 {
		width = 1
	}
	return strings.Repeat("#", width)
}

// stimulus returns the unstyled text for a phase.
func stimulus(ph trial.Phase, display string) string {
	switch ph {
	case trial.PhaseAlert:
		return "+"
	case trial.PhaseWord:
		return display
	case trial.PhaseMask:
		return maskFor(display)
	default:
		return ""
	}
}

func renderStimulus(ph trial.Phase, display string) string {
	text := stimulus(ph, display)
	if text == "" {
		return ""
	}
	switch ph {
	case trial.PhaseAlert:
		return cueStyle.Render(text)
	case trial.PhaseMask:
		return maskStyle.Render(text)
	default:
		return wordStyle.Render(text)
	}
}
