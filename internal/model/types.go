// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TextCase selects how a word is rendered.
type TextCase string

const (
	CaseOriginal  TextCase = "original"
	CaseUppercase TextCase = "uppercase"
	CaseLowercase TextCase = "lowercase"
)

// ParseTextCase accepts the three case modes, ignoring surrounding space and
// letter case.
func ParseTextCase(s string) (TextCase, error) {
	switch TextCase(strings.ToLower(strings.TrimSpace(s))) {
	case CaseOriginal, "":
		return CaseOriginal, nil
	case CaseUppercase:
		return CaseUppercase, nil
	case CaseLowercase:
		return CaseLowercase, nil
	default:
		return "", fmt.Errorf("unknown text case %q (want original, uppercase or lowercase)", s)
	}
}

// Apply transforms word according to the case mode using full Unicode case
// mapping, so a word may change length (ß becomes SS).
func (c TextCase) Apply(word string) string {
	switch c {
	case CaseUppercase:
		return cases.Upper(language.Und).String(word)
	case CaseLowercase:
		return cases.Lower(language.Und).String(word)
	default:
		return word
	}
}

// Settings are the presentation parameters consumed by the engine.
type Settings struct {
	Exposure            time.Duration
	IntervalBase        time.Duration
	IntervalVariability time.Duration
	MaskEnabled         bool
	MaskDuration        time.Duration
	TextCase            TextCase
}

// Config defines a practice run: where words come from and how they are shown.
type Config struct {
	WordListPath string
	Count        int
	Shuffle      bool
	Settings     Settings
}

// Progress is the host-owned state of a running session.
type Progress struct {
	SessionID string
	Words     []string
	Index     int
	Incorrect []int
	Running   bool
	Paused    bool
	// StartedAt is a clock reading taken when the first word started.
	StartedAt time.Duration
}

// IsIncorrect reports whether idx was marked incorrect.
func (p Progress) IsIncorrect(idx int) bool {
	for _, i := range p.Incorrect {
		if i == idx {
			return true
		}
	}
	return false
}

// Result summarizes a finished session.
type Result struct {
	SessionID   string
	TotalWords  int
	Correct     int
	Incorrect   int
	Accuracy    float64
	Duration    time.Duration
	MissedWords []string
	Settings    Settings
	StartedAt   time.Time
	EndedAt     time.Time
}

// PhaseMetric is one persisted timer measurement.
type PhaseMetric struct {
	WordIndex int
	Phase     string
	Target    time.Duration
	Actual    time.Duration
	Error     time.Duration
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
	TopMissed   int
}

// SessionAggregate summarizes a stored session for reporting.
type SessionAggregate struct {
	SessionID  string
	EndedAt    time.Time
	TotalWords int
	Correct    int
	Incorrect  int
	DurationMs int64
	ExposureMs int64
}

// MissedWordAggregate counts how often a word was missed across sessions.
type MissedWordAggregate struct {
	Word   string
	Misses int
}

// PhaseDrift aggregates timer error for one phase label.
type PhaseDrift struct {
	Phase       string
	Count       int
	MeanErrorMs float64
	MaxErrorMs  float64
}
