package trial

import (
	"time"

	"github.com/verte-zerg/flashread/internal/model"
)

// Phase is one visually distinct stage of a trial.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseAlert      Phase = "alert"
	PhaseTransition Phase = "transition"
	PhaseWord       Phase = "word"
	PhaseMask       Phase = "mask"
	PhaseInterval   Phase = "interval"
	PhaseComplete   Phase = "complete"
)

// Fixed phase durations. They do not depend on settings so every word is
// preceded by the same anticipatory cue.
const (
	AlertDuration      = 300 * time.Millisecond
	TransitionDuration = 50 * time.Millisecond
)

// Trial is the full phase sequence for one word.
type Trial struct {
	Index       int
	Word        string
	Case        model.TextCase
	Exposure    time.Duration
	MaskEnabled bool
	Mask        time.Duration
	// Interval is drawn once per trial, so a resumed interval phase keeps
	// its length.
	Interval time.Duration
}

func (t *Trial) duration(p Phase) time.Duration {
	switch p {
	case PhaseAlert:
		return AlertDuration
	case PhaseTransition:
		return TransitionDuration
	case PhaseWord:
		return t.Exposure
	case PhaseMask:
		return t.Mask
	case PhaseInterval:
		return t.Interval
	default:
		return 0
	}
}

// next returns the phase that follows p. ok is false after the interval.
func (t *Trial) next(p Phase) (Phase, bool) {
	switch p {
	case PhaseAlert:
		return PhaseTransition, true
	case PhaseTransition:
		return PhaseWord, true
	case PhaseWord:
		if t.MaskEnabled {
			return PhaseMask, true
		}
		return PhaseInterval, true
	case PhaseMask:
		return PhaseInterval, true
	default:
		return PhaseIdle, false
	}
}

// display returns the text shown during p: the cased word for the word and
// mask phases, nothing otherwise.
func (t *Trial) display(p Phase) string {
	switch p {
	case PhaseWord, PhaseMask:
		return t.Case.Apply(t.Word)
	default:
		return ""
	}
}
