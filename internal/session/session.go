// Package session holds the host-side session state and the reducer that is
// its only mutation path.
package session

import (
	"time"

	"github.com/verte-zerg/flashread/internal/model"
)

// Action is a mutation request applied by Reduce.
type Action interface {
	isAction()
}

// Begin resets progress for a new running session.
type Begin struct {
	SessionID string
	Words     []string
	At        time.Duration
}

// Advance moves to the next word index.
type Advance struct {
	Next int
}

// MarkError records the current word as read incorrectly.
type MarkError struct{}

// TogglePause flips the pause flag of a running session.
type TogglePause struct{}

// Stop ends the session early.
type Stop struct{}

// Finish ends the session after its last word.
type Finish struct{}

func (Begin) isAction()       {}
func (Advance) isAction()     {}
func (MarkError) isAction()   {}
func (TogglePause) isAction() {}
func (Stop) isAction()        {}
func (Finish) isAction()      {}

// Reduce returns the progress that results from applying a to p. p is never
// modified.
func Reduce(p model.Progress, a Action) model.Progress {
	switch a := a.(type) {
	case Begin:
		words := make([]string, len(a.Words))
		copy(words, a.Words)
		return model.Progress{
			SessionID: a.SessionID,
			Words:     words,
			Running:   true,
			StartedAt: a.At,
		}
	case Advance:
		if !p.Running || a.Next <= p.Index {
			return p
		}
		p.Index = a.Next
		return p
	case MarkError:
		if !p.Running || p.Index < 0 || p.Index >= len(p.Words) {
			return p
		}
		if len(p.Incorrect) >= len(p.Words) || p.IsIncorrect(p.Index) {
			return p
		}
		incorrect := make([]int, len(p.Incorrect), len(p.Incorrect)+1)
		copy(incorrect, p.Incorrect)
		p.Incorrect = append(incorrect, p.Index)
		return p
	case TogglePause:
		if !p.Running {
			return p
		}
		p.Paused = !p.Paused
		return p
	case Stop, Finish:
		p.Running = false
		p.Paused = false
		return p
	default:
		return p
	}
}
