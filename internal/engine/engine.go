// Package engine is the host-side facade over the trial sequencer. It owns
// the session progress, applies every change through the session reducer and
// re-synchronizes the sequencer afterwards.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/flashread/internal/clock"
	"github.com/verte-zerg/flashread/internal/model"
	"github.com/verte-zerg/flashread/internal/session"
	"github.com/verte-zerg/flashread/internal/timing"
	"github.com/verte-zerg/flashread/internal/trial"
)

// Hooks are notified as a session unfolds. Any of them may be nil.
type Hooks struct {
	OnPhase    func(phase trial.Phase, text string)
	OnAdvance  func(next int)
	OnComplete func(model.Result)
	// OnMetrics receives every completed phase measurement with the index of
	// the word it belongs to.
	OnMetrics func(index int, m timing.Metrics)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRand sets the source of interval jitter.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) { e.rnd = rnd }
}

// WithWallClock sets the wall-clock source used to stamp results.
func WithWallClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs sets the session ID generator.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// Engine runs one session at a time. It is not safe for concurrent use;
// every method must be called from the render loop.
type Engine struct {
	clock clock.Clock
	hooks Hooks
	rnd   *rand.Rand
	now   func() time.Time
	newID func() string

	progress      model.Progress
	settings      model.Settings
	seq           *trial.Sequencer
	phaseProgress float64
	metrics       []timing.Metrics
	phaseMetrics  []model.PhaseMetric
	result        *model.Result
}

// New returns an idle engine.
func New(clk clock.Clock, hooks Hooks, opts ...Option) *Engine {
	e := &Engine{
		clock: clk,
		hooks: hooks,
		now:   time.Now,
		newID: newSessionID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Start validates the input and begins a session. A running session is
// stopped first.
func (e *Engine) Start(words []string, settings model.Settings) error {
	if err := session.Validate(words, settings); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	if e.progress.Running {
		e.Stop()
	}
	e.settings = settings
	e.metrics = nil
	e.phaseMetrics = nil
	e.result = nil
	e.phaseProgress = 0
	e.seq = trial.New(trial.Config{
		Clock:    e.clock,
		Settings: settings,
		Progress: e.snapshot,
		Rand:     e.rnd,
		Now:      e.now,
		Callbacks: trial.Callbacks{
			OnPhase:    e.onPhase,
			OnProgress: e.onProgress,
			OnMetrics:  e.onMetrics,
			OnAdvance:  e.onAdvance,
			OnComplete: e.onComplete,
		},
	})
	id := e.newID()
	slog.Info("session started", "session", id, "words", len(words), "exposure", settings.Exposure)
	e.dispatch(session.Begin{SessionID: id, Words: words, At: e.clock.Now()})
	return nil
}

// MarkError records the current word as incorrect. It reports whether the
// mark was recorded; repeated marks for the same word are ignored.
func (e *Engine) MarkError() bool {
	before := len(e.progress.Incorrect)
	e.dispatch(session.MarkError{})
	recorded := len(e.progress.Incorrect) > before
	if recorded {
		slog.Debug("word marked incorrect", "index", e.progress.Index, "phase", e.Phase())
	}
	return recorded
}

// TogglePause pauses or resumes the session. Resuming restarts the
// interrupted phase from its beginning.
func (e *Engine) TogglePause() {
	e.dispatch(session.TogglePause{})
	slog.Debug("pause toggled", "paused", e.progress.Paused, "phase", e.Phase())
}

// Stop ends the session without producing a result.
func (e *Engine) Stop() {
	if !e.progress.Running {
		return
	}
	slog.Info("session stopped", "session", e.progress.SessionID, "index", e.progress.Index)
	e.dispatch(session.Stop{})
}

// Tick advances the active phase. It reports whether the session is still
// running, so it can drive timing.RunFrames directly.
func (e *Engine) Tick() bool {
	if e.seq != nil {
		e.seq.Tick()
	}
	return e.progress.Running
}

// Progress returns a copy of the session progress.
func (e *Engine) Progress() model.Progress {
	p := e.progress
	p.Words = append([]string(nil), p.Words...)
	p.Incorrect = append([]int(nil), p.Incorrect...)
	return p
}

// snapshot hands the sequencer a value copy; Reduce never mutates shared
// slices in place.
func (e *Engine) snapshot() model.Progress {
	return e.progress
}

// Running reports whether a session is in progress.
func (e *Engine) Running() bool {
	return e.progress.Running
}

// Paused reports whether the running session is paused.
func (e *Engine) Paused() bool {
	return e.progress.Paused
}

// Settings returns the settings of the current or last session.
func (e *Engine) Settings() model.Settings {
	return e.settings
}

// Phase returns the active phase.
func (e *Engine) Phase() trial.Phase {
	if e.seq == nil {
		return trial.PhaseIdle
	}
	return e.seq.Phase()
}

// Display returns the text to render for the active phase.
func (e *Engine) Display() string {
	if e.seq == nil {
		return ""
	}
	return e.seq.Display()
}

// PhaseProgress returns the completed fraction of the active phase.
func (e *Engine) PhaseProgress() float64 {
	return e.phaseProgress
}

// Metrics returns every phase measurement of the session so far.
func (e *Engine) Metrics() []model.PhaseMetric {
	out := make([]model.PhaseMetric, len(e.phaseMetrics))
	copy(out, e.phaseMetrics)
	return out
}

// Aggregate summarizes timing error across the whole session.
func (e *Engine) Aggregate() (timing.Aggregate, bool) {
	return timing.Summarize(e.metrics)
}

// Result returns the result of the last completed session.
func (e *Engine) Result() (model.Result, bool) {
	if e.result == nil {
		return model.Result{}, false
	}
	return *e.result, true
}

func (e *Engine) dispatch(a session.Action) {
	prev := e.progress
	e.progress = session.Reduce(e.progress, a)
	if e.seq == nil {
		return
	}
	_, begin := a.(session.Begin)
	if begin || prev.Index != e.progress.Index || prev.Running != e.progress.Running || prev.Paused != e.progress.Paused {
		e.seq.Sync(e.progress)
	}
}

func (e *Engine) onPhase(ph trial.Phase, text string) {
	e.phaseProgress = 0
	if e.hooks.OnPhase != nil {
		e.hooks.OnPhase(ph, text)
	}
}

func (e *Engine) onProgress(_ trial.Phase, v float64) {
	e.phaseProgress = v
}

func (e *Engine) onMetrics(index int, m timing.Metrics) {
	e.metrics = append(e.metrics, m)
	pm := model.PhaseMetric{
		WordIndex: index,
		Phase:     m.Phase,
		Target:    m.Target,
		Actual:    m.Actual,
		Error:     m.Error,
	}
	e.phaseMetrics = append(e.phaseMetrics, pm)
	if e.hooks.OnMetrics != nil {
		e.hooks.OnMetrics(index, m)
	}
}

func (e *Engine) onAdvance(next int) {
	e.dispatch(session.Advance{Next: next})
	if e.hooks.OnAdvance != nil {
		e.hooks.OnAdvance(next)
	}
}

func (e *Engine) onComplete(res model.Result) {
	e.result = &res
	e.dispatch(session.Finish{})
	slog.Info("session complete",
		"session", res.SessionID,
		"words", res.TotalWords,
		"accuracy", res.Accuracy,
		"duration", res.Duration,
	)
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(res)
	}
}
