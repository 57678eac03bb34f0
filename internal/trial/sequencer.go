// Package trial drives one word at a time through the alert, transition,
// word, mask and interval phases.
package trial

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/verte-zerg/flashread/internal/clock"
	"github.com/verte-zerg/flashread/internal/model"
	"github.com/verte-zerg/flashread/internal/session"
	"github.com/verte-zerg/flashread/internal/timing"
)

// Callbacks are the sequencer's outbound hooks. Any of them may be nil.
type Callbacks struct {
	// OnPhase receives each phase as it begins together with the text to
	// show, which is empty outside the word and mask phases.
	OnPhase    func(phase Phase, text string)
	OnProgress func(phase Phase, progress float64)
	OnMetrics  func(index int, m timing.Metrics)
	// OnAdvance asks the host to move to the next word.
	OnAdvance  func(next int)
	OnComplete func(model.Result)
}

// Config wires a Sequencer.
type Config struct {
	Clock    clock.Clock
	Settings model.Settings
	// Progress returns the host's current state. The sequencer only reads it.
	Progress  func() model.Progress
	Callbacks Callbacks
	// Rand drives interval jitter. Nil uses the shared math/rand source.
	Rand *rand.Rand
	// Now stamps results with wall-clock time. Nil uses time.Now.
	Now func() time.Time
}

// Sequencer is the per-trial state machine. It holds no state beyond the
// trial in flight and is not safe for concurrent use.
type Sequencer struct {
	cfg Config
	seq *timing.Sequence

	trial   *Trial
	phase   Phase
	active  *timing.Timer
	paused  bool
	display string
}

// New returns an idle Sequencer.
func New(cfg Config) *Sequencer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sequencer{
		cfg:   cfg,
		seq:   timing.NewSequence(cfg.Clock),
		phase: PhaseIdle,
	}
}

// Phase returns the active phase.
func (s *Sequencer) Phase() Phase {
	return s.phase
}

// Display returns the text for the active phase.
func (s *Sequencer) Display() string {
	return s.display
}

// Trial returns a copy of the trial in flight.
func (s *Sequencer) Trial() (Trial, bool) {
	if s.trial == nil {
		return Trial{}, false
	}
	return *s.trial, true
}

// Metrics returns the completed phase metrics of the trial in flight.
func (s *Sequencer) Metrics() []timing.Metrics {
	return s.seq.AllMetrics()
}

// Aggregate summarizes the completed phases of the trial in flight.
func (s *Sequencer) Aggregate() (timing.Aggregate, bool) {
	return s.seq.AggregateStats()
}

// Tick polls the active phase timer. Call it once per display refresh.
func (s *Sequencer) Tick() {
	s.seq.Tick()
}

// Sync reconciles the sequencer with the host's progress. The host calls it
// whenever the word index, run flag or pause flag changes.
func (s *Sequencer) Sync(p model.Progress) {
	if !p.Running {
		s.halt()
		return
	}
	if p.Paused {
		// The shared predicate stops the active phase on its next tick.
		s.paused = true
		return
	}
	if p.Index < 0 || p.Index >= len(p.Words) {
		return
	}
	if s.trial == nil || s.trial.Index != p.Index {
		s.begin(p)
		return
	}
	switch s.phase {
	case PhaseIdle, PhaseComplete:
		return
	}
	if !s.paused && s.active != nil && s.active.Running() {
		return
	}
	// Resuming discards partial progress within the interrupted phase.
	s.paused = false
	if s.active != nil {
		s.active.Stop()
	}
	slog.Debug("restarting phase", "phase", s.phase, "index", s.trial.Index)
	s.enter(s.phase)
}

func (s *Sequencer) begin(p model.Progress) {
	st := s.cfg.Settings
	tr := &Trial{
		Index:       p.Index,
		Word:        p.Words[p.Index],
		Case:        st.TextCase,
		Exposure:    st.Exposure,
		MaskEnabled: st.MaskEnabled,
		Mask:        st.MaskDuration,
		Interval:    timing.VariableInterval(st.IntervalBase, st.IntervalVariability, s.cfg.Rand),
	}
	s.seq.Clear()
	s.seq.Start()
	s.trial = tr
	s.paused = false
	idx := tr.Index
	s.seq.SetShouldContinue(func() bool {
		q := s.cfg.Progress()
		return q.Running && !q.Paused && q.Index == idx
	})
	slog.Debug("trial started", "index", idx, "interval", tr.Interval)
	s.enter(PhaseAlert)
}

func (s *Sequencer) enter(ph Phase) {
	tr := s.trial
	s.setPhase(ph, tr.display(ph))
	s.active = s.seq.Add(timing.Request{
		Duration: tr.duration(ph),
		Phase:    string(ph),
		OnProgress: func(v float64) {
			if s.cfg.Callbacks.OnProgress != nil {
				s.cfg.Callbacks.OnProgress(ph, v)
			}
		},
		OnComplete: func(m timing.Metrics) {
			s.phaseDone(tr, ph, m)
		},
	})
	s.active.Start()
}

func (s *Sequencer) phaseDone(tr *Trial, ph Phase, m timing.Metrics) {
	if s.cfg.Callbacks.OnMetrics != nil {
		s.cfg.Callbacks.OnMetrics(tr.Index, m)
	}
	if s.trial != tr {
		return
	}
	if next, ok := tr.next(ph); ok {
		s.enter(next)
		return
	}
	s.active = nil

	p := s.cfg.Progress()
	next := tr.Index + 1
	if next >= len(p.Words) {
		s.setPhase(PhaseComplete, "")
		s.seq.Stop()
		res := session.BuildResult(p, s.cfg.Settings, s.cfg.Clock.Now()-p.StartedAt, s.cfg.Now())
		if s.cfg.Callbacks.OnComplete != nil {
			s.cfg.Callbacks.OnComplete(res)
		}
		return
	}
	s.phase = PhaseIdle
	s.display = ""
	if s.cfg.Callbacks.OnAdvance != nil {
		s.cfg.Callbacks.OnAdvance(next)
	}
}

func (s *Sequencer) halt() {
	s.seq.Stop()
	s.active = nil
	s.paused = false
	if s.trial == nil && s.phase == PhaseIdle {
		return
	}
	s.trial = nil
	if s.phase != PhaseComplete {
		s.setPhase(PhaseIdle, "")
	}
}

func (s *Sequencer) setPhase(ph Phase, text string) {
	s.phase = ph
	s.display = text
	if s.cfg.Callbacks.OnPhase != nil {
		s.cfg.Callbacks.OnPhase(ph, text)
	}
}
