package timing

import (
	"time"

	"github.com/verte-zerg/flashread/internal/clock"
)

// Aggregate summarizes every completed timer of a Sequence.
type Aggregate struct {
	Count         int
	TotalTarget   time.Duration
	TotalActual   time.Duration
	TotalError    time.Duration
	MeanError     time.Duration
	MaxError      time.Duration
	MaxErrorPhase string
}

// Sequence chains timers and records their metrics in completion order.
// Starting the next timer is left to the previous timer's completion
// callback.
type Sequence struct {
	clock          clock.Clock
	timers         []*Timer
	metrics        []Metrics
	shouldContinue func() bool
	active         bool
}

// NewSequence returns an inactive, empty sequence.
func NewSequence(clk clock.Clock) *Sequence {
	return &Sequence{clock: clk}
}

// SetShouldContinue installs the predicate shared by every timer added from
// now on. A nil predicate means always continue.
func (s *Sequence) SetShouldContinue(fn func() bool) {
	s.shouldContinue = fn
}

// Add registers a timer for req without starting it. The timer's metrics are
// appended to the sequence before req.OnComplete runs.
func (s *Sequence) Add(req Request) *Timer {
	onComplete := req.OnComplete
	req.OnComplete = func(m Metrics) {
		s.metrics = append(s.metrics, m)
		if onComplete != nil {
			onComplete(m)
		}
	}

	shared := s.shouldContinue
	own := req.ShouldContinue
	req.ShouldContinue = func() bool {
		if shared != nil && !shared() {
			return false
		}
		if own != nil && !own() {
			return false
		}
		return true
	}

	t := NewTimer(s.clock, req)
	s.timers = append(s.timers, t)
	return t
}

// Start marks the sequence active and resets its metrics. No timer is
// started.
func (s *Sequence) Start() {
	s.active = true
	s.metrics = nil
}

// Stop marks the sequence inactive and force-stops every registered timer.
func (s *Sequence) Stop() {
	s.active = false
	for _, t := range s.timers {
		t.Stop()
	}
}

// Clear stops and discards all timers and metrics.
func (s *Sequence) Clear() {
	s.Stop()
	s.timers = nil
	s.metrics = nil
}

// Active reports whether Start was called more recently than Stop.
func (s *Sequence) Active() bool {
	return s.active
}

// Tick polls every running timer. Timers registered during this call are
// first polled on the next one.
func (s *Sequence) Tick() {
	timers := make([]*Timer, len(s.timers))
	copy(timers, s.timers)
	for _, t := range timers {
		t.Tick()
	}
}

// AllMetrics returns a copy of the recorded metrics.
func (s *Sequence) AllMetrics() []Metrics {
	out := make([]Metrics, len(s.metrics))
	copy(out, s.metrics)
	return out
}

// AggregateStats summarizes the recorded metrics. ok is false when no timer
// has completed.
func (s *Sequence) AggregateStats() (Aggregate, bool) {
	return Summarize(s.metrics)
}

// Summarize aggregates an arbitrary list of metrics.
func Summarize(metrics []Metrics) (Aggregate, bool) {
	if len(metrics) == 0 {
		return Aggregate{}, false
	}
	var agg Aggregate
	maxAbs := time.Duration(-1)
	for _, m := range metrics {
		agg.Count++
		agg.TotalTarget += m.Target
		agg.TotalActual += m.Actual
		agg.TotalError += m.Error
		if abs(m.Error) > maxAbs {
			maxAbs = abs(m.Error)
			agg.MaxError = m.Error
			agg.MaxErrorPhase = m.Phase
		}
	}
	agg.MeanError = agg.TotalError / time.Duration(agg.Count)
	return agg, true
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
