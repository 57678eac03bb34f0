package timing

import (
	"log/slog"
	"math"
	"time"

	"github.com/verte-zerg/flashread/internal/clock"
)

// Request configures a single Timer run.
type Request struct {
	Duration time.Duration
	Phase    string

	OnComplete func(Metrics)
	// OnProgress receives min(elapsed/Duration, 1) on every tick.
	OnProgress func(float64)
	// ShouldContinue is polled on every tick before completion is checked.
	// Returning false stops the timer without completion or metrics.
	ShouldContinue func() bool
}

// Metrics describes one naturally completed Timer run. Start and End are
// clock readings.
type Metrics struct {
	Phase    string
	Start    time.Duration
	End      time.Duration
	Target   time.Duration
	Actual   time.Duration
	Error    time.Duration
	ErrorPct float64
}

// Timer is a single-shot countdown polled by Tick.
type Timer struct {
	clock clock.Clock
	req   Request

	running bool
	start   time.Duration

	metrics    Metrics
	hasMetrics bool
}

// NewTimer returns a stopped timer for req.
func NewTimer(clk clock.Clock, req Request) *Timer {
	return &Timer{clock: clk, req: req}
}

// Start begins counting from the current clock reading. Starting a running
// timer logs a warning and does nothing.
func (t *Timer) Start() {
	if t.running {
		slog.Warn("timer already running", "phase", t.req.Phase)
		return
	}
	t.running = true
	t.start = t.clock.Now()
}

// Stop cancels the run without firing completion.
func (t *Timer) Stop() {
	t.running = false
	t.start = 0
}

// Running reports whether the timer is counting.
func (t *Timer) Running() bool {
	return t.running
}

// Phase returns the request's phase label.
func (t *Timer) Phase() string {
	return t.req.Phase
}

// Metrics returns the last completed run. ok is false until a run completes.
func (t *Timer) Metrics() (m Metrics, ok bool) {
	return t.metrics, t.hasMetrics
}

// Tick polls the clock once. It must be called on every display refresh
// while the timer runs.
func (t *Timer) Tick() {
	if !t.running {
		return
	}
	now := t.clock.Now()
	elapsed := now - t.start
	if t.req.OnProgress != nil {
		t.req.OnProgress(progressOf(elapsed, t.req.Duration))
		if !t.running {
			return
		}
	}
	if t.req.ShouldContinue != nil && !t.req.ShouldContinue() {
		slog.Debug("timer halted", "phase", t.req.Phase, "elapsed", elapsed)
		t.Stop()
		return
	}
	if elapsed < t.req.Duration {
		return
	}

	m := newMetrics(t.req.Phase, t.start, now, t.req.Duration)
	t.metrics = m
	t.hasMetrics = true
	t.running = false
	if t.req.OnComplete != nil {
		t.req.OnComplete(m)
	}
}

func newMetrics(phase string, start, end, target time.Duration) Metrics {
	actual := end - start
	m := Metrics{
		Phase:  phase,
		Start:  start,
		End:    end,
		Target: target,
		Actual: actual,
		Error:  actual - target,
	}
	if target > 0 {
		m.ErrorPct = float64(m.Error) / float64(target) * 100
	}
	return m
}

func progressOf(elapsed, target time.Duration) float64 {
	if target <= 0 {
		return 1
	}
	p := float64(elapsed) / float64(target)
	return math.Max(0, math.Min(p, 1))
}
