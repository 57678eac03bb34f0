package timing

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/flashread/internal/clock"
)

const frame = 16 * time.Millisecond

func runUntilDone(t *testing.T, clk *clock.Manual, tm *Timer, step func(i int) time.Duration) {
	t.Helper()
	for i := 0; tm.Running(); i++ {
		if i > 10000 {
			t.Fatalf("timer %q never completed", tm.Phase())
		}
		clk.Advance(step(i))
		tm.Tick()
	}
}

func TestTimerCompletesWithinTolerance(t *testing.T) {
	for _, target := range []time.Duration{
		time.Millisecond,
		50 * time.Millisecond,
		150 * time.Millisecond,
		333 * time.Millisecond,
		800 * time.Millisecond,
		1234 * time.Millisecond,
	} {
		clk := clock.NewManual(7 * time.Millisecond)
		completions := 0
		var got Metrics
		tm := NewTimer(clk, Request{
			Duration: target,
			Phase:    "word",
			OnComplete: func(m Metrics) {
				completions++
				got = m
			},
		})
		tm.Start()
		runUntilDone(t, clk, tm, func(int) time.Duration { return frame })

		if completions != 1 {
			t.Fatalf("target %v: expected 1 completion, got %d", target, completions)
		}
		if got.Actual < target {
			t.Fatalf("target %v: completed early after %v", target, got.Actual)
		}
		if got.Actual-target > 35*time.Millisecond {
			t.Fatalf("target %v: error %v exceeds tolerance", target, got.Actual-target)
		}
		if got.Error != got.Actual-target {
			t.Fatalf("target %v: error %v != actual-target %v", target, got.Error, got.Actual-target)
		}
		if got.End-got.Start != got.Actual {
			t.Fatalf("target %v: end-start %v != actual %v", target, got.End-got.Start, got.Actual)
		}
		stored, ok := tm.Metrics()
		if !ok || stored != got {
			t.Fatalf("target %v: stored metrics %+v do not match %+v", target, stored, got)
		}
	}
}

func TestTimerLateFramesDoNotAccumulate(t *testing.T) {
	clk := clock.NewManual(0)
	var got Metrics
	tm := NewTimer(clk, Request{
		Duration:   time.Second,
		OnComplete: func(m Metrics) { got = m },
	})
	tm.Start()
	// Every fifth frame arrives late.
	runUntilDone(t, clk, tm, func(i int) time.Duration {
		if i%5 == 4 {
			return 31 * time.Millisecond
		}
		return frame
	})
	if got.Error < 0 || got.Error > 31*time.Millisecond {
		t.Fatalf("expected error bounded by one frame, got %v", got.Error)
	}
}

func TestTimerProgress(t *testing.T) {
	clk := clock.NewManual(0)
	var values []float64
	tm := NewTimer(clk, Request{
		Duration:   40 * time.Millisecond,
		OnProgress: func(p float64) { values = append(values, p) },
	})
	tm.Start()
	runUntilDone(t, clk, tm, func(int) time.Duration { return 10 * time.Millisecond })

	want := []float64{0.25, 0.5, 0.75, 1}
	if len(values) != len(want) {
		t.Fatalf("expected %d progress values, got %v", len(want), values)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("progress[%d] = %v, want %v", i, values[i], want[i])
		}
	}
}

func TestTimerPredicateStopsSilently(t *testing.T) {
	clk := clock.NewManual(0)
	keepGoing := true
	completed := false
	tm := NewTimer(clk, Request{
		Duration:       100 * time.Millisecond,
		OnComplete:     func(Metrics) { completed = true },
		ShouldContinue: func() bool { return keepGoing },
	})
	tm.Start()
	clk.Advance(frame)
	tm.Tick()
	keepGoing = false
	clk.Advance(200 * time.Millisecond)
	tm.Tick()

	if tm.Running() {
		t.Fatalf("expected timer to stop once predicate returned false")
	}
	if completed {
		t.Fatalf("completion fired after predicate returned false")
	}
	if _, ok := tm.Metrics(); ok {
		t.Fatalf("metrics stored after predicate returned false")
	}
}

func TestTimerStopDiscardsRun(t *testing.T) {
	clk := clock.NewManual(0)
	completed := false
	tm := NewTimer(clk, Request{Duration: 30 * time.Millisecond, OnComplete: func(Metrics) { completed = true }})
	tm.Start()
	clk.Advance(frame)
	tm.Tick()
	tm.Stop()
	clk.Advance(time.Second)
	tm.Tick()
	if completed {
		t.Fatalf("stopped timer fired completion")
	}
	if _, ok := tm.Metrics(); ok {
		t.Fatalf("stopped timer stored metrics")
	}
}

func TestTimerDoubleStartIsNoop(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	clk := clock.NewManual(0)
	var got Metrics
	tm := NewTimer(clk, Request{Duration: 100 * time.Millisecond, Phase: "alert", OnComplete: func(m Metrics) { got = m }})
	tm.Start()
	clk.Advance(48 * time.Millisecond)
	tm.Start()
	runUntilDone(t, clk, tm, func(int) time.Duration { return frame })

	if got.Start != 0 {
		t.Fatalf("second start reset the start reading to %v", got.Start)
	}
	if !strings.Contains(buf.String(), "timer already running") {
		t.Fatalf("expected warning, got log %q", buf.String())
	}
}

func TestTimerCanRestartAfterCompletion(t *testing.T) {
	clk := clock.NewManual(0)
	completions := 0
	tm := NewTimer(clk, Request{Duration: 20 * time.Millisecond, OnComplete: func(Metrics) { completions++ }})
	for i := 0; i < 2; i++ {
		tm.Start()
		runUntilDone(t, clk, tm, func(int) time.Duration { return frame })
	}
	if completions != 2 {
		t.Fatalf("expected 2 completions, got %d", completions)
	}
}
