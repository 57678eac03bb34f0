package timing

import (
	"context"
	"testing"
	"time"

	"github.com/verte-zerg/flashread/internal/clock"
)

func TestSequenceChainsInOrder(t *testing.T) {
	clk := clock.NewManual(0)
	seq := NewSequence(clk)
	seq.Start()

	targets := []time.Duration{300 * time.Millisecond, 50 * time.Millisecond, 150 * time.Millisecond, 800 * time.Millisecond}
	phases := []string{"alert", "transition", "word", "interval"}
	var order []string
	done := false

	var startPhase func(i int)
	startPhase = func(i int) {
		if i == len(targets) {
			done = true
			return
		}
		seq.Add(Request{
			Duration: targets[i],
			Phase:    phases[i],
			OnComplete: func(m Metrics) {
				order = append(order, m.Phase)
				startPhase(i + 1)
			},
		}).Start()
	}
	startPhase(0)

	for i := 0; !done; i++ {
		if i > 1000 {
			t.Fatalf("sequence never finished")
		}
		clk.Advance(frame)
		seq.Tick()
	}

	metrics := seq.AllMetrics()
	if len(metrics) != len(phases) {
		t.Fatalf("expected %d metrics, got %d", len(phases), len(metrics))
	}
	for i, m := range metrics {
		if m.Phase != phases[i] || order[i] != phases[i] {
			t.Fatalf("metric %d phase %q, want %q", i, m.Phase, phases[i])
		}
	}

	agg, ok := seq.AggregateStats()
	if !ok {
		t.Fatalf("expected aggregate stats")
	}
	var sumErr time.Duration
	var maxAbs time.Duration
	var maxPhase string
	for _, m := range metrics {
		sumErr += m.Error
		if abs(m.Error) > maxAbs {
			maxAbs = abs(m.Error)
			maxPhase = m.Phase
		}
	}
	if agg.Count != len(phases) {
		t.Fatalf("aggregate count %d", agg.Count)
	}
	if agg.TotalActual-agg.TotalTarget != sumErr || agg.TotalError != sumErr {
		t.Fatalf("aggregate error %v (actual-target %v) != sum %v", agg.TotalError, agg.TotalActual-agg.TotalTarget, sumErr)
	}
	if abs(agg.MaxError) != maxAbs || agg.MaxErrorPhase != maxPhase {
		t.Fatalf("max error %v/%s, want %v/%s", agg.MaxError, agg.MaxErrorPhase, maxAbs, maxPhase)
	}
	if agg.MeanError != sumErr/time.Duration(len(phases)) {
		t.Fatalf("mean error %v", agg.MeanError)
	}
}

func TestSequenceSharedPredicate(t *testing.T) {
	clk := clock.NewManual(0)
	seq := NewSequence(clk)
	seq.Start()
	keepGoing := true
	seq.SetShouldContinue(func() bool { return keepGoing })

	completed := false
	tm := seq.Add(Request{Duration: 100 * time.Millisecond, OnComplete: func(Metrics) { completed = true }})
	tm.Start()
	clk.Advance(frame)
	seq.Tick()
	keepGoing = false
	clk.Advance(200 * time.Millisecond)
	seq.Tick()

	if completed || tm.Running() {
		t.Fatalf("timer ignored shared predicate")
	}
	if _, ok := seq.AggregateStats(); ok {
		t.Fatalf("expected no aggregate for halted timers")
	}
}

func TestSequenceNilPredicateContinues(t *testing.T) {
	clk := clock.NewManual(0)
	seq := NewSequence(clk)
	seq.SetShouldContinue(nil)
	completed := false
	seq.Add(Request{Duration: 20 * time.Millisecond, OnComplete: func(Metrics) { completed = true }}).Start()
	clk.Advance(frame)
	seq.Tick()
	clk.Advance(frame)
	seq.Tick()
	if !completed {
		t.Fatalf("expected completion without a predicate")
	}
}

func TestSequenceStopAndClear(t *testing.T) {
	clk := clock.NewManual(0)
	seq := NewSequence(clk)
	seq.Start()
	first := seq.Add(Request{Duration: 10 * time.Millisecond})
	first.Start()
	clk.Advance(frame)
	seq.Tick()
	second := seq.Add(Request{Duration: time.Second})
	second.Start()

	seq.Stop()
	if seq.Active() || second.Running() {
		t.Fatalf("stop left the sequence running")
	}
	if len(seq.AllMetrics()) != 1 {
		t.Fatalf("stop should keep completed metrics")
	}

	copied := seq.AllMetrics()
	copied[0].Phase = "mutated"
	if seq.AllMetrics()[0].Phase == "mutated" {
		t.Fatalf("AllMetrics returned shared storage")
	}

	seq.Clear()
	if len(seq.AllMetrics()) != 0 {
		t.Fatalf("clear kept metrics")
	}
	seq.Start()
	if !seq.Active() {
		t.Fatalf("expected active after start")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if _, ok := Summarize(nil); ok {
		t.Fatalf("expected no aggregate for empty metrics")
	}
}

func TestRunFramesStopsWhenTickReturnsFalse(t *testing.T) {
	calls := 0
	err := RunFrames(context.Background(), time.Millisecond, func() bool {
		calls++
		return calls < 3
	})
	if err != nil {
		t.Fatalf("run frames: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 ticks, got %d", calls)
	}
}

func TestRunFramesHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := RunFrames(ctx, time.Hour, func() bool {
		calls++
		return true
	})
	if err == nil {
		t.Fatalf("expected context error")
	}
	if calls != 1 {
		t.Fatalf("expected only the initial tick, got %d", calls)
	}
}
