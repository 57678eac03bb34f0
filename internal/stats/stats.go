// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/flashread/internal/model"
	"github.com/verte-zerg/flashread/internal/session"
	"github.com/verte-zerg/flashread/internal/timing"
)

const sparkChars = " .:-=+*#%@"

// SessionAccuracy returns a stored session's accuracy percentage.
func SessionAccuracy(s model.SessionAggregate) float64 {
	return session.Accuracy(s.Correct, s.TotalWords)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := minMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func minMax(values []float64) (float64, float64) {
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

// RenderSummary prints a summary for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalAcc, bestAcc float64
	var words int
	var exposureMs int64
	for _, s := range sessions {
		acc := SessionAccuracy(s)
		totalAcc += acc
		if acc > bestAcc {
			bestAcc = acc
		}
		words += s.TotalWords
		exposureMs += s.ExposureMs
	}
	count := float64(len(sessions))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Words shown: %d", words),
		fmt.Sprintf("Avg Accuracy: %.2f%%", totalAcc/count),
		fmt.Sprintf("Best Accuracy: %.2f%%", bestAcc),
		fmt.Sprintf("Avg Exposure: %.0f ms", float64(exposureMs)/count),
		"",
	}
	return writeLines(w, lines)
}

// RenderCurve prints the moving-average accuracy as a sparkline no wider than
// width. A width of 0 uses the terminal width.
func RenderCurve(w io.Writer, sessions []model.SessionAggregate, window, width int) error {
	if len(sessions) == 0 {
		return nil
	}
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		accs[i] = SessionAccuracy(s)
	}
	accs = MovingAverage(accs, window)
	if width <= 0 {
		width = TerminalWidth()
	}
	if len(accs) > width {
		accs = accs[len(accs)-width:]
	}
	minVal, maxVal := minMax(accs)
	return writeLines(w, []string{
		fmt.Sprintf("Accuracy (moving average, window %d)", window),
		Sparkline(accs),
		fmt.Sprintf("min=%.2f%% max=%.2f%% last=%.2f%%", minVal, maxVal, accs[len(accs)-1]),
		"",
	})
}

// RenderMissedWords prints the most missed words.
func RenderMissedWords(w io.Writer, words []model.MissedWordAggregate) error {
	if len(words) == 0 {
		_, err := fmt.Fprintln(w, "No missed words.")
		return err
	}
	rows := make([][]string, 0, len(words))
	for _, mw := range words {
		rows = append(rows, []string{mw.Word, fmt.Sprintf("%d", mw.Misses)})
	}
	cols := []column{{title: "Word"}, {title: "Misses", numeric: true}}
	lines := append([]string{"Most Missed Words"}, renderTable(cols, rows)...)
	return writeLines(w, append(lines, ""))
}

// RenderDrift prints per-phase timing error.
func RenderDrift(w io.Writer, drift []model.PhaseDrift) error {
	if len(drift) == 0 {
		_, err := fmt.Fprintln(w, "No timing data.")
		return err
	}
	rows := make([][]string, 0, len(drift))
	for _, d := range drift {
		rows = append(rows, []string{
			d.Phase,
			fmt.Sprintf("%d", d.Count),
			fmt.Sprintf("%+.2f", d.MeanErrorMs),
			fmt.Sprintf("%.2f", d.MaxErrorMs),
		})
	}
	cols := []column{
		{title: "Phase"},
		{title: "Count", numeric: true},
		{title: "Mean Error (ms)", numeric: true},
		{title: "Max |Error| (ms)", numeric: true},
	}
	lines := append([]string{"Timing Drift"}, renderTable(cols, rows)...)
	return writeLines(w, append(lines, ""))
}

// RenderResult prints a finished session.
func RenderResult(w io.Writer, res model.Result) error {
	lines := []string{
		fmt.Sprintf("Words: %d  Correct: %d  Incorrect: %d", res.TotalWords, res.Correct, res.Incorrect),
		fmt.Sprintf("Accuracy: %.2f%%", res.Accuracy),
		fmt.Sprintf("Duration: %s", res.Duration.Round(1e6)),
	}
	if len(res.MissedWords) > 0 {
		lines = append(lines, "Missed: "+strings.Join(res.MissedWords, ", "))
	}
	return writeLines(w, lines)
}

// RenderAggregate prints timing aggregate statistics.
func RenderAggregate(w io.Writer, agg timing.Aggregate) error {
	return writeLines(w, []string{
		fmt.Sprintf("Phases: %d", agg.Count),
		fmt.Sprintf("Target: %s  Actual: %s", agg.TotalTarget, agg.TotalActual),
		fmt.Sprintf("Total error: %s  Mean error: %s", agg.TotalError, agg.MeanError),
		fmt.Sprintf("Max error: %s (%s)", agg.MaxError, agg.MaxErrorPhase),
	})
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
