package stats

import (
	"time"

	"github.com/verte-zerg/flashread/internal/model"
)

// DriftOf aggregates in-memory phase metrics the same way the store does,
// in the order phases first ran.
func DriftOf(metrics []model.PhaseMetric) []model.PhaseDrift {
	var out []model.PhaseDrift
	sums := map[string]time.Duration{}
	index := map[string]int{}
	for _, m := range metrics {
		i, ok := index[m.Phase]
		if !ok {
			i = len(out)
			index[m.Phase] = i
			out = append(out, model.PhaseDrift{Phase: m.Phase})
		}
		d := &out[i]
		d.Count++
		sums[m.Phase] += m.Error
		if abs := ms(absDuration(m.Error)); abs > d.MaxErrorMs {
			d.MaxErrorMs = abs
		}
	}
	for i := range out {
		out[i].MeanErrorMs = ms(sums[out[i].Phase]) / float64(out[i].Count)
	}
	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
