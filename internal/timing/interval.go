package timing

import (
	"math/rand"
	"time"
)

// MinInterval is the floor applied to every jittered interval.
const MinInterval = 50 * time.Millisecond

// VariableInterval returns base shifted by a uniform draw from
// [-variability, +variability], floored at MinInterval. A zero variability
// returns base unchanged. A nil rnd uses the shared math/rand source.
func VariableInterval(base, variability time.Duration, rnd *rand.Rand) time.Duration {
	if variability == 0 {
		return base
	}
	if variability < 0 {
		variability = -variability
	}
	var u float64
	if rnd != nil {
		u = rnd.Float64()
	} else {
		u = rand.Float64()
	}
	offset := time.Duration((u*2 - 1) * float64(variability))
	d := base + offset
	if d < MinInterval {
		return MinInterval
	}
	return d
}
