// Package generator builds the word sequence for a session.
package generator

import (
	"math/rand"
	"time"
)

// Generator produces randomized word sequences.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Rand exposes the generator's source so interval jitter can share it.
func (g *Generator) Rand() *rand.Rand {
	return g.rnd
}

// Sequence returns count words from words. Without shuffle the list order is
// kept and truncated; with shuffle words are drawn without replacement until
// the list is exhausted, then the pool is refilled. count <= 0 uses every
// word once.
func (g *Generator) Sequence(words []string, count int, shuffle bool) []string {
	if len(words) == 0 {
		return nil
	}
	if count <= 0 {
		count = len(words)
	}
	result := make([]string, 0, count)
	if !shuffle {
		for len(result) < count {
			n := count - len(result)
			if n > len(words) {
				n = len(words)
			}
			result = append(result, words[:n]...)
		}
		return result
	}
	pool := make([]string, 0, len(words))
	for len(result) < count {
		if len(pool) == 0 {
			pool = append(pool, words...)
			g.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		}
		result = append(result, pool[len(pool)-1])
		pool = pool[:len(pool)-1]
	}
	return result
}
