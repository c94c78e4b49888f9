package battle

import "math/rand"

// Rand is the subset of *rand.Rand the rules need for random picks.
type Rand interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// DefaultRand delegates to the math/rand global source, which is safe for
// concurrent use.
var DefaultRand Rand = globalRand{}

func orDefault(r Rand) Rand {
	if r == nil {
		return DefaultRand
	}
	return r
}
