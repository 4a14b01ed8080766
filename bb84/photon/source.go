package photon

import (
	"math/rand"

	"github.com/alan-christopher/bb84sim/bb84/bitmap"
)

// A Source supplies the uniformly random bits and bases a run consumes. Every
// value is one draw from a single seeded generator, so equal seeds and equal
// call sequences produce equal output.
type Source struct {
	r    *rand.Rand
	seed int64
}

// NewSource returns a Source seeded with seed.
func NewSource(seed int64) *Source {
	return &Source{
		r:    rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the seed s was constructed with.
func (s *Source) Seed() int64 {
	return s.seed
}

// Rand exposes the underlying generator for stages that draw lazily, e.g.
// measurement collapse.
func (s *Source) Rand() *rand.Rand {
	return s.r
}

// Bits returns n independent fair bits.
func (s *Source) Bits(n int) bitmap.Dense {
	var d bitmap.Dense
	for i := 0; i < n; i++ {
		d.AppendBit(randomBit(s.r))
	}
	return d
}

// Bases returns n independent, uniformly chosen bases.
func (s *Source) Bases(n int) bitmap.Dense {
	var d bitmap.Dense
	for i := 0; i < n; i++ {
		d.AppendBit(randomBasis(s.r) == Diagonal)
	}
	return d
}
