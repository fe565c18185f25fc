// Package rng provides the seeded random source every simulation draw must use.
package rng

import (
	"math/rand/v2"
)

// Source is a deterministic generator. Two sources created with the same seed
// produce the same sequence on every platform.
type Source struct {
	seed  uint64
	draws uint64
	r     *rand.Rand
}

// New creates a source seeded with seed.
func New(seed uint64) *Source {
	return &Source{
		seed: seed,
		r:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() uint64 {
	return s.seed
}

// Draws returns how many values have been drawn so far.
func (s *Source) Draws() uint64 {
	return s.draws
}

// IntN returns a value in [0, n). It panics if n <= 0, like math/rand.
func (s *Source) IntN(n int) int {
	s.draws++
	return s.r.IntN(n)
}

// Roll returns a die roll in [1, sides].
func (s *Source) Roll(sides int) int {
	if sides <= 0 {
		return 0
	}
	return s.IntN(sides) + 1
}

// Shuffle permutes n elements in place using swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := s.IntN(i + 1)
		swap(i, j)
	}
}
