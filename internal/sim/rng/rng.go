// Package rng provides the random streams simulations draw from.
package rng

// Source is the only randomness the simulator consumes. *math/rand.Rand
// satisfies it as well.
type Source interface {
	Intn(n int) int
}

// SplitMix is a splitmix64 stream. It is cheap to copy and its whole state is
// a single word, so a run can be captured and resumed exactly.
type SplitMix struct {
	state uint64
}

func New(seed int64) *SplitMix {
	return &SplitMix{state: uint64(seed)}
}

// Restore returns a stream positioned at a previously captured State.
func Restore(state uint64) *SplitMix {
	return &SplitMix{state: state}
}

func (s *SplitMix) State() uint64 { return s.state }

func (s *SplitMix) Uint64() uint64 {
	s.state += 0x9e3779b97f4a7c15
	return mix(s.state)
}

// Intn returns a uniform value in [0, n). It panics if n <= 0.
func (s *SplitMix) Intn(n int) int {
	if n <= 0 {
		panic("rng: invalid argument to Intn")
	}
	bound := uint64(n)
	threshold := -bound % bound
	for {
		v := s.Uint64()
		if v >= threshold {
			return int(v % bound)
		}
	}
}

// Derive returns the seed of the i-th independent stream of a batch.
func Derive(seed int64, i uint64) int64 {
	return int64(mix(uint64(seed) ^ (i * 0xbf58476d1ce4e5b9)))
}

func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Script replays a fixed list of draws. Each draw is reduced modulo n.
// It panics when exhausted, which makes unexpected draws loud in tests.
type Script struct {
	Draws []int
	pos   int
}

func (s *Script) Intn(n int) int {
	if s.pos >= len(s.Draws) {
		panic("rng: script exhausted")
	}
	v := s.Draws[s.pos]
	s.pos++
	return v % n
}

// Used reports how many draws have been consumed.
func (s *Script) Used() int { return s.pos }
