package systems

// DefaultSeed is the seed Reset restores when given zero.
const DefaultSeed uint32 = 12345

// LCG constants (Numerical Recipes); the modulus 2^32 is the uint32 wrap.
const (
	lcgA = 1664525
	lcgC = 1013904223
)

// LCG is a deterministic linear congruential generator.
// It is owned by a simulation session, never shared between sessions.
type LCG struct {
	seed uint32
}

// NewLCG creates a generator at the given seed.
func NewLCG(seed uint32) *LCG {
	return &LCG{seed: seed}
}

// Next returns a value in [0,1).
func (r *LCG) Next() float64 {
	r.seed = r.seed*lcgA + lcgC
	return float64(r.seed) / 4294967296.0
}

// Reset restores the generator to seed, or DefaultSeed if seed is zero.
func (r *LCG) Reset(seed uint32) {
	if seed == 0 {
		seed = DefaultSeed
	}
	r.seed = seed
}

// Seed returns the current internal state.
func (r *LCG) Seed() uint32 {
	return r.seed
}

// Centered returns a value in [-0.5,0.5).
func (r *LCG) Centered() float64 {
	return r.Next() - 0.5
}

// SetState restores an internal state previously read with Seed. Unlike
// Reset, zero is taken literally.
func (r *LCG) SetState(state uint32) {
	r.seed = state
}
