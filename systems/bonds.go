package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
)

const (
	// bondRestFraction is the rest length as a fraction of segment length.
	bondRestFraction = 0.9
	// bondTolerance is the dead band, in mm, around the rest length.
	bondTolerance = 0.5
	// bondStiffnessScale multiplies E·r to give the spring constant.
	bondStiffnessScale = 10
)

// IDIndex maps particle ids to slice indices. Population is fixed within a
// run, so it is built once per initialization.
type IDIndex map[int32]int

// BuildIDIndex indexes particles by id.
func BuildIDIndex(particles []components.Particle) IDIndex {
	idx := make(IDIndex, len(particles))
	for i := range particles {
		idx[particles[i].ID] = i
	}
	return idx
}

// BondParams holds the straw chain spring constants.
type BondParams struct {
	RestLength float64
	Tolerance  float64
	StrawE     float64
	BreakForce float64 // 0 disables breakage
}

// NewBondParams derives bond constants from the simulation parameters.
func NewBondParams(sim *config.SimulationParams, eng *config.EngineConfig) BondParams {
	bp := BondParams{
		RestLength: eng.StrawSegmentLength * bondRestFraction,
		Tolerance:  bondTolerance,
		StrawE:     YoungModulus(sim.StrawProps, eng.StiffnessScale),
	}
	if sim.EnableBreakage {
		bp.BreakForce = sim.BreakageThreshold * eng.BreakageScale
	}
	return bp
}

// Force returns the spring force on a from its bond to b and the signed spring
// magnitude (positive when stretched). b receives the negation.
func (bp *BondParams) Force(a, b *components.Particle) (r3.Vec, float64) {
	d := r3.Sub(b.Pos, a.Pos)
	dist := r3.Norm(d)
	if dist < minContactDistance {
		return r3.Vec{}, 0
	}
	stretch := dist - bp.RestLength
	if math.Abs(stretch) <= bp.Tolerance {
		return r3.Vec{}, 0
	}
	k := bp.StrawE * 0.5 * (a.Radius + b.Radius) * bondStiffnessScale
	mag := stretch * k
	return r3.Scale(mag/dist, d), mag
}

// Apply accumulates bond forces into forces, indexed like particles, and
// removes bonds whose spring force exceeds BreakForce from both endpoints.
// Each bond is evaluated once, from its lower-id end. Returns the number of
// bonds broken.
func (bp *BondParams) Apply(particles []components.Particle, index IDIndex, forces []r3.Vec) int {
	var broken [][2]int
	for i := range particles {
		a := &particles[i]
		for _, id := range a.Bonds() {
			if id <= a.ID {
				continue
			}
			j, ok := index[id]
			if !ok {
				continue
			}
			f, mag := bp.Force(a, &particles[j])
			if bp.BreakForce > 0 && math.Abs(mag) > bp.BreakForce {
				broken = append(broken, [2]int{i, j})
				continue
			}
			forces[i] = r3.Add(forces[i], f)
			forces[j] = r3.Sub(forces[j], f)
		}
	}
	for _, pair := range broken {
		components.Unbond(&particles[pair[0]], &particles[pair[1]])
	}
	return len(broken)
}
