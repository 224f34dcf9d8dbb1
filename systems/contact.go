package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
)

// Contact law constants.
const (
	// Poisson ratio assumed in the effective modulus and shear stiffness.
	contactNu = 0.3

	// jkrRangeFactor widens the soil interaction range so cohesion acts
	// slightly before geometric contact.
	jkrRangeFactor = config.CohesionRangeFactor

	// jkrPullOffFraction is the separation, as a fraction of the smaller
	// radius, at which the pull-off force still acts.
	jkrPullOffFraction = 0.1

	// jkrSurfaceEnergyScale converts cohesion strength to surface energy.
	jkrSurfaceEnergyScale = 0.2

	// packingRangeSq scales the squared interaction range used to count
	// neighbours for the packing estimate (1.5x range).
	packingRangeSq = 2.25

	// packingMaxNeighbors is the neighbour count considered fully packed.
	packingMaxNeighbors = 12

	// Plastic strain accrues per pair when the normal force exceeds
	// strainForceThreshold.
	strainForceThreshold = 100
	strainRate           = 1e-5

	// minContactDistance skips coincident pairs.
	minContactDistance = 0.001

	// minTangentialSpeed below which no tangential force is applied.
	minTangentialSpeed = 1e-6
)

// ContactParams holds the per-tick constants of the contact law, derived once
// from the simulation parameters.
type ContactParams struct {
	Model config.ContactModel

	SoilE  float64 // Young's modulus of soil, scaled
	StrawE float64 // Young's modulus of straw, scaled

	DampFactor   float64 // damping ratio from restitution
	MuSoilStraw  float64 // Coulomb coefficient when either particle is straw
	SurfaceJKR   float64 // surface energy for the JKR pull-off
	DT           float64
	MaxForce     float64 // per-contact force cap, 0 disables
	cohesiveSoil bool
}

// YoungModulus returns E = 2G(1+ν) with G scaled for stability.
func YoungModulus(m config.MaterialProperties, stiffnessScale float64) float64 {
	return 2 * m.ShearModulus * stiffnessScale * (1 + m.PoissonRatio)
}

// DampingRatio returns -ln e / sqrt(ln²e + π²), the logarithmic-decrement
// damping ratio for restitution e in (0,1].
func DampingRatio(restitution float64) float64 {
	lnE := math.Log(restitution)
	return -lnE / math.Sqrt(lnE*lnE+math.Pi*math.Pi)
}

// NewContactParams derives the contact constants for a tick.
func NewContactParams(sim *config.SimulationParams, eng *config.EngineConfig) ContactParams {
	mu := sim.Interactions.StaticFrictionSoilStraw
	if sim.StrawType == config.StrawRice {
		mu += 0.1
	}
	return ContactParams{
		Model:        sim.ContactModel,
		SoilE:        YoungModulus(sim.SoilProps, eng.StiffnessScale),
		StrawE:       YoungModulus(sim.StrawProps, eng.StiffnessScale),
		DampFactor:   DampingRatio(sim.Interactions.RestitutionCoeff),
		MuSoilStraw:  mu,
		SurfaceJKR:   sim.CohesionStrength * jkrSurfaceEnergyScale,
		DT:           eng.DT,
		MaxForce:     eng.MaxContactForce,
		cohesiveSoil: sim.ContactModel == config.ContactJKR && sim.CohesionStrength > 0,
	}
}

func (cp *ContactParams) modulus(p *components.Particle) float64 {
	if p.Kind == components.KindSoil {
		return cp.SoilE
	}
	return cp.StrawE
}

// EffectiveModulus combines two moduli harmonically.
func EffectiveModulus(e1, e2 float64) float64 {
	s := 1 - contactNu*contactNu
	return e1 * e2 / (e1*s + e2*s)
}

// harmonic returns ab/(a+b).
func harmonic(a, b float64) float64 {
	return a * b / (a + b)
}

// PairContact is one pairwise evaluation seen from particle a.
type PairContact struct {
	Force  r3.Vec  // force on a
	Normal float64 // signed normal magnitude, positive is repulsive
	Near   bool    // counts toward the packing estimate
	Active bool    // within interaction range
}

// Pair evaluates the contact force particle b exerts on particle a.
// The result is antisymmetric: Pair(b, a).Force == -Pair(a, b).Force.
func (cp *ContactParams) Pair(a, b *components.Particle) PairContact {
	var pc PairContact

	d := r3.Sub(a.Pos, b.Pos)
	distSq := r3.Norm2(d)
	rSum := a.Radius + b.Radius

	reach := rSum
	if cp.Model == config.ContactJKR && a.Kind == components.KindSoil {
		reach *= jkrRangeFactor
	}
	reachSq := reach * reach

	pc.Near = distSq < reachSq*packingRangeSq
	if distSq >= reachSq {
		return pc
	}
	dist := math.Sqrt(distSq)
	if dist < minContactDistance {
		return pc
	}
	pc.Active = true

	overlap := rSum - dist
	n := r3.Scale(1/dist, d)

	eStar := EffectiveModulus(cp.modulus(a), cp.modulus(b))
	rEff := harmonic(a.Radius, b.Radius)
	mEff := harmonic(a.Mass, b.Mass)

	dv := r3.Sub(a.Vel, b.Vel)
	vn := r3.Dot(dv, n)
	vt := r3.Sub(dv, r3.Scale(vn, n))

	var fn float64
	if overlap > 0 {
		switch cp.Model {
		case config.ContactLinearSpring:
			k := eStar * rEff
			c := 2 * math.Sqrt(mEff*k) * cp.DampFactor
			fn = k*overlap - c*vn
		default:
			kn := 2 * eStar * math.Sqrt(rEff*overlap)
			cn := 2 * math.Sqrt(mEff*kn) * cp.DampFactor
			fn = 4.0/3.0*eStar*math.Sqrt(rEff)*math.Pow(overlap, 1.5) - cn*vn
		}
	}

	if cp.cohesiveSoil && a.Kind == components.KindSoil && b.Kind == components.KindSoil {
		if overlap > -jkrPullOffFraction*math.Min(a.Radius, b.Radius) {
			fn -= 1.5 * math.Pi * rEff * cp.SurfaceJKR
		}
	}

	var ft r3.Vec
	if overlap > 0 {
		vtMag := r3.Norm(vt)
		if vtMag > minTangentialSpeed {
			kt := 8 * (eStar / (2 - contactNu)) * math.Sqrt(rEff*overlap)
			trial := kt * vtMag * cp.DT
			mu := pairFriction(a, b)
			if a.Kind == components.KindStraw || b.Kind == components.KindStraw {
				mu = cp.MuSoilStraw
			}
			if limit := mu * math.Abs(fn); trial > limit {
				trial = limit
			}
			ft = r3.Scale(-trial/vtMag, vt)
		}
	}

	pc.Normal = fn
	pc.Force = r3.Add(r3.Scale(fn, n), ft)
	if cp.MaxForce > 0 {
		if mag := r3.Norm(pc.Force); mag > cp.MaxForce {
			pc.Force = r3.Scale(cp.MaxForce/mag, pc.Force)
		}
	}
	return pc
}

// pairFriction is the Coulomb coefficient of a pair without straw: the mean
// of the two particle coefficients, so it is the same from either side.
func pairFriction(a, b *components.Particle) float64 {
	return 0.5 * (a.Friction + b.Friction)
}

// ContactSum is the gathered contact state of one particle for a tick.
type ContactSum struct {
	Force     r3.Vec
	Neighbors int     // neighbours within packing range
	Strain    float64 // plastic strain increment
}

// Density returns the packing estimate in [0,1].
func (s ContactSum) Density() float64 {
	return math.Min(1, float64(s.Neighbors)/packingMaxNeighbors)
}

// Gather sums the contact forces on particles[i] from its grid neighbours,
// skipping itself and bonded partners. It reads particles without writing
// them, so distinct indices may be gathered concurrently against the same
// grid. scratch is reused for the candidate list and returned.
func (cp *ContactParams) Gather(particles []components.Particle, i int, grid *SpatialGrid, scratch []int32) (ContactSum, []int32) {
	var sum ContactSum
	a := &particles[i]

	scratch = grid.QueryNeighborsInto(scratch[:0], a.Pos)
	for _, j := range scratch {
		if int(j) == i {
			continue
		}
		b := &particles[j]
		if a.Straw != nil && a.BondedTo(b.ID) {
			continue
		}
		pc := cp.Pair(a, b)
		if pc.Near {
			sum.Neighbors++
		}
		if !pc.Active {
			continue
		}
		sum.Force = r3.Add(sum.Force, pc.Force)
		if pc.Normal > strainForceThreshold {
			sum.Strain += pc.Normal * strainRate * cp.DT
		}
	}
	return sum, scratch
}

// ApplyStrain adds a plastic strain increment, keeping strain in [0,1].
func ApplyStrain(p *components.Particle, inc float64) {
	if inc <= 0 {
		return
	}
	p.PlasticStrain = math.Min(1, p.PlasticStrain+inc)
}
