package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
)

// ToolAccumulator collects the scalar side channels of a tick's tool contact.
type ToolAccumulator struct {
	Force  float64 // summed normal force magnitude
	Draft  float64 // summed horizontal (x) force
	Torque float64
	Moved  int // particles touched this tick
}

// Engage evaluates model against p and counts the particle if touched.
// A nil model never touches anything.
func (a *ToolAccumulator) Engage(model ToolModel, p *components.Particle, pose components.ToolPose, rng *LCG) ToolContact {
	if model == nil {
		return ToolContact{}
	}
	c := model.Contact(p, pose, rng, a)
	if c.Touched {
		a.Moved++
	}
	return c
}

// Reset zeroes the accumulator for a new tick.
func (a *ToolAccumulator) Reset() {
	*a = ToolAccumulator{}
}

// ToolContact is the additive force a tool applies to a single particle.
type ToolContact struct {
	Force   r3.Vec
	Touched bool
}

// ToolModel computes tool-particle contact for one tool geometry.
// Implementations may draw from rng for scatter, so callers must visit
// particles in a fixed order to stay deterministic.
type ToolModel interface {
	Type() config.ToolType
	Contact(p *components.Particle, pose components.ToolPose, rng *LCG, acc *ToolAccumulator) ToolContact
}

// NewToolModel returns the contact model for sim.ToolType, or nil for ToolNone.
// dt is the integrator step, used by velocity-proportional cutting forces.
func NewToolModel(sim *config.SimulationParams, dt float64) ToolModel {
	depth := sim.DepthMM()
	forward := sim.ForwardSpeed * 1000
	switch sim.ToolType {
	case config.ToolRotaryTiller:
		radius := sim.RotorRadius
		if radius <= 0 {
			radius = 245
		}
		blades := sim.BladeCount
		if blades <= 0 {
			blades = 6
		}
		return &RotaryTiller{
			Radius:  radius,
			Blades:  blades,
			Scatter: math.Sin(sim.BladeAngle * math.Pi / 180),
			AxisY:   radius - depth,
			Omega:   sim.Omega(),
			Forward: forward,
			DT:      dt,
		}
	case config.ToolMoldboardPlough:
		return &MoldboardPlough{Depth: depth, Forward: forward, Mu: sim.Interactions.StaticFrictionSoilTool}
	case config.ToolChiselPlough:
		return &ChiselPlough{Depth: depth}
	case config.ToolTrenchingDevice:
		return &Trencher{Depth: depth}
	default:
		return nil
	}
}

// Rotary tiller constants.
const (
	rotorHalfWidth   = 300  // mm, |dz| extent of the rotor
	rotorCeiling     = 200  // mm, particles above are never engaged
	bladeBand        = 30   // mm, radial cutting band inside the tip radius
	bladeTolerance   = 0.15 // rad, angular half-thickness of a blade
	cutStiffness     = 2500
	throwLift        = 2000
	throwForward     = 800
	throwLateral     = 800
	rotorTorqueScale = 1000 // mm -> m lever arm
)

// RotaryTiller models N evenly spaced blades on a rotor whose tips reach the
// tillage depth. pose.Phase is the rotor angle.
type RotaryTiller struct {
	Radius  float64 // blade tip radius, mm
	Blades  int
	Scatter float64 // sin(blade angle)
	AxisY   float64 // rotor axis height, mm
	Omega   float64 // rad/s
	Forward float64 // mm/s
	DT      float64
}

func (t *RotaryTiller) Type() config.ToolType { return config.ToolRotaryTiller }

func (t *RotaryTiller) Contact(p *components.Particle, pose components.ToolPose, rng *LCG, acc *ToolAccumulator) ToolContact {
	dx := p.Pos.X - pose.Pos.X
	dz := p.Pos.Z - pose.Pos.Z
	if math.Abs(dx) >= t.Radius || math.Abs(dz) >= rotorHalfWidth || p.Pos.Y >= rotorCeiling {
		return ToolContact{}
	}

	yRel := p.Pos.Y - t.AxisY
	dist := math.Hypot(dx, yRel)
	if dist >= t.Radius || dist <= t.Radius-bladeBand {
		return ToolContact{}
	}
	theta := math.Atan2(yRel, dx)
	if t.nearestBlade(theta, pose.Phase) >= bladeTolerance {
		return ToolContact{}
	}

	vt := t.Omega * dist / rotorTorqueScale
	vRotX := -vt * math.Sin(theta) * 1000
	vRotY := vt * math.Cos(theta) * 1000
	vRelX := p.Vel.X - (t.Forward + vRotX)
	vRelY := p.Vel.Y - vRotY

	f := r3.Vec{
		X: -cutStiffness * vRelX * p.Mass * t.DT,
		Y: -cutStiffness * vRelY * p.Mass * t.DT,
	}
	if vRotY > 0 {
		f.Y += throwLift * p.Mass
		f.X += throwForward * p.Mass
		f.Z += rng.Centered() * throwLateral * p.Mass * t.Scatter
	}
	acc.Torque += math.Hypot(f.X, f.Y) * dist / rotorTorqueScale
	return ToolContact{Force: f, Touched: true}
}

// nearestBlade returns the angular distance from theta to the closest blade.
func (t *RotaryTiller) nearestBlade(theta, phase float64) float64 {
	step := 2 * math.Pi / float64(t.Blades)
	best := math.Pi
	for i := 0; i < t.Blades; i++ {
		blade := math.Mod(phase+float64(i)*step, 2*math.Pi)
		diff := math.Mod(math.Abs(theta-blade), 2*math.Pi)
		if diff > math.Pi {
			diff = 2*math.Pi - diff
		}
		best = math.Min(best, diff)
	}
	return best
}

// Moldboard plough constants.
const (
	mouldHalfLength = 150 // mm, |dx| extent
	mouldHalfWidth  = 150 // mm, |dz| extent
	mouldTop        = 100 // mm
	mouldEdge       = 100 // mm, leading edge offset
	mouldStiffness  = 5000
	mouldForceScale = 0.01
	mouldTwist      = 0.5
	digFactor       = 1.5 // tools engage down to 1.5x depth
	minSlideSpeed   = 0.001
)

// mouldBaseNormal is the surface normal at the share: forward-pushing,
// lifting and slightly lateral.
var mouldBaseNormal = r3.Vec{X: -0.7, Y: 0.4, Z: 0.4}

// MoldboardPlough models a twisted inclined surface. The normal turns
// lateral with height, inverting the furrow slice.
type MoldboardPlough struct {
	Depth   float64 // mm
	Forward float64 // mm/s
	Mu      float64 // soil-tool Coulomb coefficient
}

func (t *MoldboardPlough) Type() config.ToolType { return config.ToolMoldboardPlough }

func (t *MoldboardPlough) Contact(p *components.Particle, pose components.ToolPose, _ *LCG, acc *ToolAccumulator) ToolContact {
	dx := p.Pos.X - pose.Pos.X
	dz := p.Pos.Z - pose.Pos.Z
	y := p.Pos.Y
	if math.Abs(dx) >= mouldHalfLength || math.Abs(dz) >= mouldHalfWidth || y >= mouldTop || y <= -t.Depth*digFactor {
		return ToolContact{}
	}
	pen := mouldEdge - dx
	if pen <= 0 {
		return ToolContact{}
	}
	fnMag := pen * mouldStiffness * p.Mass * mouldForceScale

	n := mouldBaseNormal
	if t.Depth > 0 {
		n.Z += mouldTwist * (y + t.Depth) / t.Depth
	}
	f := r3.Scale(fnMag, r3.Unit(n))

	vRel := r3.Vec{X: p.Vel.X - t.Forward, Y: p.Vel.Y, Z: p.Vel.Z}
	if speed := r3.Norm(vRel); speed > minSlideSpeed {
		f = r3.Add(f, r3.Scale(-t.Mu*fnMag/speed, vRel))
	}

	acc.Force += fnMag
	acc.Draft += math.Abs(f.X)
	return ToolContact{Force: f, Touched: true}
}

// Chisel plough constants.
const (
	tineHalfLength = 50  // mm, |dx| extent
	tineSpacing    = 100 // mm between tines along z
	tineHalfWidth  = 20  // mm, slot half-width
	tineForce      = 6000
)

// ChiselPlough models narrow tines that loosen without inverting.
type ChiselPlough struct {
	Depth float64 // mm
}

func (t *ChiselPlough) Type() config.ToolType { return config.ToolChiselPlough }

func (t *ChiselPlough) Contact(p *components.Particle, pose components.ToolPose, rng *LCG, acc *ToolAccumulator) ToolContact {
	dx := p.Pos.X - pose.Pos.X
	dz := p.Pos.Z - pose.Pos.Z
	y := p.Pos.Y
	if math.Abs(dx) >= tineHalfLength || math.Abs(math.Mod(dz, tineSpacing)) >= tineHalfWidth {
		return ToolContact{}
	}
	if y >= 0 || y <= -t.Depth*digFactor {
		return ToolContact{}
	}
	fn := tineForce * p.Mass
	f := r3.Vec{X: 0.5 * fn, Y: 0.8 * fn, Z: rng.Centered() * 0.2 * fn}
	acc.Force += fn
	acc.Draft += 0.5 * fn
	return ToolContact{Force: f, Touched: true}
}

// Trencher constants.
const (
	trenchHalfLength = 80 // mm
	trenchHalfWidth  = 40 // mm
	trenchTop        = 20 // mm
	trenchForce      = 7000
)

// trenchDirection is the excavation force per unit Fn.
var trenchDirection = r3.Vec{X: -0.2, Y: 1.5, Z: 1.0}

// Trencher models a digging wheel throwing soil up and out of a narrow box.
type Trencher struct {
	Depth float64 // mm
}

func (t *Trencher) Type() config.ToolType { return config.ToolTrenchingDevice }

func (t *Trencher) Contact(p *components.Particle, pose components.ToolPose, _ *LCG, acc *ToolAccumulator) ToolContact {
	dx := p.Pos.X - pose.Pos.X
	dz := p.Pos.Z - pose.Pos.Z
	y := p.Pos.Y
	if math.Abs(dx) >= trenchHalfLength || math.Abs(dz) >= trenchHalfWidth {
		return ToolContact{}
	}
	if y >= trenchTop || y <= -t.Depth*digFactor {
		return ToolContact{}
	}
	fn := trenchForce * p.Mass
	acc.Torque += fn
	return ToolContact{Force: r3.Scale(fn, trenchDirection), Touched: true}
}
