package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
)

// Boundary restitution factors.
const (
	floorBounce = -0.3
	wallBounce  = -0.5
	coverBounce = -0.5
	coverDrag   = 0.8
)

// Bounds is the soil bin. The surface is y=0.
type Bounds struct {
	HalfWidth  float64 // |x| limit
	HalfDepth  float64 // |z| limit
	Floor      float64 // y lower limit, negative
	StrawCover float64 // y ceiling for straw
}

// NewBounds builds the bin from engine configuration.
func NewBounds(eng *config.EngineConfig) Bounds {
	return Bounds{
		HalfWidth:  eng.Box.Width / 2,
		HalfDepth:  eng.Box.Depth / 2,
		Floor:      -eng.Box.Height,
		StrawCover: eng.StrawCoverHeight,
	}
}

// Integrator advances particles with semi-implicit Euler.
type Integrator struct {
	DT      float64
	Gravity float64 // mm/s^2, acts along -y
	Damping float64 // multiplicative velocity factor per tick
	Bounds  Bounds
}

// NewIntegrator builds an integrator from engine configuration.
func NewIntegrator(eng *config.EngineConfig) *Integrator {
	return &Integrator{
		DT:      eng.DT,
		Gravity: eng.Gravity,
		Damping: eng.VelocityDamping,
		Bounds:  NewBounds(eng),
	}
}

// Step applies force f to p for one tick: v += f/m·dt, gravity, damping,
// x += v·dt, then the bin walls and the straw cover.
func (it *Integrator) Step(p *components.Particle, f r3.Vec) {
	v := r3.Add(p.Vel, r3.Scale(it.DT/p.Mass, f))
	v.Y -= it.Gravity * it.DT
	v = r3.Scale(it.Damping, v)
	p.Pos = r3.Add(p.Pos, r3.Scale(it.DT, v))
	p.Vel = v
	it.Bounds.Clamp(p)
}

// Clamp confines p to the bin, reversing and damping the velocity on each
// axis that was clamped.
func (b Bounds) Clamp(p *components.Particle) {
	if p.Pos.Y < b.Floor {
		p.Pos.Y = b.Floor
		p.Vel.Y *= floorBounce
	}
	if p.Pos.X < -b.HalfWidth {
		p.Pos.X = -b.HalfWidth
		p.Vel.X *= wallBounce
	}
	if p.Pos.X > b.HalfWidth {
		p.Pos.X = b.HalfWidth
		p.Vel.X *= wallBounce
	}
	if p.Pos.Z < -b.HalfDepth {
		p.Pos.Z = -b.HalfDepth
		p.Vel.Z *= wallBounce
	}
	if p.Pos.Z > b.HalfDepth {
		p.Pos.Z = b.HalfDepth
		p.Vel.Z *= wallBounce
	}

	// Shroud over the tool keeps straw in the mixing zone.
	if p.Kind == components.KindStraw && p.Pos.Y > b.StrawCover {
		p.Pos.Y = b.StrawCover
		p.Vel.Y *= coverBounce
		p.Vel.X *= coverDrag
		p.Vel.Z *= coverDrag
	}
}

// Contains reports whether p lies inside the bin.
func (b Bounds) Contains(p *components.Particle) bool {
	return p.Pos.Y >= b.Floor &&
		p.Pos.X >= -b.HalfWidth && p.Pos.X <= b.HalfWidth &&
		p.Pos.Z >= -b.HalfDepth && p.Pos.Z <= b.HalfDepth
}
