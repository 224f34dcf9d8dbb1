// Package components defines the data types shared by the engine systems.
package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Kind is the particle material class.
type Kind uint8

const (
	KindSoil Kind = iota
	KindStraw
	KindDust
)

func (k Kind) String() string {
	switch k {
	case KindSoil:
		return "soil"
	case KindStraw:
		return "straw"
	case KindDust:
		return "dust"
	default:
		return "unknown"
	}
}

// StrawSubtype is the crop a straw segment came from.
type StrawSubtype uint8

const (
	SubtypeRice StrawSubtype = iota
	SubtypeWheat
	SubtypeCorn
)

func (s StrawSubtype) String() string {
	switch s {
	case SubtypeRice:
		return "rice"
	case SubtypeWheat:
		return "wheat"
	case SubtypeCorn:
		return "corn"
	default:
		return "unknown"
	}
}

// Straw is the payload only straw particles carry.
type Straw struct {
	Subtype StrawSubtype
	Bonds   []int32 // ids of bonded chain neighbours
}

// Particle is one simulated grain, straw segment or dust mote.
// Positions are mm, velocities mm/s.
type Particle struct {
	ID   int32
	Kind Kind

	Pos r3.Vec
	Vel r3.Vec

	Radius   float64
	Rotation float64 // visualization only
	Mass     float64
	Friction float64 // Coulomb coefficient against soil and dust

	Force         float64 // |contact + tool force| of the last tick
	Density       float64 // local packing estimate in [0,1]
	Agglomerate   bool    // breakable clod
	PlasticStrain float64 // monotone, clamped to [0,1]

	// Straw is non-nil exactly when Kind == KindStraw.
	Straw *Straw
}

// SphereMass returns (4/3)·π·r³·density·scale.
func SphereMass(radius, density, scale float64) float64 {
	return 4.0 / 3.0 * math.Pi * radius * radius * radius * density * scale
}

// NewSoil constructs a soil particle.
func NewSoil(id int32, pos r3.Vec, radius, mass float64, agglomerate bool) Particle {
	return Particle{
		ID:          id,
		Kind:        KindSoil,
		Pos:         pos,
		Radius:      radius,
		Mass:        mass,
		Friction:    0.5,
		Density:     1.0,
		Agglomerate: agglomerate,
	}
}

// NewStraw constructs an unbonded straw segment.
func NewStraw(id int32, pos r3.Vec, radius, mass float64, subtype StrawSubtype) Particle {
	return Particle{
		ID:       id,
		Kind:     KindStraw,
		Pos:      pos,
		Radius:   radius,
		Mass:     mass,
		Friction: 0.3,
		Density:  0.5,
		Straw:    &Straw{Subtype: subtype},
	}
}

// NewDust constructs a dust particle.
func NewDust(id int32, pos r3.Vec, radius, mass float64) Particle {
	return Particle{
		ID:       id,
		Kind:     KindDust,
		Pos:      pos,
		Radius:   radius,
		Mass:     mass,
		Friction: 0.2,
		Density:  0.2,
	}
}

// Bonds returns the bonded neighbour ids, nil for non-straw particles.
func (p *Particle) Bonds() []int32 {
	if p.Straw == nil {
		return nil
	}
	return p.Straw.Bonds
}

// StrawSubtype returns the crop subtype; non-straw particles report rice.
func (p *Particle) StrawSubtype() StrawSubtype {
	if p.Straw == nil {
		return SubtypeRice
	}
	return p.Straw.Subtype
}

// BondedTo reports whether p holds a bond to id.
func (p *Particle) BondedTo(id int32) bool {
	for _, b := range p.Bonds() {
		if b == id {
			return true
		}
	}
	return false
}

// Bond links a and b symmetrically. Both must be straw.
func Bond(a, b *Particle) {
	if a.Straw == nil || b.Straw == nil || a.BondedTo(b.ID) {
		return
	}
	a.Straw.Bonds = append(a.Straw.Bonds, b.ID)
	b.Straw.Bonds = append(b.Straw.Bonds, a.ID)
}

// Unbond removes the bond between a and b from both ends.
func Unbond(a, b *Particle) {
	removeBond(a, b.ID)
	removeBond(b, a.ID)
}

func removeBond(p *Particle, id int32) {
	if p.Straw == nil {
		return
	}
	bonds := p.Straw.Bonds
	for i, b := range bonds {
		if b == id {
			p.Straw.Bonds = append(bonds[:i], bonds[i+1:]...)
			return
		}
	}
}

// KineticEnergy returns ½·m·|v|².
func (p *Particle) KineticEnergy() float64 {
	return 0.5 * p.Mass * r3.Norm2(p.Vel)
}
