package game

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
	"github.com/pthm-cable/soilbin/systems"
)

// Soil lattice layout.
const (
	latticeRows   = 24 // along x
	latticeCols   = 12 // along z
	latticeLayers = 6  // along y

	fillFraction = 0.95 // of the box footprint
	fillHeight   = 200  // mm
	fillTop      = -20  // mm, first layer starts just below the surface

	jitterFraction = 0.5

	clodThresholdCohesive = 0.6
	clodThresholdLoose    = 0.8
	clodMinRadius         = 8 // mm, clods reach config.MaxParticleRadius

	// Particle masses use density in g/cm^3 and a scale keeping masses near unity.
	soilMassScale = 0.001
	dustMassScale = 0.0005

	dustFraction = 0.1
)

// strawGeometry holds the per-crop chain shape.
type strawGeometry struct {
	radius    float64
	minLength float64
	maxLength float64
	subtype   components.StrawSubtype
}

func strawGeometryFor(t config.StrawType) strawGeometry {
	switch t {
	case config.StrawRice:
		return strawGeometry{radius: 5, minLength: 80, maxLength: 180, subtype: components.SubtypeRice}
	case config.StrawWheat:
		return strawGeometry{radius: 3.5, minLength: 100, maxLength: 250, subtype: components.SubtypeWheat}
	default:
		return strawGeometry{radius: 4, minLength: 50, maxLength: 150, subtype: components.SubtypeCorn}
	}
}

// populationCounts returns the fixed soil lattice size, the straw target and
// the dust count for a requested total.
func populationCounts(count int, strawRatio float64) (soil, straw, dust int) {
	soil = latticeRows * latticeCols * latticeLayers
	dust = int(math.Floor(float64(count) * dustFraction))
	room := count - soil - dust
	if room > 0 && strawRatio > 0 {
		straw = int(math.Floor(float64(room) * math.Min(1, strawRatio)))
	}
	return soil, straw, dust
}

// InitializeParticles builds a fresh particle population: a jittered soil
// lattice with occasional clods, bonded straw chains near the surface and a
// light dust layer. All randomness is drawn from rng in a fixed order, so the
// same seed and parameters reproduce the same field. A strawRatio of zero
// disables straw. Moisture is carried by the macroscopic state only.
func InitializeParticles(rng *systems.LCG, count int, strawRatio float64, soilType config.SoilType, moisture float64, sim *config.SimulationParams, eng *config.EngineConfig) ([]components.Particle, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: particle count must be > 0, got %d", config.ErrInvalid, count)
	}
	if err := sim.Validate(); err != nil {
		return nil, fmt.Errorf("initializing particles: %w", err)
	}

	soil, straw, dust := populationCounts(count, strawRatio)
	particles := make([]components.Particle, 0, soil+straw+dust)

	fillW := eng.Box.Width * fillFraction
	fillD := eng.Box.Depth * fillFraction
	spX := fillW / latticeRows
	spZ := fillD / latticeCols
	spY := float64(fillHeight) / latticeLayers

	soilDensity := sim.SoilProps.Density / 1000
	strawDensity := sim.StrawProps.Density / 1000

	clodThreshold := clodThresholdLoose
	if soilType.Cohesive() {
		clodThreshold = clodThresholdCohesive
	}

	var nextID int32
	newID := func() int32 {
		id := nextID
		nextID++
		return id
	}

	for y := 0; y < latticeLayers; y++ {
		for x := 0; x < latticeRows; x++ {
			for z := 0; z < latticeCols; z++ {
				jx := rng.Centered() * spX * jitterFraction
				jz := rng.Centered() * spZ * jitterFraction
				jy := rng.Centered() * spY * jitterFraction

				clod := rng.Next() > clodThreshold
				var radius float64
				if clod {
					radius = clodMinRadius + rng.Next()*(config.MaxParticleRadius-clodMinRadius)
				} else {
					radius = 5 + rng.Next()*2
				}

				pos := r3.Vec{
					X: float64(x)*spX - fillW/2 + jx,
					Y: -float64(y)*spY + jy + fillTop,
					Z: float64(z)*spZ - fillD/2 + jz,
				}
				p := components.NewSoil(newID(), pos, radius, components.SphereMass(radius, soilDensity, soilMassScale), clod)
				p.Rotation = rng.Next() * math.Pi
				particles = append(particles, p)
			}
		}
	}

	geom := strawGeometryFor(sim.StrawType)
	segLen := eng.StrawSegmentLength
	strawMass := components.SphereMass(geom.radius, strawDensity, soilMassScale)
	for created := 0; created < straw; {
		startX := rng.Centered() * fillW
		startZ := rng.Centered() * fillD
		startY := 10 + rng.Next()*20
		orientation := rng.Next() * 2 * math.Pi

		length := geom.minLength + rng.Next()*(geom.maxLength-geom.minLength)
		segments := max(1, int(math.Floor(length/segLen)))
		segments = min(segments, straw-created)

		step := r3.Vec{X: math.Cos(orientation) * segLen, Z: math.Sin(orientation) * segLen}
		first := len(particles)
		for k := 0; k < segments; k++ {
			pos := r3.Add(r3.Vec{X: startX, Z: startZ}, r3.Scale(float64(k), step))
			pos.Y = startY + rng.Next()*2
			p := components.NewStraw(newID(), pos, geom.radius, strawMass, geom.subtype)
			p.Rotation = orientation
			particles = append(particles, p)
		}
		for k := first; k < len(particles)-1; k++ {
			components.Bond(&particles[k], &particles[k+1])
		}
		created += segments
	}

	for i := 0; i < dust; i++ {
		pos := r3.Vec{X: rng.Centered() * fillW, Z: rng.Centered() * fillD}
		pos.Y = 10 + rng.Next()*20
		radius := 2 + rng.Next()*2
		p := components.NewDust(newID(), pos, radius, components.SphereMass(radius, soilDensity, dustMassScale))
		p.Rotation = rng.Next() * math.Pi
		particles = append(particles, p)
	}

	return particles, nil
}
