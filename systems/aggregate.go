package systems

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
)

// Analysis window and output scaling.
const (
	windowHalfX = 200 // mm
	windowHalfZ = 100 // mm

	buriedDepth = -50 // mm, straw below this is buried

	draftScale        = 500
	shearPerDraft     = 1.5
	carbonPerDisturb  = 0.8
	vaporPerDisturb   = 0.5
	strawArealDensity = 0.4 // kg/m^2
	shearModulusToMPa = 1e-6
	bulkDensityToGcm3 = 1e-3
	percent           = 100
)

// sectionFloors are the lower y bounds of the first four depth bands; the
// last band takes everything below.
var sectionFloors = [components.NumSections - 1]float64{-56, -92, -128, -164}

var sectionLabels = [components.NumSections]string{
	"Section 1 (Top)", "Section 2", "Section 3", "Section 4", "Section 5 (Bottom)",
}

// SectionIndex returns the depth band for height y.
func SectionIndex(y float64) int {
	for i, floor := range sectionFloors {
		if y > floor {
			return i
		}
	}
	return components.NumSections - 1
}

// InWindow reports whether p lies in the central analysis window.
func InWindow(p *components.Particle) bool {
	return math.Abs(p.Pos.X) < windowHalfX && math.Abs(p.Pos.Z) < windowHalfZ
}

// Aggregate is everything derived from one tick's particle state.
type Aggregate struct {
	Tensor        components.OutputTensor
	Macro         components.MacroscopicState
	Sections      []components.SectionStat
	KineticEnergy float64
}

// Aggregator derives the output tensors. Its buffers are reused across ticks;
// the returned values are not.
type Aggregator struct {
	strains []float64
	kinetic []float64
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Compute derives the tick outputs from the integrated particles, the
// per-particle touched flags and the tool side channels.
func (ag *Aggregator) Compute(particles []components.Particle, touched []bool, acc *ToolAccumulator, sim *config.SimulationParams) Aggregate {
	n := len(particles)
	ag.strains = ag.strains[:0]
	ag.kinetic = ag.kinetic[:0]

	sections := make([]components.SectionStat, components.NumSections)
	depthSum := make([]float64, components.NumSections)
	for i := range sections {
		sections[i].ID = i + 1
		sections[i].Label = sectionLabels[i]
	}

	var totalStraw, buried, strawTouched int
	for i := range particles {
		p := &particles[i]
		ag.strains = append(ag.strains, p.PlasticStrain)
		ag.kinetic = append(ag.kinetic, p.KineticEnergy())

		if p.Kind == components.KindStraw {
			totalStraw++
			if i < len(touched) && touched[i] {
				strawTouched++
			}
		}
		if !InWindow(p) || p.Kind == components.KindDust {
			continue
		}
		s := SectionIndex(p.Pos.Y)
		sec := &sections[s]
		switch p.Kind {
		case components.KindSoil:
			sec.SoilCount++
		case components.KindStraw:
			sec.StrawCount++
			switch p.StrawSubtype() {
			case components.SubtypeRice:
				sec.RiceCount++
			case components.SubtypeWheat:
				sec.WheatCount++
			case components.SubtypeCorn:
				sec.CornCount++
			}
			if p.Pos.Y < buriedDepth {
				buried++
			}
		}
		depthSum[s] += -p.Pos.Y
	}
	for i := range sections {
		if c := sections[i].SoilCount + sections[i].StrawCount; c > 0 {
			sections[i].AvgDepth = depthSum[i] / float64(c)
		}
	}

	var out Aggregate
	out.Sections = sections
	out.Macro = Macroscopic(sim)
	if n == 0 {
		return out
	}
	out.KineticEnergy = floats.Sum(ag.kinetic)

	phys := &out.Tensor.Physical
	phys.Disturbance = float64(acc.Moved) / float64(n) * percent
	if totalStraw > 0 {
		phys.BurialRate = float64(buried) / float64(totalStraw) * percent
		phys.ResidueInterference = float64(strawTouched) / float64(totalStraw) * percent
	}
	phys.Compaction = stat.Mean(ag.strains, nil) * percent
	if acc.Draft > 0 {
		phys.DraftForce = acc.Draft / draftScale
	} else {
		phys.DraftForce = acc.Force / draftScale
	}
	phys.MaxShearStress = phys.DraftForce * shearPerDraft

	en := &out.Tensor.Energetic
	en.Torque = acc.Torque
	en.Power = phys.DraftForce*sim.ForwardSpeed + acc.Torque*sim.Omega()
	if acc.Moved > 0 {
		en.SpecificEnergy = en.Power / float64(acc.Moved)
	}

	out.Tensor.Environmental = components.EnvironmentalTensor{
		CarbonDisturbance: phys.Disturbance * carbonPerDisturb,
		Evaporation:       phys.Disturbance * vaporPerDisturb,
	}
	return out
}

// Macroscopic returns the continuum state for a parameter set.
func Macroscopic(sim *config.SimulationParams) components.MacroscopicState {
	return components.MacroscopicState{
		Moisture:     sim.SoilMoisture,
		BulkDensity:  sim.SoilProps.Density * bulkDensityToGcm3,
		StrawAreal:   strawArealDensity,
		ShearModulus: sim.SoilProps.ShearModulus * shearModulusToMPa,
	}
}
