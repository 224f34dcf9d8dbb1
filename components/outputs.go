package components

import "gonum.org/v1/gonum/spatial/r3"

// ToolPose is the externally driven tool state for one tick.
type ToolPose struct {
	Pos   r3.Vec  // mm, leading reference point of the tool
	Phase float64 // rotor angle in rad (rotary tiller only)
}

// PhysicalTensor holds the soil/residue outcome metrics of a tick.
type PhysicalTensor struct {
	BurialRate          float64 // %
	Disturbance         float64 // %
	MaxShearStress      float64 // kPa proxy
	DraftForce          float64 // kN proxy
	Compaction          float64 // 0-100 index
	ResidueInterference float64 // 0-100 index
}

// EnergeticTensor holds the power metrics of a tick.
type EnergeticTensor struct {
	Power          float64 // W
	SpecificEnergy float64 // per touched particle
	Torque         float64 // N·m proxy
}

// EnvironmentalTensor holds derived environmental indices.
type EnvironmentalTensor struct {
	CarbonDisturbance float64
	Evaporation       float64
}

// OutputTensor groups all per-tick outputs.
type OutputTensor struct {
	Physical      PhysicalTensor
	Energetic     EnergeticTensor
	Environmental EnvironmentalTensor
}

// MacroscopicState is the continuum state vector for the run's parameter set.
type MacroscopicState struct {
	Moisture     float64 // %
	BulkDensity  float64 // g/cm^3
	StrawAreal   float64 // kg/m^2
	ShearModulus float64 // effective, MPa
}

// NumSections is the number of depth bands in the vertical profile.
const NumSections = 5

// SectionStat counts occupancy of one depth band inside the analysis window.
type SectionStat struct {
	ID         int
	Label      string
	SoilCount  int
	StrawCount int
	RiceCount  int
	WheatCount int
	CornCount  int
	AvgDepth   float64 // mm below surface
}
