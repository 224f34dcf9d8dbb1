package config

// Particle geometry bounds shared by the factory, the contact law and
// validation.
const (
	// MaxParticleRadius is the largest radius any particle may have (clods).
	MaxParticleRadius = 12.0

	// CohesionRangeFactor widens the soil interaction range under the
	// cohesive contact model so cohesion acts slightly before contact.
	CohesionRangeFactor = 1.1

	// MinGridCellSize is the smallest neighbour grid cell for which the
	// 3x3x3 query still covers the widest interaction range.
	MinGridCellSize = 2 * MaxParticleRadius * CohesionRangeFactor
)

// ToolType selects the tool contact model for a run.
type ToolType string

const (
	ToolNone            ToolType = "None"
	ToolRotaryTiller    ToolType = "Rotary Tiller"
	ToolMoldboardPlough ToolType = "Moldboard Plough"
	ToolChiselPlough    ToolType = "Chisel Plough"
	ToolTrenchingDevice ToolType = "Trenching Device"
)

// SoilType names a soil preset.
type SoilType string

const (
	SoilClayLoam  SoilType = "Clay Loam"
	SoilSandyLoam SoilType = "Sandy Loam"
	SoilSilt      SoilType = "Silt"
	SoilHeavyClay SoilType = "Heavy Clay"
)

// Cohesive reports whether the soil produces a high fraction of clods.
func (s SoilType) Cohesive() bool {
	return s == SoilClayLoam || s == SoilHeavyClay
}

// StrawType names a crop residue preset.
type StrawType string

const (
	StrawRice  StrawType = "Rice"
	StrawWheat StrawType = "Wheat"
	StrawCorn  StrawType = "Corn"
)

// ContactModel selects the normal force law.
type ContactModel string

const (
	ContactHertzMindlin ContactModel = "Hertz-Mindlin"
	ContactLinearSpring ContactModel = "Linear Spring"
	ContactJKR          ContactModel = "JKR (Cohesive)"
)

var (
	toolTypes     = []ToolType{ToolNone, ToolRotaryTiller, ToolMoldboardPlough, ToolChiselPlough, ToolTrenchingDevice}
	soilTypes     = []SoilType{SoilClayLoam, SoilSandyLoam, SoilSilt, SoilHeavyClay}
	strawTypes    = []StrawType{StrawRice, StrawWheat, StrawCorn}
	contactModels = []ContactModel{ContactHertzMindlin, ContactLinearSpring, ContactJKR}
)

func oneOf[T comparable](v T, set []T) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// ValidToolType reports whether t names a known tool.
func ValidToolType(t ToolType) bool {
	return oneOf(t, toolTypes)
}

// ToolTypes returns every known tool, ToolNone first.
func ToolTypes() []ToolType {
	return append([]ToolType(nil), toolTypes...)
}
