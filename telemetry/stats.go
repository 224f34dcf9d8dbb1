// Package telemetry provides windowed run statistics, bookmarks, performance
// timing, CSV output and JSON snapshots.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated tensor statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Ticks           int     `csv:"ticks"`

	// Physical tensor
	BurialRateMean    float64 `csv:"burial_rate_mean"`
	BurialRateEnd     float64 `csv:"burial_rate_end"`
	DisturbanceMean   float64 `csv:"disturbance_mean"`
	DisturbanceMax    float64 `csv:"disturbance_max"`
	DraftMean         float64 `csv:"draft_mean"`
	DraftStd          float64 `csv:"draft_std"`
	DraftP10          float64 `csv:"draft_p10"`
	DraftP50          float64 `csv:"draft_p50"`
	DraftP90          float64 `csv:"draft_p90"`
	MaxShearStress    float64 `csv:"max_shear_stress"`
	CompactionEnd     float64 `csv:"compaction_end"`
	ResidueInterfMean float64 `csv:"residue_interference_mean"`

	// Energetic tensor
	PowerMean          float64 `csv:"power_mean"`
	PowerStd           float64 `csv:"power_std"`
	TorqueMean         float64 `csv:"torque_mean"`
	SpecificEnergyMean float64 `csv:"specific_energy_mean"`
	EnergyJoules       float64 `csv:"energy_j"` // power integrated over the window

	// Environmental tensor
	CarbonDisturbanceMean float64 `csv:"carbon_disturbance_mean"`
	EvaporationMean       float64 `csv:"evaporation_mean"`

	// Events during window
	TouchedTotal int `csv:"touched_total"`
	BrokenBonds  int `csv:"broken_bonds"`

	// Kinetic energy of the population
	KineticMean float64 `csv:"kinetic_mean"`
	KineticEnd  float64 `csv:"kinetic_end"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Distribution is the summary of one series over a window.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Max           float64
}

// Summarize computes the population mean, standard deviation, percentiles
// and maximum of values. An empty series yields zeros.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	mean, std := stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Distribution{
		Mean: mean,
		Std:  std,
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
		Max:  floats.Max(values),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("ticks", s.Ticks),
		slog.Float64("burial_rate_mean", s.BurialRateMean),
		slog.Float64("burial_rate_end", s.BurialRateEnd),
		slog.Float64("disturbance_mean", s.DisturbanceMean),
		slog.Float64("disturbance_max", s.DisturbanceMax),
		slog.Float64("draft_mean", s.DraftMean),
		slog.Float64("draft_std", s.DraftStd),
		slog.Float64("draft_p10", s.DraftP10),
		slog.Float64("draft_p50", s.DraftP50),
		slog.Float64("draft_p90", s.DraftP90),
		slog.Float64("max_shear_stress", s.MaxShearStress),
		slog.Float64("compaction_end", s.CompactionEnd),
		slog.Float64("residue_interference_mean", s.ResidueInterfMean),
		slog.Float64("power_mean", s.PowerMean),
		slog.Float64("power_std", s.PowerStd),
		slog.Float64("torque_mean", s.TorqueMean),
		slog.Float64("specific_energy_mean", s.SpecificEnergyMean),
		slog.Float64("energy_j", s.EnergyJoules),
		slog.Float64("carbon_disturbance_mean", s.CarbonDisturbanceMean),
		slog.Float64("evaporation_mean", s.EvaporationMean),
		slog.Int("touched_total", s.TouchedTotal),
		slog.Int("broken_bonds", s.BrokenBonds),
		slog.Float64("kinetic_mean", s.KineticMean),
		slog.Float64("kinetic_end", s.KineticEnd),
	)
}

// LogStats logs the headline window stats.
func (s WindowStats) LogStats(logger *slog.Logger) {
	logger.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"burial_rate", s.BurialRateEnd,
		"disturbance", s.DisturbanceMean,
		"draft", s.DraftMean,
		"draft_p90", s.DraftP90,
		"compaction", s.CompactionEnd,
		"residue_interference", s.ResidueInterfMean,
		"power", s.PowerMean,
		"torque", s.TorqueMean,
		"touched", s.TouchedTotal,
		"broken_bonds", s.BrokenBonds,
		"kinetic", s.KineticEnd,
	)
}
