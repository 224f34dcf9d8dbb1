package telemetry

import "github.com/pthm-cable/soilbin/components"

// TickSample is the per-tick input to the collector.
type TickSample struct {
	Tick          int64
	Elapsed       float64
	Tensor        components.OutputTensor
	Sections      []components.SectionStat
	Touched       int
	BrokenBonds   int
	KineticEnergy float64
}

// Collector accumulates tick samples within windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int64
	dt                  float64

	// Current window tracking
	windowStartTick int64

	// Series for the current window
	burial      []float64
	disturbance []float64
	draft       []float64
	residue     []float64
	power       []float64
	torque      []float64
	specific    []float64
	carbon      []float64
	evaporation []float64
	kinetic     []float64

	// Counters for the current window
	touched  int
	broken   int
	maxShear float64

	last TickSample
}

// NewCollector creates a new stats collector.
// windowTicks: ticks per stats window
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowTicks int, dt float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: int64(windowTicks),
		dt:                  dt,
	}
}

// Record adds one tick to the current window.
func (c *Collector) Record(s TickSample) {
	phys := s.Tensor.Physical
	en := s.Tensor.Energetic
	env := s.Tensor.Environmental

	c.burial = append(c.burial, phys.BurialRate)
	c.disturbance = append(c.disturbance, phys.Disturbance)
	c.draft = append(c.draft, phys.DraftForce)
	c.residue = append(c.residue, phys.ResidueInterference)
	c.power = append(c.power, en.Power)
	c.torque = append(c.torque, en.Torque)
	c.specific = append(c.specific, en.SpecificEnergy)
	c.carbon = append(c.carbon, env.CarbonDisturbance)
	c.evaporation = append(c.evaporation, env.Evaporation)
	c.kinetic = append(c.kinetic, s.KineticEnergy)

	c.touched += s.Touched
	c.broken += s.BrokenBonds
	c.maxShear = max(c.maxShear, phys.MaxShearStress)
	c.last = s
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets the series for the next window.
func (c *Collector) Flush(currentTick int64) WindowStats {
	draft := Summarize(c.draft)
	power := Summarize(c.power)
	disturbance := Summarize(c.disturbance)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,
		Ticks:           len(c.draft),

		BurialRateMean:    Summarize(c.burial).Mean,
		BurialRateEnd:     c.last.Tensor.Physical.BurialRate,
		DisturbanceMean:   disturbance.Mean,
		DisturbanceMax:    disturbance.Max,
		DraftMean:         draft.Mean,
		DraftStd:          draft.Std,
		DraftP10:          draft.P10,
		DraftP50:          draft.P50,
		DraftP90:          draft.P90,
		MaxShearStress:    c.maxShear,
		CompactionEnd:     c.last.Tensor.Physical.Compaction,
		ResidueInterfMean: Summarize(c.residue).Mean,

		PowerMean:          power.Mean,
		PowerStd:           power.Std,
		TorqueMean:         Summarize(c.torque).Mean,
		SpecificEnergyMean: Summarize(c.specific).Mean,
		EnergyJoules:       power.Mean * float64(len(c.power)) * c.dt,

		CarbonDisturbanceMean: Summarize(c.carbon).Mean,
		EvaporationMean:       Summarize(c.evaporation).Mean,

		TouchedTotal: c.touched,
		BrokenBonds:  c.broken,

		KineticMean: Summarize(c.kinetic).Mean,
		KineticEnd:  c.last.KineticEnergy,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	for _, s := range []*[]float64{
		&c.burial, &c.disturbance, &c.draft, &c.residue, &c.power,
		&c.torque, &c.specific, &c.carbon, &c.evaporation, &c.kinetic,
	} {
		*s = (*s)[:0]
	}
	c.touched = 0
	c.broken = 0
	c.maxShear = 0

	return stats
}

// LastSections returns the section histograms of the most recent tick.
func (c *Collector) LastSections() []components.SectionStat {
	return c.last.Sections
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
