package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks the whole configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	e := c.Engine
	if e.DT <= 0 {
		add("engine.dt must be > 0, got %v", e.DT)
	}
	if e.Box.Width <= 0 || e.Box.Depth <= 0 || e.Box.Height <= 0 {
		add("engine.box dimensions must be > 0, got %+v", e.Box)
	}
	if e.StiffnessScale <= 0 {
		add("engine.stiffness_scale must be > 0, got %v", e.StiffnessScale)
	}
	if e.GridCellSize < MinGridCellSize {
		add("engine.grid_cell_size must be >= %v (widest interaction range), got %v", MinGridCellSize, e.GridCellSize)
	}
	if e.VelocityDamping <= 0 || e.VelocityDamping > 1 {
		add("engine.velocity_damping must be in (0,1], got %v", e.VelocityDamping)
	}
	if e.MaxContactForce < 0 {
		add("engine.max_contact_force must be >= 0, got %v", e.MaxContactForce)
	}
	if e.StrawSegmentLength <= 0 {
		add("engine.straw_segment_length must be > 0, got %v", e.StrawSegmentLength)
	}
	if e.Workers < 0 {
		add("engine.workers must be >= 0, got %d", e.Workers)
	}

	if c.Particles.Count <= 0 {
		add("particles.count must be > 0, got %d", c.Particles.Count)
	}
	if c.Host.SweepEnd <= c.Host.SweepStart {
		add("host.sweep_end (%v) must exceed host.sweep_start (%v)", c.Host.SweepEnd, c.Host.SweepStart)
	}
	if c.Telemetry.StatsWindow < 0 {
		add("telemetry.stats_window must be >= 0, got %d", c.Telemetry.StatsWindow)
	}

	if err := c.Simulation.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks a simulation parameter set. Out-of-range material
// properties produce unstable runs, so they are rejected rather than defaulted.
func (s SimulationParams) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if !oneOf(s.ToolType, toolTypes) {
		add("unknown tool_type %q", s.ToolType)
	}
	if !oneOf(s.SoilType, soilTypes) {
		add("unknown soil_type %q", s.SoilType)
	}
	if !oneOf(s.StrawType, strawTypes) {
		add("unknown straw_type %q", s.StrawType)
	}
	if !oneOf(s.ContactModel, contactModels) {
		add("unknown contact_model %q", s.ContactModel)
	}
	if s.Depth < 0 {
		add("depth must be >= 0, got %v", s.Depth)
	}
	if s.ForwardSpeed < 0 {
		add("forward_speed must be >= 0, got %v", s.ForwardSpeed)
	}
	if s.RotarySpeed < 0 {
		add("rotary_speed must be >= 0, got %v", s.RotarySpeed)
	}
	if s.StrawDensity < 0 {
		add("straw_density must be >= 0, got %v", s.StrawDensity)
	}
	if s.SoilMoisture < 0 || s.SoilMoisture > 100 {
		add("soil_moisture must be in [0,100], got %v", s.SoilMoisture)
	}
	if s.ToolType == ToolRotaryTiller {
		if s.RotorRadius <= 0 {
			add("rotor_radius must be > 0, got %v", s.RotorRadius)
		}
		if s.BladeCount <= 0 {
			add("blade_count must be > 0, got %d", s.BladeCount)
		}
	}

	for _, m := range []struct {
		name  string
		props MaterialProperties
	}{{"soil_props", s.SoilProps}, {"straw_props", s.StrawProps}} {
		if m.props.PoissonRatio <= 0 || m.props.PoissonRatio >= 0.5 {
			add("%s.poisson_ratio must be in (0,0.5), got %v", m.name, m.props.PoissonRatio)
		}
		if m.props.ShearModulus <= 0 {
			add("%s.shear_modulus must be > 0, got %v", m.name, m.props.ShearModulus)
		}
		if m.props.Density <= 0 {
			add("%s.density must be > 0, got %v", m.name, m.props.Density)
		}
	}

	in := s.Interactions
	if in.RestitutionCoeff <= 0 || in.RestitutionCoeff > 1 {
		add("interactions.restitution_coeff must be in (0,1], got %v", in.RestitutionCoeff)
	}
	if in.StaticFrictionSoilStraw < 0 || in.StaticFrictionSoilTool < 0 {
		add("interactions friction coefficients must be >= 0")
	}
	if s.CohesionStrength < 0 {
		add("cohesion_strength must be >= 0, got %v", s.CohesionStrength)
	}
	if s.EnableBreakage && s.BreakageThreshold <= 0 {
		add("breakage_threshold must be > 0 when enable_breakage is set, got %v", s.BreakageThreshold)
	}
	return errors.Join(errs...)
}
