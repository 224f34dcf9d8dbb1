// Package main searches tillage operating parameters with gonum optimize.
package main

import (
	"github.com/pthm-cable/soilbin/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "depth", Path: "simulation.depth", Min: 5, Max: 30, Default: 15},
			{Name: "forward_speed", Path: "simulation.forward_speed", Min: 0.5, Max: 2.5, Default: 1.38},
			{Name: "rotary_speed", Path: "simulation.rotary_speed", Min: 120, Max: 400, Default: 255},
			{Name: "blade_angle", Path: "simulation.blade_angle", Min: 15, Max: 75, Default: 45},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Named returns the clamped values keyed by parameter name.
func (pv *ParamVector) Named(values []float64) map[string]float64 {
	clamped := pv.Clamp(values)
	named := make(map[string]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		named[spec.Name] = clamped[i]
	}
	return named
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	sim := &cfg.Simulation
	sim.Depth = clamped[0]
	sim.ForwardSpeed = clamped[1]
	sim.RotarySpeed = clamped[2]
	sim.BladeAngle = clamped[3]
	cfg.ComputeDerived()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Simulation.Depth,
		cfg.Simulation.ForwardSpeed,
		cfg.Simulation.RotarySpeed,
		cfg.Simulation.BladeAngle,
	}
}
