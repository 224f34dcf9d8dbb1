package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/soilbin/config"
	"github.com/pthm-cable/soilbin/telemetry"
)

func TestParamVectorNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: round trip = %v, want %v", pv.Specs[i].Name, back[i], def[i])
		}
	}
}

func TestParamVectorDefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	got := pv.ExtractFromConfig(config.Default())
	for i, spec := range pv.Specs {
		if got[i] != spec.Default {
			t.Errorf("%s default = %v, config has %v", spec.Name, spec.Default, got[i])
		}
	}
}

func TestParamVectorApplyClamps(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()
	pv.ApplyToConfig(cfg, []float64{100, -1, 250, 45})

	if cfg.Simulation.Depth != 30 {
		t.Errorf("Depth = %v, want 30", cfg.Simulation.Depth)
	}
	if cfg.Simulation.ForwardSpeed != 0.5 {
		t.Errorf("ForwardSpeed = %v, want 0.5", cfg.Simulation.ForwardSpeed)
	}
	if cfg.Derived.DepthMM != 300 {
		t.Errorf("Derived.DepthMM = %v, want 300", cfg.Derived.DepthMM)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("applied config invalid: %v", err)
	}
}

func TestComputeCost(t *testing.T) {
	base := outcome{burial: 40, disturbance: 30, specificEnergy: 5}

	better := base
	better.burial = 60
	if computeCost(better) >= computeCost(base) {
		t.Errorf("more burial should lower cost")
	}

	costly := base
	costly.specificEnergy = 50
	if computeCost(costly) <= computeCost(base) {
		t.Errorf("more energy should raise cost")
	}
}

func TestSummarizeWindowsSkipsWarmup(t *testing.T) {
	windows := []telemetry.WindowStats{
		{BurialRateMean: 100, DisturbanceMean: 100},
		{BurialRateMean: 10, DisturbanceMean: 20},
		{BurialRateMean: 30, DisturbanceMean: 40},
	}
	got := summarizeWindows(windows)
	if got.burial != 20 || got.disturbance != 30 {
		t.Errorf("summarizeWindows = %+v, want burial 20 disturbance 30", got)
	}

	if (summarizeWindows(nil) != outcome{}) {
		t.Errorf("empty windows should give zero outcome")
	}
}
