package game

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
	"github.com/pthm-cable/soilbin/telemetry"
)

// ToolSweep moves the tool across the bin at forward speed, one host frame
// per call, and wraps back to the start at the end of the sweep range.
type ToolSweep struct {
	X, Z       float64 // mm
	Start, End float64 // mm
	Step       float64 // mm per frame
	Omega      float64 // rad/s
	Passes     int     // completed sweeps
}

// NewToolSweep places the tool at the start of the configured sweep range.
func NewToolSweep(cfg *config.Config) *ToolSweep {
	return &ToolSweep{
		X:     cfg.Host.SweepStart,
		Start: cfg.Host.SweepStart,
		End:   cfg.Host.SweepEnd,
		Step:  cfg.Simulation.ForwardSpeed * 1000 * cfg.Host.FrameDT,
		Omega: cfg.Simulation.Omega(),
	}
}

// ResumeToolSweep builds the sweep for cfg and moves it to the position
// recorded in snap. A snapshot without sweep state starts a fresh sweep.
func ResumeToolSweep(cfg *config.Config, snap *telemetry.Snapshot) *ToolSweep {
	ts := NewToolSweep(cfg)
	if snap != nil && snap.Sweep != nil {
		ts.X = snap.Sweep.X
		ts.Z = snap.Sweep.Z
		ts.Passes = snap.Sweep.Passes
	}
	return ts
}

// State returns the position a resumed sweep continues from.
func (ts *ToolSweep) State() telemetry.SweepState {
	return telemetry.SweepState{X: ts.X, Z: ts.Z, Passes: ts.Passes}
}

// Advance returns the pose for the coming tick and moves the tool one frame
// forward. The rotor phase follows the simulated elapsed time.
func (ts *ToolSweep) Advance(elapsed float64) components.ToolPose {
	pose := components.ToolPose{
		Pos:   r3.Vec{X: ts.X, Z: ts.Z},
		Phase: ts.Omega * elapsed,
	}
	ts.X += ts.Step
	if ts.X > ts.End {
		ts.X = ts.Start
		ts.Passes++
	}
	return pose
}

// FramesPerPass returns the number of Advance calls in one full sweep.
func (ts *ToolSweep) FramesPerPass() int {
	if ts.Step <= 0 {
		return 0
	}
	return int((ts.End-ts.Start)/ts.Step) + 1
}
