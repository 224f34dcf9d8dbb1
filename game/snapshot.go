package game

import (
	"context"
	"fmt"

	"github.com/pthm-cable/soilbin/systems"
	"github.com/pthm-cable/soilbin/telemetry"
)

// Snapshot captures the session state for replay.
func (s *Session) Snapshot() (*telemetry.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		Seed:       s.cfg.Particles.Seed,
		RNGState:   s.rng.Seed(),
		Tick:       s.tick,
		Elapsed:    s.elapsed,
		Simulation: s.cfg.Simulation,
		Particles:  telemetry.CaptureParticles(s.particles),
		Sweep:      s.sweepState(),
	}, nil
}

// snapshotFromResult builds a snapshot inside a tick hook, where the session
// lock is already held.
func (s *Session) snapshotFromResult(res TickResult) *telemetry.Snapshot {
	return &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		Seed:       s.cfg.Particles.Seed,
		RNGState:   res.RNGState,
		Tick:       res.Tick,
		Elapsed:    res.Elapsed,
		Simulation: s.cfg.Simulation,
		Particles:  telemetry.CaptureParticles(res.Particles),
		Sweep:      s.sweepState(),
	}
}

func (s *Session) sweepState() *telemetry.SweepState {
	if !s.hasSweep {
		return nil
	}
	st := s.sweep
	return &st
}

// Restore replaces the population, RNG state, run clock and sweep position
// with those of snap and adopts its simulation parameters. Ticks in flight
// are discarded as with Initialize. Continuing from a restored snapshot with
// the sweep from ResumeToolSweep reproduces the run it was taken from.
func (s *Session) Restore(ctx context.Context, snap *telemetry.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	particles, err := snap.RestoreParticles()
	if err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}
	if err := snap.Simulation.Validate(); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}

	s.supersede()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Simulation = snap.Simulation
	s.cfg.Particles.Seed = snap.Seed
	s.cfg.ComputeDerived()
	s.rng.SetState(snap.RNGState)

	s.particles = particles
	s.index = systems.BuildIDIndex(particles)
	s.buildModels()
	s.allocBuffers(len(particles))
	s.elapsed = snap.Elapsed
	s.tick = snap.Tick
	s.hasSweep = snap.Sweep != nil
	if s.hasSweep {
		s.sweep = *snap.Sweep
	}
	s.initialized = true

	s.logger.Info("session restored", "tick", snap.Tick, "particles", len(particles), "seed", snap.Seed)
	return nil
}
