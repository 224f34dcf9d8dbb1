// Package game owns a running soil-bin simulation: the particle population,
// the per-tick pipeline and the host-side tool sweep.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
	"github.com/pthm-cable/soilbin/systems"
	"github.com/pthm-cable/soilbin/telemetry"
)

// ErrNotInitialized is returned by Tick before the first Initialize.
var ErrNotInitialized = errors.New("game: session not initialized")

// TickResult is the outcome of one tick. Particles aliases the session's
// particle slice, which is mutated in place by later ticks; it stays valid
// until the next Initialize.
type TickResult struct {
	Tick          int64
	Elapsed       float64 // simulated seconds after this tick
	Particles     []components.Particle
	Tensor        components.OutputTensor
	Macro         components.MacroscopicState
	Sections      []components.SectionStat
	Touched       int // particles touched by the tool this tick
	KineticEnergy float64
	BrokenBonds   int
	RNGState      uint32 // generator state after this tick
}

// TickHook is called at the end of every tick while the session lock is held.
// It must not call back into the session.
type TickHook func(TickResult) error

// Session holds the complete state of one simulation run.
type Session struct {
	mu sync.Mutex

	// epoch is cancelled by Initialize so that ticks started against the
	// previous population are discarded.
	epochMu     sync.Mutex
	epoch       context.Context
	epochCancel context.CancelFunc

	cfg    *config.Config
	logger *slog.Logger
	rng    *systems.LCG

	particles []components.Particle
	index     systems.IDIndex

	grid       *systems.SpatialGrid
	integrator *systems.Integrator
	aggregator *systems.Aggregator
	contacts   *contactPhase

	contactParams systems.ContactParams
	bondParams    systems.BondParams
	tool          systems.ToolModel

	// Per-tick buffers, indexed like particles.
	sums       []systems.ContactSum
	bondForces []r3.Vec
	toolForces []r3.Vec
	touched    []bool
	acc        systems.ToolAccumulator

	// Run state
	elapsed     float64
	tick        int64
	everTouched []bool
	initialized bool

	// Sweep position after the last tick driven by Run.
	sweep    telemetry.SweepState
	hasSweep bool

	perf *telemetry.PerfCollector
	hook TickHook
}

// NewSession creates a session from a copy of cfg. A nil logger uses
// slog.Default(). Call Initialize before Tick.
func NewSession(cfg *config.Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.Clone()
	cfg.ComputeDerived()
	epoch, cancel := context.WithCancel(context.Background())
	return &Session{
		epoch:       epoch,
		epochCancel: cancel,
		cfg:         cfg,
		logger:      logger,
		rng:         systems.NewLCG(cfg.Particles.Seed),
		grid:        systems.NewSpatialGrid(cfg.Engine.GridCellSize),
		aggregator:  systems.NewAggregator(),
		contacts:    newContactPhase(cfg.Engine.Workers, cfg.Engine.ParallelThreshold),
		perf:        telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
	}
}

// Config returns a copy of the session configuration.
func (s *Session) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// SetTickHook installs fn to run at the end of every tick.
func (s *Session) SetTickHook(fn TickHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Perf returns the session's performance collector.
func (s *Session) Perf() *telemetry.PerfCollector {
	return s.perf
}

// Initialize discards the current population and builds a fresh one from the
// configuration, reseeding the RNG and clearing the run state. Any tick in
// flight returns context.Canceled without touching the new population.
func (s *Session) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.supersede()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("initializing session: %w", err)
	}

	s.resetRNG()
	s.resetRunState()

	cfg := s.cfg
	strawRatio := 0.0
	if cfg.Particles.StrawChains {
		strawRatio = cfg.Derived.StrawRatio
	}
	particles, err := InitializeParticles(s.rng, cfg.Particles.Count, strawRatio,
		cfg.Simulation.SoilType, cfg.Simulation.SoilMoisture, &cfg.Simulation, &cfg.Engine)
	if err != nil {
		return fmt.Errorf("initializing session: %w", err)
	}

	s.particles = particles
	s.index = systems.BuildIDIndex(particles)
	s.buildModels()
	s.allocBuffers(len(particles))
	s.initialized = true

	var soil, straw, dust int
	for i := range particles {
		switch particles[i].Kind {
		case components.KindSoil:
			soil++
		case components.KindStraw:
			straw++
		case components.KindDust:
			dust++
		}
	}
	s.logger.Info("session initialized",
		"particles", len(particles),
		"soil", soil,
		"straw", straw,
		"dust", dust,
		"seed", cfg.Particles.Seed,
		"tool", string(cfg.Simulation.ToolType),
		"contact_model", string(cfg.Simulation.ContactModel),
	)
	return nil
}

// Reconfigure replaces the simulation parameters and reinitializes.
func (s *Session) Reconfigure(ctx context.Context, sim config.SimulationParams) error {
	if err := sim.Validate(); err != nil {
		return fmt.Errorf("reconfiguring session: %w", err)
	}
	s.mu.Lock()
	s.cfg.Simulation = sim
	s.cfg.ComputeDerived()
	s.mu.Unlock()
	return s.Initialize(ctx)
}

// supersede cancels every tick started before this call.
func (s *Session) supersede() {
	s.epochMu.Lock()
	defer s.epochMu.Unlock()
	s.epochCancel()
	s.epoch, s.epochCancel = context.WithCancel(context.Background())
}

func (s *Session) currentEpoch() context.Context {
	s.epochMu.Lock()
	defer s.epochMu.Unlock()
	return s.epoch
}

// ResetRNG restores the configured seed.
func (s *Session) ResetRNG() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetRNG()
}

func (s *Session) resetRNG() {
	s.rng.Reset(s.cfg.Particles.Seed)
}

// ResetRunState zeroes the elapsed time, the tick counter and the
// cumulative touched set.
func (s *Session) ResetRunState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetRunState()
}

func (s *Session) resetRunState() {
	s.elapsed = 0
	s.tick = 0
	clear(s.everTouched)
	s.hasSweep = false
}

func (s *Session) buildModels() {
	sim := &s.cfg.Simulation
	eng := &s.cfg.Engine
	s.integrator = systems.NewIntegrator(eng)
	s.contactParams = systems.NewContactParams(sim, eng)
	s.bondParams = systems.NewBondParams(sim, eng)
	s.tool = systems.NewToolModel(sim, eng.DT)
}

func (s *Session) allocBuffers(n int) {
	s.sums = make([]systems.ContactSum, n)
	s.bondForces = make([]r3.Vec, n)
	s.toolForces = make([]r3.Vec, n)
	s.touched = make([]bool, n)
	s.everTouched = make([]bool, n)
}

// Particles returns the live particle slice. See TickResult.
func (s *Session) Particles() []components.Particle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.particles
}

// Elapsed returns the simulated time in seconds.
func (s *Session) Elapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// TickCount returns the number of completed ticks since the last reset.
func (s *Session) TickCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Seed returns the configured RNG seed.
func (s *Session) Seed() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Particles.Seed
}

// TouchedFraction returns the fraction of particles touched by the tool at
// least once since the last reset.
func (s *Session) TouchedFraction() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.everTouched) == 0 {
		return 0
	}
	n := 0
	for _, t := range s.everTouched {
		if t {
			n++
		}
	}
	return float64(n) / float64(len(s.everTouched))
}

// Tick advances the simulation by one step with the tool at pose.
//
// Contacts are gathered from the start-of-tick state before anything is
// written, so a cancellation observed by then leaves the population
// unchanged. Past that point the tick runs to completion.
func (s *Session) Tick(ctx context.Context, pose components.ToolPose) (TickResult, error) {
	return s.step(ctx, pose, nil)
}

// step runs one tick. A non-nil sweep is recorded as the session's sweep
// position once the tick commits, so a hook snapshot sees it.
func (s *Session) step(ctx context.Context, pose components.ToolPose, sweep *telemetry.SweepState) (TickResult, error) {
	epoch := s.currentEpoch()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(epoch, cancel)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		s.logDiscarded(epoch)
		return TickResult{}, err
	}
	if !s.initialized {
		return TickResult{}, ErrNotInitialized
	}

	perf := s.perf
	perf.StartTick()

	perf.StartPhase(telemetry.PhaseSpatialGrid)
	s.grid.Clear()
	for i := range s.particles {
		s.grid.Insert(int32(i), s.particles[i].Pos)
	}

	perf.StartPhase(telemetry.PhaseContacts)
	if err := s.contacts.run(ctx, &s.contactParams, s.particles, s.grid, s.sums); err != nil {
		perf.EndTick()
		s.logDiscarded(epoch)
		return TickResult{}, err
	}
	if err := ctx.Err(); err != nil {
		perf.EndTick()
		s.logDiscarded(epoch)
		return TickResult{}, err
	}

	if sweep != nil {
		s.sweep, s.hasSweep = *sweep, true
	}

	perf.StartPhase(telemetry.PhaseBonds)
	clear(s.bondForces)
	broken := s.bondParams.Apply(s.particles, s.index, s.bondForces)
	if broken > 0 {
		s.logger.Debug("straw bonds broken", "tick", s.tick, "count", broken)
	}

	perf.StartPhase(telemetry.PhaseTools)
	s.acc.Reset()
	for i := range s.particles {
		c := s.acc.Engage(s.tool, &s.particles[i], pose, s.rng)
		s.toolForces[i] = c.Force
		s.touched[i] = c.Touched
		if c.Touched {
			s.everTouched[i] = true
		}
	}

	perf.StartPhase(telemetry.PhaseIntegrate)
	for i := range s.particles {
		p := &s.particles[i]
		sum := &s.sums[i]
		systems.ApplyStrain(p, sum.Strain)
		p.Density = sum.Density()
		external := r3.Add(sum.Force, s.toolForces[i])
		p.Force = r3.Norm(external)
		s.integrator.Step(p, r3.Add(external, s.bondForces[i]))
	}
	s.elapsed += s.cfg.Engine.DT
	s.tick++

	perf.StartPhase(telemetry.PhaseAggregate)
	agg := s.aggregator.Compute(s.particles, s.touched, &s.acc, &s.cfg.Simulation)

	res := TickResult{
		Tick:          s.tick,
		Elapsed:       s.elapsed,
		Particles:     s.particles,
		Tensor:        agg.Tensor,
		Macro:         agg.Macro,
		Sections:      agg.Sections,
		Touched:       s.acc.Moved,
		KineticEnergy: agg.KineticEnergy,
		BrokenBonds:   broken,
		RNGState:      s.rng.Seed(),
	}

	var hookErr error
	if s.hook != nil {
		perf.StartPhase(telemetry.PhaseTelemetry)
		hookErr = s.hook(res)
	}
	perf.EndTick()

	if hookErr != nil {
		return res, fmt.Errorf("tick hook: %w", hookErr)
	}
	return res, nil
}

func (s *Session) logDiscarded(epoch context.Context) {
	if epoch.Err() != nil {
		s.logger.Info("tick discarded by reinitialization", "tick", s.tick)
	}
}

// Run advances the session for ticks steps, moving the tool along sweep and
// passing each result to fn. A ticks value <= 0 runs until ctx is done.
// fn may be nil. A discarded tick leaves sweep where it was.
func (s *Session) Run(ctx context.Context, sweep *ToolSweep, ticks int, fn func(TickResult) error) error {
	for n := 0; ticks <= 0 || n < ticks; n++ {
		prev := *sweep
		pose := sweep.Advance(s.Elapsed())
		state := sweep.State()
		res, err := s.step(ctx, pose, &state)
		if err != nil {
			if res.Tick == 0 {
				*sweep = prev
			}
			return err
		}
		if fn != nil {
			if err := fn(res); err != nil {
				return err
			}
		}
	}
	return nil
}
