package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/soilbin/config"
	"github.com/pthm-cable/soilbin/game"
	"github.com/pthm-cable/soilbin/telemetry"
)

// Cost weights. Burial and disturbance are percentages; specific energy is
// compressed with log1p so it penalizes without dominating.
const (
	costWeightBurial      = 0.6
	costWeightDisturbance = 0.4
	costWeightEnergy      = 0.2

	warmupWindows = 1 // skip the first window while the tool enters the soil

	// failedCost is reported for runs that could not complete.
	failedCost = 1e9
)

// outcome is the averaged result of one or more runs.
type outcome struct {
	burial         float64
	disturbance    float64
	draft          float64
	specificEnergy float64
}

// FitnessEvaluator runs headless simulations and computes cost.
type FitnessEvaluator struct {
	ctx        context.Context
	params     *ParamVector
	ticks      int
	seeds      []uint32
	baseConfig *config.Config
	logger     *slog.Logger

	mu       sync.Mutex
	evals    int
	bestCost float64
	hof      *telemetry.HallOfFame
	lastOut  outcome
}

// NewFitnessEvaluator creates a new evaluator. Runs stop early when ctx is done.
func NewFitnessEvaluator(ctx context.Context, params *ParamVector, ticks int, seeds []uint32, baseCfg *config.Config, hof *telemetry.HallOfFame, logger *slog.Logger) *FitnessEvaluator {
	return &FitnessEvaluator{
		ctx:        ctx,
		params:     params,
		ticks:      ticks,
		seeds:      seeds,
		baseConfig: baseCfg,
		logger:     logger,
		bestCost:   math.Inf(1),
		hof:        hof,
	}
}

// BestCost returns the lowest cost seen so far.
func (fe *FitnessEvaluator) BestCost() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestCost
}

// LastOutcome returns the averaged outcome of the most recent evaluation.
func (fe *FitnessEvaluator) LastOutcome() outcome {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastOut
}

// Evaluate computes the cost of a raw parameter vector (lower = better).
// Seeds run in parallel; their outcomes are averaged.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]outcome, len(fe.seeds))
	g, ctx := errgroup.WithContext(fe.ctx)
	for i, seed := range fe.seeds {
		g.Go(func() error {
			out, err := fe.runSimulation(ctx, cfg, seed)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fe.logger.Warn("evaluation failed", "error", err)
		return failedCost
	}

	avg := averageOutcomes(results)
	cost := computeCost(avg)

	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.evals++
	fe.lastOut = avg
	fe.bestCost = math.Min(fe.bestCost, cost)
	fe.hof.Consider(cfg.Simulation.ToolType, telemetry.HallEntry{
		Cost:           cost,
		Params:         fe.params.Named(x),
		BurialRate:     avg.burial,
		Disturbance:    avg.disturbance,
		Draft:          avg.draft,
		SpecificEnergy: avg.specificEnergy,
		Eval:           fe.evals,
	})
	return cost
}

// runSimulation executes a single headless run of fe.ticks ticks.
func (fe *FitnessEvaluator) runSimulation(ctx context.Context, base *config.Config, seed uint32) (outcome, error) {
	cfg := base.Clone()
	cfg.Particles.Seed = seed
	// Seeds already run in parallel.
	cfg.Engine.Workers = 1

	s := game.NewSession(cfg, fe.logger)
	if err := s.Initialize(ctx); err != nil {
		return outcome{}, err
	}

	var windows []telemetry.WindowStats
	game.NewRecorder(s, game.RecorderOptions{
		OnStats: func(ws telemetry.WindowStats) { windows = append(windows, ws) },
	})

	sweep := game.NewToolSweep(s.Config())
	if err := s.Run(ctx, sweep, fe.ticks, nil); err != nil {
		return outcome{}, err
	}
	return summarizeWindows(windows), nil
}

// summarizeWindows averages the post-warmup windows of one run.
func summarizeWindows(windows []telemetry.WindowStats) outcome {
	if len(windows) > warmupWindows {
		windows = windows[warmupWindows:]
	}
	if len(windows) == 0 {
		return outcome{}
	}

	burial := make([]float64, len(windows))
	disturbance := make([]float64, len(windows))
	draft := make([]float64, len(windows))
	energy := make([]float64, len(windows))
	for i, w := range windows {
		burial[i] = w.BurialRateMean
		disturbance[i] = w.DisturbanceMean
		draft[i] = w.DraftMean
		energy[i] = w.SpecificEnergyMean
	}
	return outcome{
		burial:         stat.Mean(burial, nil),
		disturbance:    stat.Mean(disturbance, nil),
		draft:          stat.Mean(draft, nil),
		specificEnergy: stat.Mean(energy, nil),
	}
}

func averageOutcomes(results []outcome) outcome {
	var avg outcome
	if len(results) == 0 {
		return avg
	}
	for _, r := range results {
		avg.burial += r.burial
		avg.disturbance += r.disturbance
		avg.draft += r.draft
		avg.specificEnergy += r.specificEnergy
	}
	n := float64(len(results))
	avg.burial /= n
	avg.disturbance /= n
	avg.draft /= n
	avg.specificEnergy /= n
	return avg
}

// computeCost rewards burial and disturbance and penalizes energy use.
// Formula: -(0.6·burial + 0.4·disturbance)/100 + 0.2·log1p(specificEnergy)
func computeCost(o outcome) float64 {
	reward := (costWeightBurial*o.burial + costWeightDisturbance*o.disturbance) / 100
	return -reward + costWeightEnergy*math.Log1p(math.Max(0, o.specificEnergy))
}
