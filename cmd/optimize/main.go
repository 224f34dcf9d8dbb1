package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/soilbin/config"
	"github.com/pthm-cable/soilbin/telemetry"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func newMethod(name string, dim, population int) (optimize.Method, error) {
	switch name {
	case "nelder-mead":
		return &optimize.NelderMead{}, nil
	case "cmaes":
		if population == 0 {
			population = 4 + int(3.0*float64(dim)/2.0)
		}
		return &optimize.CmaEsChol{
			InitStepSize: 0.3,
			Population:   population,
		}, nil
	default:
		return nil, fmt.Errorf("unknown method %q (want nelder-mead or cmaes)", name)
	}
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	ticks := flag.Int("ticks", 3000, "Ticks per simulation run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	methodName := flag.String("method", "nelder-mead", "Search method: nelder-mead or cmaes")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	hallSize := flag.Int("hall-size", 10, "Entries kept in the hall of fame")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	fatal := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	if *outputDir == "" {
		fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatal("failed to create output directory", "error", err)
	}

	if err := config.Init(*configPath); err != nil {
		fatal("failed to load config", "error", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()
	dim := params.Dim()
	method, err := newMethod(*methodName, dim, *population)
	if err != nil {
		fatal("invalid method", "error", err)
	}

	evalSeeds := make([]uint32, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = uint32(i*1000 + 42)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Per-run session logs are noise at search scale.
	runLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	hof := telemetry.NewHallOfFame(*hallSize)
	evaluator := NewFitnessEvaluator(ctx, params, *ticks, evalSeeds, baseCfg, hof, runLogger)

	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		fatal("failed to create log file", "error", err)
	}
	defer logFile.Close()

	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	header := []string{"eval", "cost", "burial", "disturbance", "draft", "specific_energy"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := logWriter.Write(header); err != nil {
		fatal("failed to write log header", "error", err)
	}

	evalCount := 0
	var bestParams []float64
	bestCost := failedCost
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			cost := evaluator.Evaluate(raw)
			evalCount++

			clamped := params.Clamp(raw)
			if cost < bestCost {
				bestCost = cost
				bestParams = clamped
			}

			out := evaluator.LastOutcome()
			row := []string{
				strconv.Itoa(evalCount),
				fmt.Sprintf("%.6f", cost),
				fmt.Sprintf("%.4f", out.burial),
				fmt.Sprintf("%.4f", out.disturbance),
				fmt.Sprintf("%.4f", out.draft),
				fmt.Sprintf("%.4f", out.specificEnergy),
			}
			for _, v := range clamped {
				row = append(row, fmt.Sprintf("%.6f", v))
			}
			if err := logWriter.Write(row); err != nil {
				logger.Error("failed to write log row", "error", err)
			}
			logWriter.Flush()

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			logger.Info("evaluation",
				"eval", evalCount,
				"max_evals", *maxEvals,
				"cost", cost,
				"best", bestCost,
				"burial", out.burial,
				"disturbance", out.disturbance,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return cost
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // seeds are already parallel within one evaluation
	}

	logger.Info("starting search",
		"method", *methodName,
		"params", dim,
		"max_evals", *maxEvals,
		"seeds", *seeds,
		"ticks", *ticks,
		"tool", string(baseCfg.Simulation.ToolType),
	)

	initX := params.Normalize(params.DefaultVector())
	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		logger.Warn("optimization ended", "error", err)
	}

	// Best params may come from any evaluation, not just the final one.
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	logger.Info("optimization complete",
		"evals", evalCount,
		"duration", formatDuration(time.Since(startTime)),
		"best_cost", evaluator.BestCost(),
	)
	if bestParams == nil {
		return
	}
	for name, v := range params.Named(bestParams) {
		logger.Info("best parameter", "name", name, "value", v)
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		logger.Error("failed to write best config", "error", err)
	} else {
		logger.Info("best config saved", "path", configOutPath)
	}

	hof.LogStats(logger)
	hofPath := filepath.Join(*outputDir, "hall_of_fame.json")
	hofData, err := hof.MarshalJSON()
	if err != nil {
		logger.Error("failed to marshal hall of fame", "error", err)
	} else if err := os.WriteFile(hofPath, hofData, 0644); err != nil {
		logger.Error("failed to write hall of fame", "error", err)
	} else {
		logger.Info("hall of fame saved", "path", hofPath)
	}
}
