package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pthm-cable/soilbin/config"
	"github.com/pthm-cable/soilbin/game"
	"github.com/pthm-cable/soilbin/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in ticks (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	restorePath := flag.String("restore", "", "Resume from a snapshot file")
	seed := flag.Uint("seed", 0, "RNG seed (0 = use config)")
	tool := flag.String("tool", "", "Tool type override")
	presets := flag.Bool("presets", false, "Replace soil and straw properties with the presets for their types")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = until interrupted)")
	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg().Clone()

	if *seed != 0 {
		cfg.Particles.Seed = uint32(*seed)
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	if *tool != "" {
		cfg.Simulation.ToolType = config.ToolType(*tool)
	}
	if *presets {
		cfg.ApplyPresets()
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	cfg.ComputeDerived()

	if err := run(cfg, logger, runOptions{
		logStats:    *logStats,
		snapshotDir: *snapshotDir,
		outputDir:   *outputDir,
		restorePath: *restorePath,
		maxTicks:    *maxTicks,
	}); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	logStats    bool
	snapshotDir string
	outputDir   string
	restorePath string
	maxTicks    int
}

func run(cfg *config.Config, logger *slog.Logger, opts runOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	om, err := telemetry.NewOutputManager(opts.outputDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := om.Close(); err != nil {
			logger.Error("failed to close output", "error", err)
		}
	}()
	if err := om.WriteConfig(cfg); err != nil {
		return err
	}

	s := game.NewSession(cfg, logger)
	var snap *telemetry.Snapshot
	if opts.restorePath != "" {
		if snap, err = telemetry.LoadSnapshot(opts.restorePath); err != nil {
			return err
		}
		if err := s.Restore(ctx, snap); err != nil {
			return err
		}
	} else if err := s.Initialize(ctx); err != nil {
		return err
	}

	game.NewRecorder(s, game.RecorderOptions{
		Output:      om,
		LogStats:    opts.logStats,
		SnapshotDir: opts.snapshotDir,
	})

	// A nil snapshot starts the sweep from the beginning.
	sweep := game.ResumeToolSweep(s.Config(), snap)
	logger.Info("starting headless simulation",
		"seed", s.Seed(),
		"tool", string(cfg.Simulation.ToolType),
		"max_ticks", opts.maxTicks,
		"frames_per_pass", sweep.FramesPerPass(),
	)

	err = s.Run(ctx, sweep, opts.maxTicks, nil)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Info("interrupted")
		err = nil
	}

	logger.Info("simulation finished",
		"ticks", s.TickCount(),
		"sim_time", s.Elapsed(),
		"passes", sweep.Passes,
		"touched_fraction", s.TouchedFraction(),
	)
	return err
}
