package game

import (
	"log/slog"

	"github.com/pthm-cable/soilbin/telemetry"
)

// RecorderOptions configures a Recorder. Every field is optional.
type RecorderOptions struct {
	Output      *telemetry.OutputManager
	LogStats    bool   // log window and perf stats
	SnapshotDir string // save a snapshot for every bookmark
	OnStats     func(telemetry.WindowStats)
}

// Recorder turns tick results into windowed telemetry: CSV rows, perf
// stats, bookmarks and bookmark snapshots.
type Recorder struct {
	session   *Session
	collector *telemetry.Collector
	bookmarks *telemetry.BookmarkDetector
	opts      RecorderOptions

	windows int
}

// NewRecorder creates a recorder for s and installs it as the tick hook.
func NewRecorder(s *Session, opts RecorderOptions) *Recorder {
	cfg := s.Config()
	r := &Recorder{
		session:   s,
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Engine.DT),
		bookmarks: telemetry.NewBookmarkDetector(10),
		opts:      opts,
	}
	s.SetTickHook(r.record)
	return r
}

// Windows returns the number of flushed windows.
func (r *Recorder) Windows() int {
	return r.windows
}

// record runs inside Session.Tick with the session lock held.
func (r *Recorder) record(res TickResult) error {
	r.collector.Record(telemetry.TickSample{
		Tick:          res.Tick,
		Elapsed:       res.Elapsed,
		Tensor:        res.Tensor,
		Sections:      res.Sections,
		Touched:       res.Touched,
		BrokenBonds:   res.BrokenBonds,
		KineticEnergy: res.KineticEnergy,
	})
	if r.collector.ShouldFlush(res.Tick) {
		r.flushTelemetry(res)
	}
	return nil
}

// flushTelemetry flushes the stats window and handles bookmarks.
func (r *Recorder) flushTelemetry(res TickResult) {
	logger := r.session.logger
	stats := r.collector.Flush(res.Tick)
	perfStats := r.session.perf.Stats()
	r.windows++

	if r.opts.OnStats != nil {
		r.opts.OnStats(stats)
	}

	if r.opts.LogStats {
		stats.LogStats(logger)
		perfStats.LogStats(logger)
	}

	if om := r.opts.Output; om != nil {
		if err := om.WriteTelemetry(stats); err != nil {
			logger.Error("failed to write telemetry", "error", err)
		}
		if err := om.WriteSections(stats.WindowEndTick, r.collector.LastSections()); err != nil {
			logger.Error("failed to write sections", "error", err)
		}
		if err := om.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			logger.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range r.bookmarks.Check(stats) {
		if r.opts.LogStats {
			bm.LogBookmark(logger)
		}
		if om := r.opts.Output; om != nil {
			if err := om.WriteBookmark(bm); err != nil {
				logger.Error("failed to write bookmark", "error", err)
			}
		}
		if r.opts.SnapshotDir != "" {
			r.saveSnapshot(res, bm, logger)
		}
	}
}

func (r *Recorder) saveSnapshot(res TickResult, bm telemetry.Bookmark, logger *slog.Logger) {
	snap := r.session.snapshotFromResult(res)
	snap.Bookmark = &bm
	path, err := telemetry.SaveSnapshot(snap, r.opts.SnapshotDir)
	if err != nil {
		logger.Error("failed to save snapshot", "error", err)
		return
	}
	logger.Info("snapshot saved", "path", path, "bookmark", string(bm.Type))
}
