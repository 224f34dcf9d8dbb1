package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkDraftSpike      BookmarkType = "draft_spike"
	BookmarkBreakageBurst   BookmarkType = "breakage_burst"
	BookmarkBurialMilestone BookmarkType = "burial_milestone"
	BookmarkToolDisengaged  BookmarkType = "tool_disengaged"
	BookmarkSettled         BookmarkType = "settled"
)

// burialMilestones are the burial rates (%) reported once each on the way up.
var burialMilestones = []float64{25, 50, 75}

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int64        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	logger.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable moments in a run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	nextMilestone       int  // index into burialMilestones
	wasEngaged          bool // tool disturbed soil in the previous window
	settledWindowsCount int  // consecutive quiet windows
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for settle detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Draft spike: mean draft > 2x rolling average
		if b := bd.checkDraftSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Breakage burst: broken bonds > 3x rolling average
		if b := bd.checkBreakageBurst(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	if b := bd.checkBurialMilestone(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkDisengaged(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSettled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// recent returns up to n of the latest windows, oldest first.
func (bd *BookmarkDetector) recent(n int) []WindowStats {
	history := bd.getHistory()
	n = min(n, len(history))
	out := make([]WindowStats, n)
	for i := range out {
		idx := (bd.historyIdx - n + i + bd.historySize) % bd.historySize
		out[i] = bd.history[idx]
	}
	return out
}

func (bd *BookmarkDetector) checkDraftSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.DraftMean
	}
	avg := total / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if stats.DraftMean > avg*2.0 && stats.DraftMean > 0.5 {
		return &Bookmark{
			Type:        BookmarkDraftSpike,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Draft %.2f is %.1fx average (%.2f)", stats.DraftMean, stats.DraftMean/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkBreakageBurst(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.BrokenBonds < 5 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.BrokenBonds
	}
	avg := float64(total) / float64(len(history))

	if float64(stats.BrokenBonds) > avg*3.0 {
		return &Bookmark{
			Type:        BookmarkBreakageBurst,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d straw bonds broke, average %.1f per window", stats.BrokenBonds, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkBurialMilestone(stats WindowStats) *Bookmark {
	var reached float64
	hit := false
	for bd.nextMilestone < len(burialMilestones) && stats.BurialRateEnd >= burialMilestones[bd.nextMilestone] {
		reached = burialMilestones[bd.nextMilestone]
		bd.nextMilestone++
		hit = true
	}
	if !hit {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkBurialMilestone,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Straw burial reached %.0f%% (%.1f%%)", reached, stats.BurialRateEnd),
	}
}

func (bd *BookmarkDetector) checkDisengaged(stats WindowStats) *Bookmark {
	engaged := stats.TouchedTotal > 0
	defer func() { bd.wasEngaged = engaged }()

	if bd.wasEngaged && !engaged {
		return &Bookmark{
			Type:        BookmarkToolDisengaged,
			Tick:        stats.WindowEndTick,
			Description: "Tool left the soil",
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	if stats.TouchedTotal > 0 {
		bd.settledWindowsCount = 0
		return nil
	}

	recent := bd.recent(4)
	if len(recent) < 4 {
		return nil
	}

	// Kinetic energy steady over the last 4 windows
	var sum float64
	for _, h := range recent {
		sum += h.KineticEnd
	}
	mean := sum / 4
	var variance float64
	for _, h := range recent {
		d := h.KineticEnd - mean
		variance += d * d
	}
	variance /= 4

	cv2 := 0.0
	if mean > 0 {
		cv2 = variance / (mean * mean)
	}

	if cv2 < 0.04 { // CV^2 < 0.04 means CV < 0.2
		bd.settledWindowsCount++
	} else {
		bd.settledWindowsCount = 0
	}

	if bd.settledWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkSettled,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Bed settled, kinetic energy %.3g over 5+ windows", stats.KineticEnd),
		}
	}
	return nil
}
