package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/pthm-cable/soilbin/config"
)

// HallEntry is one evaluated parameter set and the outcome it produced.
type HallEntry struct {
	Cost           float64            `json:"cost"` // lower is better
	Params         map[string]float64 `json:"params"`
	BurialRate     float64            `json:"burial_rate"`
	Disturbance    float64            `json:"disturbance"`
	Draft          float64            `json:"draft"`
	SpecificEnergy float64            `json:"specific_energy"`
	Eval           int                `json:"eval"`
}

// HallOfFame keeps the best parameter sets found by a search, one hall per
// tool type.
type HallOfFame struct {
	halls   map[config.ToolType][]HallEntry
	maxSize int
}

// NewHallOfFame creates a new hall of fame with the given capacity per tool.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		halls:   make(map[config.ToolType][]HallEntry),
		maxSize: maxSize,
	}
}

// Consider offers an entry to the hall of its tool.
// Returns true if the entry was kept.
func (hof *HallOfFame) Consider(tool config.ToolType, entry HallEntry) bool {
	hall := hof.halls[tool]
	updated, kept := hof.insertEntry(hall, entry)
	hof.halls[tool] = updated
	return kept
}

// insertEntry adds an entry to the hall, maintaining ascending cost order.
// If the hall is full, the highest-cost entry is removed.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) ([]HallEntry, bool) {
	// Find insertion point (sorted ascending by cost)
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Cost > entry.Cost
	})

	// If hall is full and entry would be last (worst), skip it
	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall, false
	}

	// Insert at position
	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	// Trim if over capacity
	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}

	return hall, true
}

// Best returns the lowest-cost entry for a tool.
func (hof *HallOfFame) Best(tool config.ToolType) (HallEntry, bool) {
	hall := hof.halls[tool]
	if len(hall) == 0 {
		return HallEntry{}, false
	}
	return hall[0], true
}

// Size returns the number of entries for a tool.
func (hof *HallOfFame) Size(tool config.ToolType) int {
	return len(hof.halls[tool])
}

// LogStats logs hall sizes and best costs.
func (hof *HallOfFame) LogStats(logger *slog.Logger) {
	for tool, hall := range hof.halls {
		if len(hall) == 0 {
			continue
		}
		logger.Info("hall_of_fame", "tool", string(tool), "size", len(hall), "best_cost", hall[0].Cost)
	}
}

// MarshalJSON serializes the hall of fame keyed by tool name.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	export := make(map[string][]HallEntry, len(hof.halls))
	for tool, hall := range hof.halls {
		export[string(tool)] = hall
	}
	return json.MarshalIndent(export, "", "  ")
}

// LoadHallOfFameFromFile reads a hall of fame JSON file. Halls keyed by an
// unknown tool are skipped.
func LoadHallOfFameFromFile(path string, maxSize int) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var raw map[string][]HallEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	for _, entries := range raw {
		maxSize = max(maxSize, len(entries))
	}
	hof := NewHallOfFame(maxSize)

	for name, entries := range raw {
		tool := config.ToolType(name)
		if !config.ValidToolType(tool) {
			slog.Warn("hall_of_fame_load: unknown tool, skipping", "tool", name)
			continue
		}
		for _, e := range entries {
			hof.Consider(tool, e)
		}
	}

	return hof, nil
}
