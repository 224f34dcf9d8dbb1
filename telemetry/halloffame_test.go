package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/soilbin/config"
)

func TestHallOfFameKeepsLowestCost(t *testing.T) {
	hof := NewHallOfFame(3)
	tool := config.ToolRotaryTiller

	costs := []float64{5, 1, 4, 3, 9, 2}
	for i, c := range costs {
		hof.Consider(tool, HallEntry{Cost: c, Eval: i})
	}

	if got := hof.Size(tool); got != 3 {
		t.Fatalf("Size = %d, want 3", got)
	}
	best, ok := hof.Best(tool)
	if !ok || best.Cost != 1 {
		t.Errorf("Best = %+v, %v; want cost 1", best, ok)
	}
	if kept := hof.Consider(tool, HallEntry{Cost: 10}); kept {
		t.Error("worse-than-hall entry should be rejected when full")
	}
	if _, ok := hof.Best(config.ToolChiselPlough); ok {
		t.Error("empty hall reported a best entry")
	}
}

func TestHallOfFameRoundTrip(t *testing.T) {
	hof := NewHallOfFame(5)
	hof.Consider(config.ToolMoldboardPlough, HallEntry{Cost: -3, Params: map[string]float64{"depth": 18}})
	hof.Consider(config.ToolRotaryTiller, HallEntry{Cost: -7, Params: map[string]float64{"depth": 12}})

	data, err := hof.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	path := filepath.Join(t.TempDir(), "hall_of_fame.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadHallOfFameFromFile(path, 5)
	if err != nil {
		t.Fatalf("LoadHallOfFameFromFile: %v", err)
	}
	best, ok := loaded.Best(config.ToolRotaryTiller)
	if !ok || best.Cost != -7 || best.Params["depth"] != 12 {
		t.Errorf("rotary best = %+v, %v", best, ok)
	}
	if loaded.Size(config.ToolMoldboardPlough) != 1 {
		t.Errorf("moldboard size = %d, want 1", loaded.Size(config.ToolMoldboardPlough))
	}
}

func TestLoadHallOfFameSkipsUnknownTool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hof.json")
	if err := os.WriteFile(path, []byte(`{"Harrow": [{"cost": 1}]}`), 0644); err != nil {
		t.Fatal(err)
	}
	hof, err := LoadHallOfFameFromFile(path, 3)
	if err != nil {
		t.Fatalf("LoadHallOfFameFromFile: %v", err)
	}
	if hof.Size("Harrow") != 0 {
		t.Error("unknown tool hall should be skipped")
	}
}
