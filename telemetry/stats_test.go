package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/soilbin/components"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	d := Summarize(values)

	if math.Abs(d.Mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", d.Mean)
	}
	// Population standard deviation
	if math.Abs(d.Std-math.Sqrt(0.0825)) > 0.001 {
		t.Errorf("std = %v, want ~0.287", d.Std)
	}
	if math.Abs(d.P10-0.19) > 0.01 {
		t.Errorf("p10 = %v, want ~0.19", d.P10)
	}
	if math.Abs(d.P50-0.55) > 0.01 {
		t.Errorf("p50 = %v, want ~0.55", d.P50)
	}
	if math.Abs(d.P90-0.91) > 0.01 {
		t.Errorf("p90 = %v, want ~0.91", d.P90)
	}
	if d.Max != 1.0 {
		t.Errorf("max = %v, want 1.0", d.Max)
	}
	// Percentiles sort a copy, so the caller's order is untouched
	if values[0] != 0.1 || values[9] != 1.0 {
		t.Errorf("input reordered: %v", values)
	}
	values[0] = 5
	if Summarize(values).Max != 5 {
		t.Error("Summarize max ignored an updated value")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if d := Summarize(nil); d != (Distribution{}) {
		t.Errorf("empty series = %+v, want zeros", d)
	}
}

func sampleAt(tick int64, draft, power float64) TickSample {
	var s TickSample
	s.Tick = tick
	s.Tensor.Physical.DraftForce = draft
	s.Tensor.Physical.MaxShearStress = draft * 1.5
	s.Tensor.Physical.BurialRate = float64(tick)
	s.Tensor.Energetic.Power = power
	s.Touched = 2
	s.BrokenBonds = 1
	s.KineticEnergy = float64(tick) * 10
	s.Sections = []components.SectionStat{{ID: 1, SoilCount: int(tick)}}
	return s
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(3, 0.5)

	for tick := int64(1); tick <= 3; tick++ {
		if c.ShouldFlush(tick - 1) {
			t.Fatalf("ShouldFlush(%d) = true before window end", tick-1)
		}
		c.Record(sampleAt(tick, float64(tick), 10*float64(tick)))
	}
	if !c.ShouldFlush(3) {
		t.Fatal("ShouldFlush(3) = false, want true")
	}

	stats := c.Flush(3)
	if stats.WindowStartTick != 0 || stats.WindowEndTick != 3 {
		t.Errorf("window = [%d,%d], want [0,3]", stats.WindowStartTick, stats.WindowEndTick)
	}
	if stats.Ticks != 3 {
		t.Errorf("Ticks = %d, want 3", stats.Ticks)
	}
	if stats.SimTimeSec != 1.5 {
		t.Errorf("SimTimeSec = %v, want 1.5", stats.SimTimeSec)
	}
	if math.Abs(stats.DraftMean-2) > 1e-9 {
		t.Errorf("DraftMean = %v, want 2", stats.DraftMean)
	}
	if stats.MaxShearStress != 4.5 {
		t.Errorf("MaxShearStress = %v, want 4.5", stats.MaxShearStress)
	}
	if stats.BurialRateEnd != 3 {
		t.Errorf("BurialRateEnd = %v, want 3", stats.BurialRateEnd)
	}
	if stats.TouchedTotal != 6 || stats.BrokenBonds != 3 {
		t.Errorf("touched/broken = %d/%d, want 6/3", stats.TouchedTotal, stats.BrokenBonds)
	}
	// Mean power 20 over 3 ticks of 0.5s
	if math.Abs(stats.EnergyJoules-30) > 1e-9 {
		t.Errorf("EnergyJoules = %v, want 30", stats.EnergyJoules)
	}
	if stats.KineticEnd != 30 {
		t.Errorf("KineticEnd = %v, want 30", stats.KineticEnd)
	}
	if got := c.LastSections(); len(got) != 1 || got[0].SoilCount != 3 {
		t.Errorf("LastSections = %+v, want the tick 3 histogram", got)
	}

	// Counters reset for the next window
	if c.ShouldFlush(5) {
		t.Error("ShouldFlush(5) = true right after flushing at 3")
	}
	next := c.Flush(6)
	if next.Ticks != 0 || next.TouchedTotal != 0 || next.MaxShearStress != 0 {
		t.Errorf("next window not reset: %+v", next)
	}
}
