package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	// Nil manager is a no-op
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Errorf("nil WriteTelemetry: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestOutputManagerWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for i := int64(1); i <= 3; i++ {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: i * 60, DraftMean: float64(i)}); err != nil {
			t.Fatalf("WriteTelemetry: %v", err)
		}
	}
	if err := om.WritePerf(PerfStats{}, 60); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkSettled, Tick: 60, Description: "quiet"}); err != nil {
		t.Fatalf("WriteBookmark: %v", err)
	}
	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("telemetry.csv has %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end,") {
		t.Errorf("header = %q", lines[0])
	}

	var rows []WindowStats
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	if rows[2].WindowEndTick != 180 || rows[2].DraftMean != 3 {
		t.Errorf("last row = %+v", rows[2])
	}

	for _, name := range []string{"perf.csv", "bookmarks.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestOutputManagerSections(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	sections := []components.SectionStat{
		{ID: 1, Label: "Section 1 (Top)", SoilCount: 10, StrawCount: 4, RiceCount: 4, AvgDepth: 30},
		{ID: 2, Label: "Section 2", SoilCount: 12},
	}
	if err := om.WriteSections(60, sections); err != nil {
		t.Fatalf("WriteSections: %v", err)
	}
	if err := om.WriteSections(120, sections); err != nil {
		t.Fatalf("WriteSections: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	var rows []SectionRecord
	data, err := os.ReadFile(filepath.Join(dir, "sections.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		t.Fatalf("reading sections.csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("sections.csv has %d rows, want 4", len(rows))
	}
	if rows[0].Label != "Section 1 (Top)" || rows[0].Rice != 4 || rows[0].AvgDepthMM != 30 {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[3].WindowEnd != 120 || rows[3].Section != 2 {
		t.Errorf("last row = %+v", rows[3])
	}
}
