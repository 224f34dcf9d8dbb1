package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
)

func TestSpatialGridNeighborCompleteness(t *testing.T) {
	tests := []struct {
		name string
		a, b r3.Vec
	}{
		{"same cell", r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 5, Y: 5, Z: 5}},
		{"across x boundary", r3.Vec{X: 29.5}, r3.Vec{X: 30.5}},
		{"across negative boundary", r3.Vec{X: -0.5, Y: -0.5}, r3.Vec{X: 0.5, Y: 0.5}},
		{"diagonal corner", r3.Vec{X: 29, Y: 29, Z: 29}, r3.Vec{X: 31, Y: 31, Z: 31}},
		{"contact range apart", r3.Vec{X: -100, Y: -200, Z: 50}, r3.Vec{X: -86, Y: -200, Z: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewSpatialGrid(30)
			g.Insert(0, tt.a)
			g.Insert(1, tt.b)

			assert.Contains(t, g.QueryNeighborsInto(nil, tt.a), int32(1))
			assert.Contains(t, g.QueryNeighborsInto(nil, tt.b), int32(0))
		})
	}
}

func TestSpatialGridExcludesFarCells(t *testing.T) {
	g := NewSpatialGrid(30)
	g.Insert(0, r3.Vec{})
	g.Insert(1, r3.Vec{X: 95})

	assert.NotContains(t, g.QueryNeighborsInto(nil, r3.Vec{}), int32(1))
}

func TestSpatialGridClearKeepsBuckets(t *testing.T) {
	g := NewSpatialGrid(30)
	for i := int32(0); i < 10; i++ {
		g.Insert(i, r3.Vec{X: float64(i) * 40})
	}
	assert.Equal(t, 10, g.Occupied())

	g.Clear()
	assert.Equal(t, 0, g.Occupied())
	assert.Len(t, g.buckets, 10, "buckets are emptied, not freed")
	assert.Empty(t, g.QueryNeighborsInto(nil, r3.Vec{}))

	g.Insert(3, r3.Vec{X: 1})
	assert.Equal(t, []int32{3}, g.QueryNeighborsInto(nil, r3.Vec{}))
}

func TestSpatialGridReusesScratch(t *testing.T) {
	g := NewSpatialGrid(30)
	g.Insert(0, r3.Vec{})
	g.Insert(1, r3.Vec{X: 1})

	scratch := make([]int32, 0, 16)
	got := g.QueryNeighborsInto(scratch, r3.Vec{})
	assert.ElementsMatch(t, []int32{0, 1}, got)
	assert.Equal(t, cap(scratch), cap(got))
}

func TestMinGridCellCoversCohesiveClods(t *testing.T) {
	cp := contactParams(t, func(s *config.SimulationParams) {
		s.ContactModel = config.ContactJKR
		s.CohesionStrength = 15
	})
	r := config.MaxParticleRadius
	sep := 2*r*config.CohesionRangeFactor - 0.01
	cell := config.MinGridCellSize

	// Each pair straddles cell boundaries so the separation spans a whole cell.
	tests := []struct {
		name string
		dir  r3.Vec
	}{
		{"x", r3.Vec{X: 1}},
		{"y", r3.Vec{Y: 1}},
		{"z", r3.Vec{Z: 1}},
		{"diagonal", r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := components.NewSoil(0, r3.Scale(cell-0.001, tt.dir), r, 1, true)
			b := components.NewSoil(1, r3.Add(a.Pos, r3.Scale(sep, tt.dir)), r, 1, true)
			require.True(t, cp.Pair(&a, &b).Active, "clods within cohesive reach")

			g := NewSpatialGrid(cell)
			g.Insert(0, a.Pos)
			g.Insert(1, b.Pos)
			assert.Contains(t, g.QueryNeighborsInto(nil, a.Pos), int32(1))
			assert.Contains(t, g.QueryNeighborsInto(nil, b.Pos), int32(0))
		})
	}
}
