// Package systems provides the engine stages: neighbour search, force models,
// tool contact, integration and aggregation.
package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// cellKey addresses one cell of the unbounded grid.
type cellKey struct {
	X, Y, Z int32
}

// SpatialGrid is a uniform 3D hash grid of particle indices.
// Buckets are cleared, never freed, so steady-state rebuilds do not allocate.
type SpatialGrid struct {
	inv     float64
	buckets map[cellKey][]int32
}

// NewSpatialGrid creates a grid with the given cell edge length.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	return &SpatialGrid{
		inv:     1 / cellSize,
		buckets: make(map[cellKey][]int32, 1024),
	}
}

// Clear empties all buckets, keeping their storage.
func (g *SpatialGrid) Clear() {
	for k, b := range g.buckets {
		g.buckets[k] = b[:0]
	}
}

// Insert appends a particle index to the bucket for its cell.
func (g *SpatialGrid) Insert(index int32, pos r3.Vec) {
	k := g.key(pos)
	g.buckets[k] = append(g.buckets[k], index)
}

// QueryNeighborsInto appends every index in the 3×3×3 block of cells around
// pos to dst and returns it. Callers filter self-matches and apply exact
// distance tests; the grid only bounds the candidate set.
func (g *SpatialGrid) QueryNeighborsInto(dst []int32, pos r3.Vec) []int32 {
	c := g.key(pos)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				b := g.buckets[cellKey{c.X + dx, c.Y + dy, c.Z + dz}]
				dst = append(dst, b...)
			}
		}
	}
	return dst
}

// Occupied returns the number of non-empty buckets.
func (g *SpatialGrid) Occupied() int {
	n := 0
	for _, b := range g.buckets {
		if len(b) > 0 {
			n++
		}
	}
	return n
}

func (g *SpatialGrid) key(pos r3.Vec) cellKey {
	return cellKey{
		X: int32(math.Floor(pos.X * g.inv)),
		Y: int32(math.Floor(pos.Y * g.inv)),
		Z: int32(math.Floor(pos.Z * g.inv)),
	}
}
