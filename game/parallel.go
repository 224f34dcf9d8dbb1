package game

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/systems"
)

// ctxCheckInterval is how many particles a worker gathers between
// cancellation checks.
const ctxCheckInterval = 256

// contactPhase gathers per-particle contact sums, splitting the particle
// range across workers when the population is large enough. Each worker
// reads the shared particle slice and grid and writes only its own range of
// sums, so the result is identical to the single-threaded pass.
type contactPhase struct {
	numWorkers int
	threshold  int
	scratches  [][]int32 // per-worker neighbour buffers
}

func newContactPhase(workers, threshold int) *contactPhase {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratches := make([][]int32, workers)
	for i := range scratches {
		scratches[i] = make([]int32, 0, 64)
	}
	return &contactPhase{
		numWorkers: workers,
		threshold:  threshold,
		scratches:  scratches,
	}
}

// run fills sums[i] for every particle.
func (c *contactPhase) run(ctx context.Context, cp *systems.ContactParams, particles []components.Particle, grid *systems.SpatialGrid, sums []systems.ContactSum) error {
	n := len(particles)
	if n < c.threshold || c.numWorkers == 1 {
		return c.gatherChunk(ctx, cp, particles, grid, sums, 0, n, 0)
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.numWorkers)

	chunkSize := (n + c.numWorkers - 1) / c.numWorkers
	for w := 0; w < c.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		g.Go(func() error {
			return c.gatherChunk(groupCtx, cp, particles, grid, sums, start, end, w)
		})
	}
	return g.Wait()
}

func (c *contactPhase) gatherChunk(ctx context.Context, cp *systems.ContactParams, particles []components.Particle, grid *systems.SpatialGrid, sums []systems.ContactSum, start, end, worker int) error {
	scratch := c.scratches[worker]
	defer func() { c.scratches[worker] = scratch }()

	for i := start; i < end; i++ {
		if (i-start)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		sums[i], scratch = cp.Gather(particles, i, grid, scratch)
	}
	return nil
}
