package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
)

func bondedPair(sep float64) []components.Particle {
	ps := []components.Particle{
		components.NewStraw(0, r3.Vec{}, 4, 0.05, components.SubtypeWheat),
		components.NewStraw(1, r3.Vec{X: sep}, 4, 0.05, components.SubtypeWheat),
	}
	components.Bond(&ps[0], &ps[1])
	return ps
}

func bondParams(t *testing.T, breakage bool) BondParams {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.EnableBreakage = breakage
	return NewBondParams(&cfg.Simulation, &cfg.Engine)
}

func TestBondRestoringForceDirection(t *testing.T) {
	bp := bondParams(t, false)
	require.InDelta(t, 13.5, bp.RestLength, 1e-12)

	tests := []struct {
		name  string
		delta float64
		sign  float64 // expected sign of force on particle 0 along x
	}{
		{"stretched", 3, 1},
		{"compressed", -3, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := bondedPair(bp.RestLength + tt.delta)
			forces := make([]r3.Vec, len(ps))

			broken := bp.Apply(ps, BuildIDIndex(ps), forces)
			require.Zero(t, broken)

			k := bp.StrawE * 4 * bondStiffnessScale
			assert.InDelta(t, tt.sign*k*3, forces[0].X, 1e-6)
			assert.Equal(t, r3.Scale(-1, forces[0]), forces[1], "Newton's third law")
		})
	}
}

func TestBondDeadBand(t *testing.T) {
	bp := bondParams(t, false)
	ps := bondedPair(bp.RestLength + bondTolerance/2)
	forces := make([]r3.Vec, len(ps))

	bp.Apply(ps, BuildIDIndex(ps), forces)
	assert.Equal(t, r3.Vec{}, forces[0])
	assert.Equal(t, r3.Vec{}, forces[1])
}

func TestBondBreaksSymmetrically(t *testing.T) {
	bp := bondParams(t, true)
	require.Positive(t, bp.BreakForce)

	k := bp.StrawE * 4 * bondStiffnessScale
	stretch := bp.BreakForce/k + 1
	ps := bondedPair(bp.RestLength + stretch)
	forces := make([]r3.Vec, len(ps))

	broken := bp.Apply(ps, BuildIDIndex(ps), forces)
	assert.Equal(t, 1, broken)
	assert.Empty(t, ps[0].Bonds())
	assert.Empty(t, ps[1].Bonds())
	assert.Equal(t, r3.Vec{}, forces[0], "a broken bond contributes no force")
}

func TestBondBreakageDisabled(t *testing.T) {
	bp := bondParams(t, false)
	assert.Zero(t, bp.BreakForce)

	ps := bondedPair(200)
	forces := make([]r3.Vec, len(ps))
	assert.Zero(t, bp.Apply(ps, BuildIDIndex(ps), forces))
	assert.Len(t, ps[0].Bonds(), 1)
}

func TestBuildIDIndex(t *testing.T) {
	ps := []components.Particle{
		components.NewSoil(7, r3.Vec{}, 5, 1, false),
		components.NewDust(3, r3.Vec{}, 2, 0.01),
	}
	idx := BuildIDIndex(ps)
	assert.Equal(t, IDIndex{7: 0, 3: 1}, idx)
}
