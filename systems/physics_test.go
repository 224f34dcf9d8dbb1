package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
)

func testIntegrator() *Integrator {
	cfg := config.Default()
	return NewIntegrator(&cfg.Engine)
}

func TestIntegratorFreeFall(t *testing.T) {
	it := testIntegrator()
	p := components.NewSoil(0, r3.Vec{Y: -10}, 5, 1, false)

	it.Step(&p, r3.Vec{})

	wantVY := -it.Gravity * it.DT * it.Damping
	assert.InDelta(t, wantVY, p.Vel.Y, 1e-12)
	assert.InDelta(t, -10+wantVY*it.DT, p.Pos.Y, 1e-12)
	assert.Zero(t, p.Vel.X)
}

func TestIntegratorAppliesForce(t *testing.T) {
	it := testIntegrator()
	p := components.NewSoil(0, r3.Vec{}, 5, 2, false)

	it.Step(&p, r3.Vec{X: 4000})
	assert.InDelta(t, 4000/2*it.DT*it.Damping, p.Vel.X, 1e-12)
}

func TestBoundsClamp(t *testing.T) {
	b := Bounds{HalfWidth: 600, HalfDepth: 300, Floor: -250, StrawCover: 150}

	tests := []struct {
		name    string
		kind    components.Kind
		pos     r3.Vec
		vel     r3.Vec
		wantPos r3.Vec
		wantVel r3.Vec
	}{
		{"floor", components.KindSoil, r3.Vec{Y: -260}, r3.Vec{Y: -100}, r3.Vec{Y: -250}, r3.Vec{Y: 30}},
		{"east wall", components.KindSoil, r3.Vec{X: 610}, r3.Vec{X: 40}, r3.Vec{X: 600}, r3.Vec{X: -20}},
		{"west wall", components.KindDust, r3.Vec{X: -605}, r3.Vec{X: -10}, r3.Vec{X: -600}, r3.Vec{X: 5}},
		{"north wall", components.KindSoil, r3.Vec{Z: 301}, r3.Vec{Z: 8}, r3.Vec{Z: 300}, r3.Vec{Z: -4}},
		{"south wall", components.KindSoil, r3.Vec{Z: -301}, r3.Vec{Z: -8}, r3.Vec{Z: -300}, r3.Vec{Z: 4}},
		{"straw cover", components.KindStraw, r3.Vec{Y: 160}, r3.Vec{X: 10, Y: 20, Z: -10}, r3.Vec{Y: 150}, r3.Vec{X: 8, Y: -10, Z: -8}},
		{"soil ignores cover", components.KindSoil, r3.Vec{Y: 160}, r3.Vec{Y: 20}, r3.Vec{Y: 160}, r3.Vec{Y: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := components.Particle{Kind: tt.kind, Pos: tt.pos, Vel: tt.vel, Mass: 1, Radius: 1}
			b.Clamp(&p)
			assert.InDelta(t, tt.wantPos.X, p.Pos.X, 1e-12)
			assert.InDelta(t, tt.wantPos.Y, p.Pos.Y, 1e-12)
			assert.InDelta(t, tt.wantPos.Z, p.Pos.Z, 1e-12)
			assert.InDelta(t, tt.wantVel.X, p.Vel.X, 1e-12)
			assert.InDelta(t, tt.wantVel.Y, p.Vel.Y, 1e-12)
			assert.InDelta(t, tt.wantVel.Z, p.Vel.Z, 1e-12)
			assert.True(t, b.Contains(&p))
		})
	}
}

func TestIntegratorContainsFastParticle(t *testing.T) {
	it := testIntegrator()
	p := components.NewSoil(0, r3.Vec{X: 590, Y: -240}, 5, 1, false)
	p.Vel = r3.Vec{X: 1e6, Y: -1e6, Z: 1e6}

	it.Step(&p, r3.Vec{})
	assert.True(t, it.Bounds.Contains(&p))
}
