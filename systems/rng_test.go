package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLCGKnownSequence(t *testing.T) {
	r := NewLCG(DefaultSeed)
	want := []uint32{87628868, 71072467, 2332836374}
	for i, w := range want {
		v := r.Next()
		require.Equal(t, w, r.Seed(), "state after call %d", i)
		assert.InDelta(t, float64(w)/4294967296.0, v, 1e-15)
	}
}

func TestLCGRange(t *testing.T) {
	r := NewLCG(1)
	for i := 0; i < 10000; i++ {
		v := r.Next()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestLCGResetReproduces(t *testing.T) {
	r := NewLCG(DefaultSeed)
	first := make([]float64, 50)
	for i := range first {
		first[i] = r.Next()
	}

	r.Reset(0)
	assert.Equal(t, DefaultSeed, r.Seed())
	for i := range first {
		assert.Equal(t, first[i], r.Next(), "draw %d", i)
	}
}

func TestLCGIndependentInstances(t *testing.T) {
	a := NewLCG(7)
	b := NewLCG(7)
	a.Next()
	a.Next()
	b.Next()
	assert.NotEqual(t, a.Seed(), b.Seed())
}
