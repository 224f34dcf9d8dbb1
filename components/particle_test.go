package components

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestBondIsSymmetric(t *testing.T) {
	a := NewStraw(1, r3.Vec{}, 5, 1, SubtypeRice)
	b := NewStraw(2, r3.Vec{X: 15}, 5, 1, SubtypeRice)

	Bond(&a, &b)
	Bond(&a, &b) // second call is a no-op

	if len(a.Bonds()) != 1 || a.Bonds()[0] != 2 {
		t.Errorf("a.Bonds() = %v, want [2]", a.Bonds())
	}
	if len(b.Bonds()) != 1 || b.Bonds()[0] != 1 {
		t.Errorf("b.Bonds() = %v, want [1]", b.Bonds())
	}

	Unbond(&a, &b)
	if len(a.Bonds()) != 0 || len(b.Bonds()) != 0 {
		t.Errorf("after Unbond: a=%v b=%v, want empty", a.Bonds(), b.Bonds())
	}
}

func TestBondRequiresStraw(t *testing.T) {
	s := NewSoil(1, r3.Vec{}, 5, 1, false)
	w := NewStraw(2, r3.Vec{}, 5, 1, SubtypeWheat)

	Bond(&s, &w)
	if s.Bonds() != nil {
		t.Errorf("soil Bonds() = %v, want nil", s.Bonds())
	}
	if len(w.Bonds()) != 0 {
		t.Errorf("straw Bonds() = %v, want empty", w.Bonds())
	}
}

func TestSphereMass(t *testing.T) {
	got := SphereMass(2, 1.5, 0.001)
	want := 4.0 / 3.0 * math.Pi * 8 * 1.5 * 0.001
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("SphereMass = %v, want %v", got, want)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindSoil, "soil"},
		{KindStraw, "straw"},
		{KindDust, "dust"},
		{Kind(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
