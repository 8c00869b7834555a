package dynamo

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestParticle_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		p     Particle
		valid bool
	}{
		{"zero", Particle{}, true},
		{"normal", Particle{Pos: r3.Vec{X: 1}, Vel: r3.Vec{Y: 1}, Mass: 1}, true},
		{"NaN position", Particle{Pos: r3.Vec{X: math.NaN()}}, false},
		{"+Inf velocity", Particle{Vel: r3.Vec{Z: math.Inf(1)}}, false},
		{"-Inf mass", Particle{Mass: math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParticles_CloneIsIndependent(t *testing.T) {
	ps := NewParticles(Particle{Mass: 1}, Particle{Pos: r3.Vec{X: 1}})
	ps.Ref = 0

	c := ps.Clone()
	c.Set(1, Particle{Pos: r3.Vec{X: 99}})

	if ps.At(1).Pos.X != 1 {
		t.Error("Clone shares storage with the original")
	}
	if c.Reference() != 0 || c.Len() != 2 {
		t.Errorf("Clone lost shape: ref=%d len=%d", c.Reference(), c.Len())
	}
}

func TestClock(t *testing.T) {
	c := NewClock(1.0, 0.25)
	for i := 0; i < 4; i++ {
		c.Advance()
	}
	if c.T != 1.0 || c.Step != 4 {
		t.Errorf("after 4 steps: T=%v Step=%d", c.T, c.Step)
	}

	// 0.01 is not representable; plain accumulation is off by ~2e-13 here
	c = NewClock(1.0, 0.01)
	for i := 0; i < 1000; i++ {
		c.Advance()
	}
	if d := math.Abs(c.T - 10); d > 2e-15 || c.Step != 1000 {
		t.Errorf("after 1000 steps of 0.01: T=%.17g (off by %g) Step=%d", c.T, d, c.Step)
	}

	bad := []Clock{
		{G: 1, Dt: 0},
		{G: 1, Dt: -0.1},
		{G: 1, Dt: math.Inf(1)},
		{G: 0, Dt: 0.1},
		{G: math.NaN(), Dt: 0.1},
	}
	for _, b := range bad {
		if err := b.Validate(); !errors.Is(err, ErrParameterBounds) {
			t.Errorf("Validate(%+v) = %v, want ErrParameterBounds", b, err)
		}
	}
}

func TestParticleError(t *testing.T) {
	err := &ParticleError{Index: 3, Step: 150, Time: 1.5, Wrapped: ErrConvergence}
	expected := "particle 3, step 150 (t=1.5): dynamo: kepler solver did not converge"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrConvergence) {
		t.Error("ParticleError does not unwrap to its cause")
	}
}

func TestFailures(t *testing.T) {
	outcomes := []Outcome{
		{Index: 1},
		{Index: 2, Err: ErrInvalidState},
		{Index: 3},
	}
	failed := Failures(outcomes)
	if len(failed) != 1 || failed[0].Index != 2 {
		t.Errorf("Failures() = %+v", failed)
	}
	if !outcomes[0].Advanced() || outcomes[1].Advanced() {
		t.Error("Advanced() disagrees with Err")
	}
}

func TestParallelFor_VisitsEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 64, 1000} {
		counts := make([]int32, n)
		ParallelFor(n, 4, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&counts[i], 1)
			}
		})
		for i, c := range counts {
			if c != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, c)
			}
		}
	}
}
