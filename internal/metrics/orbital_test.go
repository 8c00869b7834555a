package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSemiMajorAxisDrift(t *testing.T) {
	m := NewSemiMajorAxisDrift()
	clock := dynamo.Clock{G: 1}
	ps := dynamo.NewParticles(
		dynamo.Particle{Mass: 1},
		dynamo.Particle{Pos: r3.Vec{X: 1}, Vel: r3.Vec{Y: 1}},
		dynamo.Particle{Pos: r3.Vec{X: 4}, Vel: r3.Vec{Y: 0.5}},
	)

	m.Observe(clock, ps)
	if m.Value() != 0 {
		t.Errorf("first sample drift %v", m.Value())
	}

	// move the outer body from a = 4 to a = 1/(2/4 - 0.16) = 1/0.34
	p := ps.At(2)
	p.Vel.Y = 0.4
	ps.Set(2, p)
	m.Observe(clock, ps)

	want := math.Abs(1/0.34-4) / 4
	if math.Abs(m.Value()-want) > 1e-9 {
		t.Errorf("drift = %v, want %v", m.Value(), want)
	}

	// escaping is an unbounded change
	p.Vel.Y = 2
	ps.Set(2, p)
	m.Observe(clock, ps)
	if !math.IsInf(m.Value(), 1) {
		t.Errorf("escaped body drift = %v", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestFlaggedParticles(t *testing.T) {
	m := NewFlaggedParticles()
	clock := dynamo.Clock{G: 1}
	ps := dynamo.NewParticles(
		dynamo.Particle{Mass: 1},
		dynamo.Particle{Pos: r3.Vec{X: 1}, Vel: r3.Vec{Y: 1}},
		dynamo.Particle{Pos: r3.Vec{X: 1}, Vel: r3.Vec{Y: 2}},
		dynamo.Particle{Pos: r3.Vec{X: math.NaN()}},
	)

	m.Observe(clock, ps)
	if m.Current() != 2 || m.Value() != 2 {
		t.Errorf("current=%d value=%v, want 2", m.Current(), m.Value())
	}

	ps.Items = ps.Items[:2]
	m.Observe(clock, ps)
	if m.Current() != 0 || m.Value() != 2 {
		t.Errorf("current=%d value=%v", m.Current(), m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}
