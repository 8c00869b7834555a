package integrators

import (
	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// RK4 is the classical fourth-order Runge-Kutta scheme applied to the
// particle positions and velocities.
type RK4 struct {
	field field

	x0, v0  []r3.Vec
	kx, kv  [4][]r3.Vec
	scratch *dynamo.Particles
}

func NewRK4(forces ...dynamo.Force) *RK4 {
	return &RK4{field: newField(forces)}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(ps dynamo.ParticleStore) {
	n := ps.Len()
	if len(r.x0) != n {
		r.x0 = make([]r3.Vec, n)
		r.v0 = make([]r3.Vec, n)
		for s := range r.kx {
			r.kx[s] = make([]r3.Vec, n)
			r.kv[s] = make([]r3.Vec, n)
		}
	}
	r.scratch = &dynamo.Particles{Items: dynamo.Snapshot(ps), Ref: ps.Reference()}
}

func (r *RK4) Part1(clock *dynamo.Clock, ps dynamo.ParticleStore) []dynamo.Outcome {
	n := ps.Len()
	r.ensureScratch(ps)
	dt := clock.Dt

	for i := 0; i < n; i++ {
		p := ps.At(i)
		r.x0[i], r.v0[i] = p.Pos, p.Vel
	}

	weights := [4]float64{0, 0.5, 0.5, 1}
	for s := 0; s < 4; s++ {
		if s > 0 {
			for i := 0; i < n; i++ {
				q := &r.scratch.Items[i]
				q.Pos = r3.Add(r.x0[i], r3.Scale(weights[s]*dt, r.kx[s-1][i]))
				q.Vel = r3.Add(r.v0[i], r3.Scale(weights[s]*dt, r.kv[s-1][i]))
			}
		}
		acc := r.field.eval(clock.G, r.scratch)
		for i := 0; i < n; i++ {
			r.kx[s][i] = r.scratch.Items[i].Vel
			r.kv[s][i] = acc[i]
		}
	}

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		p := ps.At(i)
		dx := r3.Add(r3.Add(r.kx[0][i], r3.Scale(2, r.kx[1][i])), r3.Add(r3.Scale(2, r.kx[2][i]), r.kx[3][i]))
		dv := r3.Add(r3.Add(r.kv[0][i], r3.Scale(2, r.kv[1][i])), r3.Add(r3.Scale(2, r.kv[2][i]), r.kv[3][i]))
		p.Pos = r3.Add(r.x0[i], r3.Scale(dt6, dx))
		p.Vel = r3.Add(r.v0[i], r3.Scale(dt6, dv))
		p.Acc = r.kv[0][i]
		ps.Set(i, p)
	}

	return checkAll(clock, ps)
}

func (r *RK4) Synchronize(*dynamo.Clock, dynamo.ParticleStore) {}

func (r *RK4) Part2(clock *dynamo.Clock) { clock.Advance() }

func (r *RK4) Reset() {
	r.x0, r.v0 = nil, nil
	r.scratch = nil
	r.field.acc = nil
}
