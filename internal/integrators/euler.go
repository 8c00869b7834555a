package integrators

import (
	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Euler is the explicit first-order scheme. It does not conserve energy and
// is kept as a baseline.
type Euler struct {
	field field
}

func NewEuler(forces ...dynamo.Force) *Euler {
	return &Euler{field: newField(forces)}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Part1(clock *dynamo.Clock, ps dynamo.ParticleStore) []dynamo.Outcome {
	acc := e.field.eval(clock.G, ps)
	for i := 0; i < ps.Len(); i++ {
		p := ps.At(i)
		p.Acc = acc[i]
		p.Pos = r3.Add(p.Pos, r3.Scale(clock.Dt, p.Vel))
		p.Vel = r3.Add(p.Vel, r3.Scale(clock.Dt, acc[i]))
		ps.Set(i, p)
	}
	return checkAll(clock, ps)
}

func (e *Euler) Synchronize(*dynamo.Clock, dynamo.ParticleStore) {}

func (e *Euler) Part2(clock *dynamo.Clock) { clock.Advance() }

func (e *Euler) Reset() { e.field.acc = nil }
