package integrators

import (
	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Leapfrog is kick-drift-kick in inertial coordinates.
type Leapfrog struct {
	field field
}

func NewLeapfrog(forces ...dynamo.Force) *Leapfrog {
	return &Leapfrog{field: newField(forces)}
}

func (l *Leapfrog) Name() string { return "leapfrog" }

func (l *Leapfrog) Part1(clock *dynamo.Clock, ps dynamo.ParticleStore) []dynamo.Outcome {
	n := ps.Len()
	halfDt := 0.5 * clock.Dt

	acc := l.field.eval(clock.G, ps)
	for i := 0; i < n; i++ {
		p := ps.At(i)
		p.Vel = r3.Add(p.Vel, r3.Scale(halfDt, acc[i]))
		p.Pos = r3.Add(p.Pos, r3.Scale(clock.Dt, p.Vel))
		ps.Set(i, p)
	}

	acc = l.field.eval(clock.G, ps)
	for i := 0; i < n; i++ {
		p := ps.At(i)
		p.Acc = acc[i]
		p.Vel = r3.Add(p.Vel, r3.Scale(halfDt, acc[i]))
		ps.Set(i, p)
	}

	return checkAll(clock, ps)
}

func (l *Leapfrog) Synchronize(*dynamo.Clock, dynamo.ParticleStore) {}

func (l *Leapfrog) Part2(clock *dynamo.Clock) { clock.Advance() }

func (l *Leapfrog) Reset() { l.field.acc = nil }
