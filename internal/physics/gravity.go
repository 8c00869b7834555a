package physics

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Gravity is direct-summation Newtonian gravity between every pair of
// particles.
type Gravity struct {
	Softening float64
	// SkipReference drops every pair involving the reference body. The
	// reference body's pull is then left to the Kepler drift.
	SkipReference bool
}

// Interactions is the body-body part of the potential used by the kick of a
// drift-kick-drift step.
func Interactions(softening float64) Gravity {
	return Gravity{Softening: softening, SkipReference: true}
}

func (gr Gravity) Accelerations(g float64, ps dynamo.ParticleStore, acc []r3.Vec) {
	n := ps.Len()
	ref := ps.Reference()
	eps2 := gr.Softening * gr.Softening

	for i := 0; i < n; i++ {
		if gr.SkipReference && i == ref {
			continue
		}
		pi := ps.At(i)

		for j := i + 1; j < n; j++ {
			if gr.SkipReference && j == ref {
				continue
			}
			pj := ps.At(j)

			d := r3.Sub(pj.Pos, pi.Pos)
			r2 := r3.Norm2(d) + eps2
			if r2 == 0 {
				continue
			}
			rInv := 1.0 / math.Sqrt(r2)
			r3Inv := rInv * rInv * rInv

			acc[i] = r3.Add(acc[i], r3.Scale(g*pj.Mass*r3Inv, d))
			acc[j] = r3.Sub(acc[j], r3.Scale(g*pi.Mass*r3Inv, d))
		}
	}
}

// Indirect is the fictitious acceleration of a frame that stays on the
// reference body. Every other body feels minus the reference body's pull
// towards the rest of the system, leaving out its own pull, which the
// Kepler drift already covers through kc = G(M+m).
type Indirect struct{}

func (Indirect) Accelerations(g float64, ps dynamo.ParticleStore, acc []r3.Vec) {
	ref := ps.Reference()
	centre := ps.At(ref).Pos
	pull := func(p dynamo.Particle) r3.Vec {
		d := r3.Sub(p.Pos, centre)
		r2 := r3.Norm2(d)
		if r2 == 0 || p.Mass == 0 {
			return r3.Vec{}
		}
		return r3.Scale(g*p.Mass/(r2*math.Sqrt(r2)), d)
	}

	var total r3.Vec
	for j := 0; j < ps.Len(); j++ {
		if j != ref {
			total = r3.Add(total, pull(ps.At(j)))
		}
	}
	for i := 0; i < ps.Len(); i++ {
		if i != ref {
			acc[i] = r3.Sub(acc[i], r3.Sub(total, pull(ps.At(i))))
		}
	}
}

// Energy is the total kinetic plus pairwise potential energy.
func Energy(g float64, ps dynamo.ParticleStore, softening float64) float64 {
	n := ps.Len()
	eps2 := softening * softening
	ke, pe := 0.0, 0.0

	for i := 0; i < n; i++ {
		pi := ps.At(i)
		ke += 0.5 * pi.Mass * r3.Norm2(pi.Vel)

		for j := i + 1; j < n; j++ {
			pj := ps.At(j)
			r := math.Sqrt(r3.Norm2(r3.Sub(pj.Pos, pi.Pos)) + eps2)
			pe -= g * pi.Mass * pj.Mass / r
		}
	}

	return ke + pe
}

// InternalEnergy is Energy less the kinetic energy of the centre of mass.
// It depends only on relative positions and velocities, so it is conserved
// both in an inertial frame and in one pinned to the reference body.
func InternalEnergy(g float64, ps dynamo.ParticleStore, softening float64) float64 {
	m, _, v := centreOfMass(ps)
	return Energy(g, ps, softening) - 0.5*m*r3.Norm2(v)
}

// KeplerEnergy sums the specific two-body energies v^2/2 - G(M+m)/r of every
// body about the reference. Independent Kepler orbits conserve each term.
func KeplerEnergy(g float64, ps dynamo.ParticleStore, _ float64) float64 {
	ref := ps.Reference()
	c := ps.At(ref)
	e := 0.0
	for i := 0; i < ps.Len(); i++ {
		if i == ref {
			continue
		}
		p := ps.At(i)
		r := r3.Norm(r3.Sub(p.Pos, c.Pos))
		if r == 0 {
			continue
		}
		e += 0.5*r3.Norm2(r3.Sub(p.Vel, c.Vel)) - g*(c.Mass+p.Mass)/r
	}
	return e
}

func centreOfMass(ps dynamo.ParticleStore) (m float64, pos, vel r3.Vec) {
	for i := 0; i < ps.Len(); i++ {
		q := ps.At(i)
		m += q.Mass
		pos = r3.Add(pos, r3.Scale(q.Mass, q.Pos))
		vel = r3.Add(vel, r3.Scale(q.Mass, q.Vel))
	}
	if m == 0 {
		return 0, r3.Vec{}, r3.Vec{}
	}
	return m, r3.Scale(1/m, pos), r3.Scale(1/m, vel)
}

func Momentum(ps dynamo.ParticleStore) r3.Vec {
	var p r3.Vec
	for i := 0; i < ps.Len(); i++ {
		q := ps.At(i)
		p = r3.Add(p, r3.Scale(q.Mass, q.Vel))
	}
	return p
}

func AngularMomentum(ps dynamo.ParticleStore) r3.Vec {
	var l r3.Vec
	for i := 0; i < ps.Len(); i++ {
		q := ps.At(i)
		l = r3.Add(l, r3.Scale(q.Mass, r3.Cross(q.Pos, q.Vel)))
	}
	return l
}

// InternalAngularMomentum is the angular momentum about the centre of mass,
// in the centre of mass frame.
func InternalAngularMomentum(ps dynamo.ParticleStore) r3.Vec {
	m, pos, vel := centreOfMass(ps)
	return r3.Sub(AngularMomentum(ps), r3.Scale(m, r3.Cross(pos, vel)))
}

// KeplerAngularMomentum sums the specific angular momenta of every body
// about the reference.
func KeplerAngularMomentum(ps dynamo.ParticleStore) r3.Vec {
	ref := ps.Reference()
	c := ps.At(ref)
	var l r3.Vec
	for i := 0; i < ps.Len(); i++ {
		if i == ref {
			continue
		}
		p := ps.At(i)
		l = r3.Add(l, r3.Cross(r3.Sub(p.Pos, c.Pos), r3.Sub(p.Vel, c.Vel)))
	}
	return l
}

// Invariants pairs the energy and angular momentum that a scheme keeps
// constant, so drift diagnostics compare like with like.
type Invariants struct {
	Name            string
	Energy          func(g float64, ps dynamo.ParticleStore, softening float64) float64
	AngularMomentum func(ps dynamo.ParticleStore) r3.Vec
}

var (
	// Barycentric holds for the full N-body problem, whichever body the
	// frame follows.
	Barycentric = Invariants{Name: "barycentric", Energy: InternalEnergy, AngularMomentum: InternalAngularMomentum}
	// TwoBody holds for bodies on independent orbits about the reference.
	TwoBody = Invariants{Name: "two-body", Energy: KeplerEnergy, AngularMomentum: KeplerAngularMomentum}
)

// OrDefault returns inv, or Barycentric when inv is the zero value.
func (inv Invariants) OrDefault() Invariants {
	if inv.Energy == nil || inv.AngularMomentum == nil {
		return Barycentric
	}
	return inv
}

// CombineCOM returns a pseudo-particle at the centre of mass of a and b
// carrying their total mass.
func CombineCOM(a, b dynamo.Particle) dynamo.Particle {
	m := a.Mass + b.Mass
	if m == 0 {
		return dynamo.Particle{}
	}
	return dynamo.Particle{
		Pos:  r3.Scale(1/m, r3.Add(r3.Scale(a.Mass, a.Pos), r3.Scale(b.Mass, b.Pos))),
		Vel:  r3.Scale(1/m, r3.Add(r3.Scale(a.Mass, a.Vel), r3.Scale(b.Mass, b.Vel))),
		Mass: m,
	}
}
