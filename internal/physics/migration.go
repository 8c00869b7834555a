package physics

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Migration applies semi-major axis migration and eccentricity damping as
// velocity-dependent forces, with per-particle timescales. A zero timescale
// disables that term. Each body is damped relative to the centre of mass of
// the reference body and every body before it.
type Migration struct {
	TauA []float64
	TauE []float64
}

func NewMigration(n int) *Migration {
	return &Migration{TauA: make([]float64, n), TauE: make([]float64, n)}
}

func (m *Migration) SetTauA(i int, tau float64) { m.TauA = set(m.TauA, i, tau) }
func (m *Migration) SetTauE(i int, tau float64) { m.TauE = set(m.TauE, i, tau) }

func set(s []float64, i int, v float64) []float64 {
	for len(s) <= i {
		s = append(s, 0)
	}
	s[i] = v
	return s
}

func at(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func (m *Migration) Accelerations(g float64, ps dynamo.ParticleStore, acc []r3.Vec) {
	ref := ps.Reference()
	com := ps.At(ref)

	for i := 0; i < ps.Len(); i++ {
		if i == ref {
			continue
		}
		p := ps.At(i)
		tauA, tauE := at(m.TauA, i), at(m.TauE, i)

		if tauA != 0 || tauE != 0 {
			dv := r3.Sub(p.Vel, com.Vel)

			if tauA != 0 {
				acc[i] = r3.Sub(acc[i], r3.Scale(1/(2*tauA), dv))
			}
			if tauE != 0 {
				acc[i] = r3.Add(acc[i], eccentricityDamping(g*(com.Mass+p.Mass), r3.Sub(p.Pos, com.Pos), dv, tauE))
			}
		}

		com = CombineCOM(com, p)
	}
}

func eccentricityDamping(mu float64, d, dv r3.Vec, tau float64) r3.Vec {
	h := r3.Cross(d, dv)
	hn := r3.Norm(h)
	r := r3.Norm(d)
	v2 := r3.Norm2(dv)
	if r == 0 || hn == 0 {
		return r3.Vec{}
	}

	vr := r3.Dot(d, dv) / r
	ev := r3.Scale(1/mu, r3.Sub(r3.Scale(v2-mu/r, d), r3.Scale(r*vr, dv)))
	e2 := r3.Norm2(ev)
	a := -mu / (v2 - 2*mu/r)

	pre1 := 1 / (1 - e2) / tau / 1.5
	pre2 := 1 / (r * hn) * math.Sqrt(mu/a/(1-e2)) / tau / 1.5

	return r3.Add(r3.Scale(-pre1, dv), r3.Scale(pre2, r3.Cross(h, d)))
}
