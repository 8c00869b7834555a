package kepler

import (
	"fmt"
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Lagrange holds the f and g coefficients of one drift.
type Lagrange struct {
	F, G, FDot, GDot float64
}

type DriftResult struct {
	Pos, Vel r3.Vec
	Lagrange Lagrange
	Solution Solution
	// Beta is 2kc/r0 - v^2 before the step; kc/Beta is the semi-major axis.
	Beta float64
}

// Drift advances the relative state (pos, vel) of a body about a centre of
// gravitational parameter kc by time h.
func Drift(pos, vel r3.Vec, kc, h float64, opts Options) (DriftResult, error) {
	if !(kc > 0) || math.IsInf(kc, 0) {
		return DriftResult{}, fmt.Errorf("%w: kc=%g", dynamo.ErrInvalidState, kc)
	}

	r0 := r3.Norm(pos)
	v2 := r3.Norm2(vel)
	eta := r3.Dot(pos, vel)
	beta := 2*kc/r0 - v2
	zeta := kc - beta*r0

	sol, err := Solve(r0, beta, eta, zeta, h, opts)
	if err != nil {
		return DriftResult{}, err
	}

	r := r0 + eta*sol.G1 + zeta*sol.G2
	if !(r > 0) {
		return DriftResult{}, fmt.Errorf("%w: new radius %g after drift of %g", dynamo.ErrInvalidState, r, h)
	}

	lc := Lagrange{
		F:    1 - kc*sol.G2/r0,
		G:    eta*sol.G2 + r0*sol.G1,
		FDot: -kc * sol.G1 / (r0 * r),
		GDot: 1 - kc*sol.G2/r,
	}

	// pos and vel are the pre-step state; the velocity row must not see the
	// updated position.
	return DriftResult{
		Pos:      r3.Add(r3.Scale(lc.F, pos), r3.Scale(lc.G, vel)),
		Vel:      r3.Add(r3.Scale(lc.FDot, pos), r3.Scale(lc.GDot, vel)),
		Lagrange: lc,
		Solution: sol,
		Beta:     beta,
	}, nil
}

// DriftParticle drifts p about ref, with kc = g*(ref.Mass+p.Mass). ref is
// only read.
func DriftParticle(p, ref dynamo.Particle, g, h float64, opts Options) (dynamo.Particle, error) {
	kc := g * (ref.Mass + p.Mass)
	res, err := Drift(r3.Sub(p.Pos, ref.Pos), r3.Sub(p.Vel, ref.Vel), kc, h, opts)
	if err != nil {
		return p, err
	}
	p.Pos = r3.Add(ref.Pos, res.Pos)
	p.Vel = r3.Add(ref.Vel, res.Vel)
	return p, nil
}
