// Package orbit converts between orbital elements, either Keplerian or the
// non-singular Pal coordinates, and heliocentric particle state.
package orbit

import (
	"fmt"
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

const twoPi = 2 * math.Pi

// below this eccentricity or node length the corresponding angle is undefined
const degenerate = 1e-10

// Elements are the osculating elements of a bound orbit about a primary.
// Angles are in radians.
type Elements struct {
	A     float64 // semi-major axis
	E     float64 // eccentricity, 0 <= E < 1
	Inc   float64 // inclination
	Omega float64 // longitude of ascending node
	Peri  float64 // argument of pericentre
	F     float64 // true anomaly
}

func (el Elements) MeanMotion(mu float64) float64 {
	return math.Sqrt(mu / (el.A * el.A * el.A))
}

func (el Elements) Period(mu float64) float64 {
	return twoPi / el.MeanMotion(mu)
}

func (el Elements) Pericentre() float64 { return el.A * (1 - el.E) }
func (el Elements) Apocentre() float64  { return el.A * (1 + el.E) }

func (el Elements) validate() error {
	if !(el.A > 0) || math.IsInf(el.A, 0) {
		return fmt.Errorf("%w: semi-major axis %g", dynamo.ErrParameterBounds, el.A)
	}
	if !(el.E >= 0 && el.E < 1) {
		return fmt.Errorf("%w: eccentricity %g not in [0, 1)", dynamo.ErrParameterBounds, el.E)
	}
	for _, v := range []float64{el.Inc, el.Omega, el.Peri, el.F} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite angle in %+v", dynamo.ErrParameterBounds, el)
		}
	}
	return nil
}

// ToParticle places a body of mass m on the orbit el about primary.
func ToParticle(g float64, primary dynamo.Particle, m float64, el Elements) (dynamo.Particle, error) {
	if err := el.validate(); err != nil {
		return dynamo.Particle{}, err
	}
	mu := g * (primary.Mass + m)
	if !(mu > 0) {
		return dynamo.Particle{}, fmt.Errorf("%w: G*(M+m) = %g", dynamo.ErrParameterBounds, mu)
	}

	p := el.A * (1 - el.E*el.E)
	sf, cf := math.Sincos(el.F)
	r := p / (1 + el.E*cf)
	vs := math.Sqrt(mu / p)

	// perifocal frame
	x, y := r*cf, r*sf
	vx, vy := -vs*sf, vs*(el.E+cf)

	rot := rotation(el.Inc, el.Omega, el.Peri)
	return dynamo.Particle{
		Pos:  r3.Add(primary.Pos, rot.apply(x, y)),
		Vel:  r3.Add(primary.Vel, rot.apply(vx, vy)),
		Mass: m,
	}, nil
}

// frame holds the first two columns of R3(Omega) R1(inc) R3(peri).
type frame struct {
	p, q r3.Vec
}

func rotation(inc, omega, peri float64) frame {
	so, co := math.Sincos(omega)
	si, ci := math.Sincos(inc)
	sw, cw := math.Sincos(peri)
	return frame{
		p: r3.Vec{X: co*cw - so*sw*ci, Y: so*cw + co*sw*ci, Z: sw * si},
		q: r3.Vec{X: -co*sw - so*cw*ci, Y: -so*sw + co*cw*ci, Z: cw * si},
	}
}

func (f frame) apply(x, y float64) r3.Vec {
	return r3.Add(r3.Scale(x, f.p), r3.Scale(y, f.q))
}

// FromParticle computes the elements of p relative to primary. Unbound,
// radial and coincident states have no elements and return ErrInvalidState.
func FromParticle(g float64, p, primary dynamo.Particle) (Elements, error) {
	mu := g * (primary.Mass + p.Mass)
	pos := r3.Sub(p.Pos, primary.Pos)
	vel := r3.Sub(p.Vel, primary.Vel)

	r := r3.Norm(pos)
	v2 := r3.Norm2(vel)
	if !(mu > 0) || !(r > 0) || math.IsNaN(v2) || math.IsInf(v2, 0) {
		return Elements{}, fmt.Errorf("%w: r=%g mu=%g", dynamo.ErrInvalidState, r, mu)
	}

	h := r3.Cross(pos, vel)
	hn := r3.Norm(h)
	if hn <= degenerate*r*math.Sqrt(v2) {
		return Elements{}, fmt.Errorf("%w: radial orbit", dynamo.ErrInvalidState)
	}

	energy := v2/2 - mu/r
	if energy >= 0 {
		return Elements{}, fmt.Errorf("%w: unbound orbit (energy %g)", dynamo.ErrInvalidState, energy)
	}

	rv := r3.Dot(pos, vel)
	ev := r3.Scale(1/mu, r3.Sub(r3.Scale(v2-mu/r, pos), r3.Scale(rv, vel)))
	e := r3.Norm(ev)

	el := Elements{
		A:   -mu / (2 * energy),
		E:   e,
		Inc: math.Acos(clamp(h.Z / hn)),
	}

	node := r3.Vec{X: -h.Y, Y: h.X}
	nn := r3.Norm(node)
	equatorial := nn <= degenerate*hn
	circular := e <= degenerate
	if circular {
		el.E = 0
	}

	if !equatorial {
		el.Omega = wrap(math.Atan2(node.Y, node.X))
	}

	switch {
	case !circular && !equatorial:
		el.Peri = angleBetween(node, ev, ev.Z < 0)
	case !circular:
		// longitude of pericentre measured in the direction of motion
		el.Peri = wrap(math.Atan2(ev.Y, ev.X))
		if h.Z < 0 {
			el.Peri = wrap(-el.Peri)
		}
	}

	switch {
	case !circular:
		el.F = angleBetween(ev, pos, rv < 0)
	case !equatorial:
		// argument of latitude
		el.F = angleBetween(node, pos, pos.Z < 0)
	default:
		el.F = wrap(math.Atan2(pos.Y, pos.X))
		if h.Z < 0 {
			el.F = wrap(-el.F)
		}
	}

	return el, nil
}

// angleBetween returns the angle from a to b in [0, 2pi), taking the
// reflex angle when past is set.
func angleBetween(a, b r3.Vec, past bool) float64 {
	ang := math.Acos(clamp(r3.Dot(a, b) / (r3.Norm(a) * r3.Norm(b))))
	if past {
		ang = twoPi - ang
	}
	return ang
}

func clamp(c float64) float64 {
	return math.Max(-1, math.Min(1, c))
}

func wrap(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}
