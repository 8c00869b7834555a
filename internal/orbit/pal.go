package orbit

import (
	"fmt"
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pal holds the non-singular elements of Pal (2009). They stay smooth
// through zero eccentricity and zero inclination, where Elements loses
// its angles.
type Pal struct {
	A      float64 // semi-major axis
	Lambda float64 // mean longitude
	K      float64 // e cos(varpi)
	H      float64 // e sin(varpi)
	Ix     float64 // 2 sin(i/2) cos(Omega)
	Iy     float64 // 2 sin(i/2) sin(Omega)
}

// PalComponent selects the coordinate VaryPal differentiates against.
type PalComponent int

const (
	PalA PalComponent = iota
	PalLambda
	PalK
	PalH
	PalIx
	PalIy
)

var palNames = [...]string{"a", "lambda", "k", "h", "ix", "iy"}

func (c PalComponent) String() string {
	if c < 0 || int(c) >= len(palNames) {
		return fmt.Sprintf("PalComponent(%d)", int(c))
	}
	return palNames[c]
}

func (pl Pal) validate() error {
	for _, v := range [...]float64{pl.A, pl.Lambda, pl.K, pl.H, pl.Ix, pl.Iy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate in %+v", dynamo.ErrParameterBounds, pl)
		}
	}
	if !(pl.A > 0) {
		return fmt.Errorf("%w: semi-major axis %g", dynamo.ErrParameterBounds, pl.A)
	}
	if pl.K*pl.K+pl.H*pl.H >= 1 {
		return fmt.Errorf("%w: eccentricity %g not below 1", dynamo.ErrParameterBounds, math.Hypot(pl.K, pl.H))
	}
	if pl.Ix*pl.Ix+pl.Iy*pl.Iy >= 4 {
		return fmt.Errorf("%w: ix=%g iy=%g describe a retrograde equatorial orbit", dynamo.ErrParameterBounds, pl.Ix, pl.Iy)
	}
	return nil
}

// tilt rotates the reference plane onto the orbital plane about the line
// of nodes.
type tilt struct {
	ix, iy, iz float64
}

func newTilt(ix, iy float64) tilt {
	return tilt{ix: ix, iy: iy, iz: math.Sqrt(4 - ix*ix - iy*iy)}
}

func (t tilt) apply(xi, eta float64) r3.Vec {
	w := eta*t.ix - xi*t.iy
	return r3.Vec{X: xi + t.iy*w/2, Y: eta - t.ix*w/2, Z: t.iz * w / 2}
}

// dIx and dIy differentiate apply with the in-plane point held fixed.
func (t tilt) dIx(xi, eta float64) r3.Vec {
	w := eta*t.ix - xi*t.iy
	return r3.Vec{
		X: t.iy * eta / 2,
		Y: -(w + t.ix*eta) / 2,
		Z: (t.iz*eta - t.ix/t.iz*w) / 2,
	}
}

func (t tilt) dIy(xi, eta float64) r3.Vec {
	w := eta*t.ix - xi*t.iy
	return r3.Vec{
		X: (w - t.iy*xi) / 2,
		Y: t.ix * xi / 2,
		Z: -(t.iy/t.iz*w + t.iz*xi) / 2,
	}
}

// ToPal computes the Pal coordinates of p relative to primary. Unbound,
// radial and retrograde equatorial states return ErrInvalidState.
func ToPal(g float64, p, primary dynamo.Particle) (Pal, error) {
	mu := g * (primary.Mass + p.Mass)
	pos := r3.Sub(p.Pos, primary.Pos)
	vel := r3.Sub(p.Vel, primary.Vel)

	r := r3.Norm(pos)
	v2 := r3.Norm2(vel)
	if !(mu > 0) || !(r > 0) || math.IsNaN(v2) || math.IsInf(v2, 0) {
		return Pal{}, fmt.Errorf("%w: r=%g mu=%g", dynamo.ErrInvalidState, r, mu)
	}

	l := r3.Cross(pos, vel)
	ln := r3.Norm(l)
	if ln <= degenerate*r*math.Sqrt(v2) {
		return Pal{}, fmt.Errorf("%w: radial orbit", dynamo.ErrInvalidState)
	}
	energy := v2/2 - mu/r
	if energy >= 0 {
		return Pal{}, fmt.Errorf("%w: unbound orbit (energy %g)", dynamo.ErrInvalidState, energy)
	}
	a := -mu / (2 * energy)

	n := r3.Scale(1/ln, l)
	if n.Z <= -1+degenerate {
		return Pal{}, fmt.Errorf("%w: retrograde equatorial orbit", dynamo.ErrInvalidState)
	}
	f := math.Sqrt(2 / (1 + n.Z))
	t := newTilt(-n.Y*f, n.X*f)
	px, qx := t.apply(1, 0), t.apply(0, 1)

	rv := r3.Dot(pos, vel)
	ev := r3.Scale(1/mu, r3.Sub(r3.Scale(v2-mu/r, pos), r3.Scale(rv, vel)))
	k, h := r3.Dot(ev, px), r3.Dot(ev, qx)
	s := math.Sqrt(1 - k*k - h*h)
	if !(s > 0) {
		return Pal{}, fmt.Errorf("%w: eccentricity %g", dynamo.ErrInvalidState, math.Hypot(k, h))
	}
	beta := 1 / (1 + s)

	// invert the in-plane position for the eccentric longitude
	u := r3.Dot(pos, px)/a + k
	w := r3.Dot(pos, qx)/a + h
	cf := ((1-k*k*beta)*u - h*k*beta*w) / s
	sf := (-h*k*beta*u + (1-h*h*beta)*w) / s
	sf, cf = math.Sincos(math.Atan2(sf, cf))

	return Pal{
		A:      a,
		Lambda: wrap(math.Atan2(sf, cf) - k*sf + h*cf),
		K:      k,
		H:      h,
		Ix:     t.ix,
		Iy:     t.iy,
	}, nil
}

// FromPal places a body of mass m on the orbit pl about primary.
func FromPal(g float64, primary dynamo.Particle, m float64, pl Pal) (dynamo.Particle, error) {
	o, t, err := palOrbit(g, primary, m, pl)
	if err != nil {
		return dynamo.Particle{}, err
	}
	xi, eta, vxi, veta := o.state()
	return dynamo.Particle{
		Pos:  r3.Add(primary.Pos, t.apply(xi, eta)),
		Vel:  r3.Add(primary.Vel, t.apply(vxi, veta)),
		Mass: m,
	}, nil
}

// VaryPal returns the first derivative of FromPal's position and velocity
// with respect to one coordinate. The result carries no mass.
func VaryPal(g float64, primary dynamo.Particle, m float64, pl Pal, wrt PalComponent) (dynamo.Particle, error) {
	o, t, err := palOrbit(g, primary, m, pl)
	if err != nil {
		return dynamo.Particle{}, err
	}
	xi, eta, vxi, veta := o.state()

	switch wrt {
	case PalA:
		return dynamo.Particle{
			Pos: t.apply(xi/o.a, eta/o.a),
			Vel: t.apply(-vxi/(2*o.a), -veta/(2*o.a)),
		}, nil
	case PalIx:
		return dynamo.Particle{Pos: t.dIx(xi, eta), Vel: t.dIx(vxi, veta)}, nil
	case PalIy:
		return dynamo.Particle{Pos: t.dIy(xi, eta), Vel: t.dIy(vxi, veta)}, nil
	}

	var dF, dk, dh float64
	switch wrt {
	case PalLambda:
		dF = 1 / o.d
	case PalK:
		dF, dk = o.sf/o.d, 1
	case PalH:
		dF, dh = -o.cf/o.d, 1
	default:
		return dynamo.Particle{}, fmt.Errorf("%w: unknown Pal component %v", dynamo.ErrParameterBounds, wrt)
	}
	dxi, deta, dvxi, dveta := o.vary(dF, dk, dh)
	return dynamo.Particle{Pos: t.apply(dxi, deta), Vel: t.apply(dvxi, dveta)}, nil
}

func palOrbit(g float64, primary dynamo.Particle, m float64, pl Pal) (planar, tilt, error) {
	if err := pl.validate(); err != nil {
		return planar{}, tilt{}, err
	}
	mu := g * (primary.Mass + m)
	if !(mu > 0) {
		return planar{}, tilt{}, fmt.Errorf("%w: G*(M+m) = %g", dynamo.ErrParameterBounds, mu)
	}
	o, err := newPlanar(mu, pl)
	if err != nil {
		return planar{}, tilt{}, err
	}
	return o, newTilt(pl.Ix, pl.Iy), nil
}

// planar is a Pal orbit within its own plane, at eccentric longitude F.
type planar struct {
	a, k, h float64
	v       float64 // sqrt(mu/a)
	s, beta float64
	cf, sf  float64
	d       float64 // 1 - k cos F - h sin F
}

// maxKeplerIterations caps Newton on Kepler's equation. Starting from pi
// the iteration converges for every e < 1.
const maxKeplerIterations = 64

func newPlanar(mu float64, pl Pal) (planar, error) {
	e := math.Hypot(pl.K, pl.H)
	varpi := math.Atan2(pl.H, pl.K)
	mean := wrap(pl.Lambda - varpi)

	ecc := math.Pi
	converged := false
	for i := 0; i < maxKeplerIterations; i++ {
		se, ce := math.Sincos(ecc)
		step := (ecc - e*se - mean) / (1 - e*ce)
		ecc -= step
		if math.Abs(step) <= 1e-14 {
			converged = true
			break
		}
	}
	if !converged {
		return planar{}, fmt.Errorf("%w: kepler's equation at e=%g M=%g", dynamo.ErrConvergence, e, mean)
	}

	s := math.Sqrt(1 - e*e)
	o := planar{a: pl.A, k: pl.K, h: pl.H, v: math.Sqrt(mu / pl.A), s: s, beta: 1 / (1 + s)}
	o.sf, o.cf = math.Sincos(ecc + varpi)
	o.d = 1 - o.k*o.cf - o.h*o.sf
	return o, nil
}

func (o planar) coefficients() (a1, a2, c float64) {
	return 1 - o.h*o.h*o.beta, 1 - o.k*o.k*o.beta, o.h * o.k * o.beta
}

func (o planar) state() (xi, eta, vxi, veta float64) {
	a1, a2, c := o.coefficients()
	xi = o.a * (a1*o.cf + c*o.sf - o.k)
	eta = o.a * (a2*o.sf + c*o.cf - o.h)
	vxi = o.v / o.d * (c*o.cf - a1*o.sf)
	veta = o.v / o.d * (a2*o.cf - c*o.sf)
	return
}

// vary differentiates state along a change dF of the eccentric longitude
// together with explicit changes dk and dh.
func (o planar) vary(dF, dk, dh float64) (dxi, deta, dvxi, dveta float64) {
	a1, a2, c := o.coefficients()
	k, h, beta := o.k, o.h, o.beta

	dbeta := beta * beta * (k*dk + h*dh) / o.s
	da1 := -2*h*beta*dh - h*h*dbeta
	da2 := -2*k*beta*dk - k*k*dbeta
	dc := beta*(h*dk+k*dh) + h*k*dbeta

	dcf, dsf := -o.sf*dF, o.cf*dF
	dd := -dk*o.cf - k*dcf - dh*o.sf - h*dsf

	dxi = o.a * (da1*o.cf + a1*dcf + dc*o.sf + c*dsf - dk)
	deta = o.a * (da2*o.sf + a2*dsf + dc*o.cf + c*dcf - dh)

	p := c*o.cf - a1*o.sf
	q := a2*o.cf - c*o.sf
	dp := dc*o.cf + c*dcf - da1*o.sf - a1*dsf
	dq := da2*o.cf + a2*dcf - dc*o.sf - c*dsf
	dvxi = o.v * (dp/o.d - p*dd/(o.d*o.d))
	dveta = o.v * (dq/o.d - q*dd/(o.d*o.d))
	return
}
