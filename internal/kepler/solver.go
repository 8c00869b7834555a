package kepler

import (
	"fmt"
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
)

const (
	DefaultTolerance          = 1e-9
	DefaultMaxIterations      = 1000
	DefaultParabolicTolerance = 1e-10
)

type Options struct {
	// Tolerance is the relative change in x that ends the iteration.
	Tolerance     float64
	MaxIterations int
	// ParabolicTolerance bounds |beta|*r0/kc for the parabolic regime.
	ParabolicTolerance float64
	// Regimes admitted by the solver; zero admits all of them.
	Regimes RegimeSet
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.ParabolicTolerance <= 0 {
		o.ParabolicTolerance = DefaultParabolicTolerance
	}
	if o.Regimes == 0 {
		o.Regimes = AllRegimes
	}
	return o
}

// Solution of the universal Kepler equation for one step.
type Solution struct {
	X          float64
	G1, G2, G3 float64
	Iterations int
	Regime     Regime
}

// TimeOfFlight evaluates r0*X + eta*G2 + zeta*G3, the step the solution
// corresponds to.
func (s Solution) TimeOfFlight(r0, eta, zeta float64) float64 {
	return r0*s.X + eta*s.G2 + zeta*s.G3
}

// Solve finds the universal anomaly that advances an orbit with separation
// r0, radial term eta = r.v, energy parameter beta and zeta = kc - beta*r0
// by time h.
//
// The time of flight is monotone in x, so every iterate is kept inside a
// bracket around the root. A Newton step that leaves the bracket, or does
// not at least halve the previous step, is replaced by bisection.
func Solve(r0, beta, eta, zeta, h float64, opts Options) (Solution, error) {
	opts = opts.withDefaults()

	if !(r0 > 0) || !finite(r0, beta, eta, zeta, h) {
		return Solution{}, fmt.Errorf("%w: r0=%g beta=%g eta=%g zeta=%g h=%g",
			dynamo.ErrInvalidState, r0, beta, eta, zeta, h)
	}

	kc := zeta + beta*r0
	regime := Classify(beta, r0, kc, opts.ParabolicTolerance)
	if !opts.Regimes.Allows(regime) {
		return Solution{}, fmt.Errorf("%w: %s orbit (beta=%g)", dynamo.ErrUnsupportedRegime, regime, beta)
	}

	if h == 0 {
		return Solution{Regime: regime}, nil
	}

	// Bound orbits repeat: iterate on the remainder of whole periods and
	// add the matching anomaly back afterwards. One revolution spans
	// |x| <= revolution.
	hr, shift, revolution := h, 0.0, 0.0
	if regime == Elliptic && kc > 0 {
		sb := math.Sqrt(beta)
		period := 2 * math.Pi * kc / (beta * sb)
		revolution = 2 * math.Pi / sb
		if math.Abs(h) > period {
			k := math.Trunc(h / period)
			hr = h - k*period
			shift = k * revolution
		}
	}

	accept := func(x float64, iterations int) Solution {
		g1, g2, g3 := regime.Basis(beta, x)
		X := x
		if shift != 0 {
			X += shift
			g3 = (X - g1) / beta
		}
		return Solution{X: X, G1: g1, G2: g2, G3: g3, Iterations: iterations, Regime: regime}
	}

	if hr == 0 {
		return accept(0, 0), nil
	}

	// residual is the time of flight to x minus hr; ok is false once the
	// closed forms overflow.
	residual := func(x float64) (f float64, ok bool) {
		_, g2, g3 := regime.Basis(beta, x)
		f = r0*x + eta*g2 + zeta*g3 - hr
		return f, finite(f)
	}

	x := (hr / r0) * (1 - 0.5*eta*hr/(r0*r0))
	if x*hr <= 0 {
		x = hr / r0
	}
	if regime == Hyperbolic {
		if xl := hyperbolicGuess(-beta, kc, hr); math.Abs(xl) < math.Abs(x) {
			x = xl
		}
	}

	var lo, hi float64
	switch {
	case revolution > 0 && hr > 0:
		hi = revolution
	case revolution > 0:
		lo = -revolution
	default:
		var ok bool
		if lo, hi, ok = expandBracket(residual, x, hr); !ok {
			return Solution{}, fmt.Errorf("%w: no bracket for the step (beta=%g, h=%g)",
				dynamo.ErrConvergence, beta, h)
		}
	}
	if x < lo || x > hi {
		x = 0.5 * (lo + hi)
	}

	last := hi - lo
	for i := 1; i <= opts.MaxIterations; i++ {
		g1, g2, g3 := regime.Basis(beta, x)
		g := eta*g1 + zeta*g2
		f := r0*x + eta*g2 + zeta*g3 - hr

		if !finite(f, g) {
			// overflowed closed forms: the root is nearer zero
			if x > 0 {
				hi = x
			} else {
				lo = x
			}
			x = 0.5 * (lo + hi)
			continue
		}
		if f == 0 {
			return accept(x, i), nil
		}
		if f < 0 {
			lo = x
		} else {
			hi = x
		}

		// same as (x*g - eta*G2 - zeta*G3 + h)/(r0 + g), without overflowing x*g
		xNew := x - f/(r0+g)
		if finite(xNew) && math.Abs(xNew-x) <= opts.Tolerance*math.Abs(xNew) {
			return accept(xNew, i), nil
		}
		if !(xNew > lo && xNew < hi) || math.Abs(2*f) > math.Abs(last*(r0+g)) {
			xNew = 0.5 * (lo + hi)
		}
		if !finite(xNew) {
			return Solution{}, fmt.Errorf("%w: non-finite iterate after %d iterations (beta=%g, h=%g)",
				dynamo.ErrConvergence, i, beta, h)
		}

		last = math.Abs(xNew - x)
		if last <= opts.Tolerance*math.Abs(xNew) || hi-lo <= opts.Tolerance*math.Max(math.Abs(lo), math.Abs(hi)) {
			return accept(xNew, i), nil
		}
		x = xNew
	}

	return Solution{}, fmt.Errorf("%w: %d iterations exhausted (beta=%g, h=%g)",
		dynamo.ErrConvergence, opts.MaxIterations, beta, h)
}

// hyperbolicGuess inverts the exponential growth of the time of flight,
// t ~ kc*exp(s|x|)/(2s^3) with s = sqrt(-beta), so that the first closed
// form evaluated cannot overflow. It returns +Inf when no such guess exists.
func hyperbolicGuess(negBeta, kc, h float64) float64 {
	s := math.Sqrt(negBeta)
	xl := (math.Log(2*math.Abs(h)/kc) + 3*math.Log(s)) / s
	if !(xl > 0) || math.IsInf(xl, 0) {
		return math.Inf(1)
	}
	return math.Copysign(xl, h)
}

// maxExpansions bounds the doubling search for an unbound orbit.
const maxExpansions = 128

// expandBracket doubles x, which has the sign of hr, until the residual
// changes sign or overflows. It returns the bracket ordered lo < hi.
func expandBracket(residual func(float64) (float64, bool), x, hr float64) (lo, hi float64, ok bool) {
	inner := 0.0
	for k := 0; k < maxExpansions; k++ {
		f, fin := residual(x)
		if !fin || f == 0 || (f > 0) == (hr > 0) {
			if hr > 0 {
				return inner, x, true
			}
			return x, inner, true
		}
		inner = x
		x *= 2
	}
	return 0, 0, false
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
