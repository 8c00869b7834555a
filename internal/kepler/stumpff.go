package kepler

import "math"

// Regime is the conic type of an orbit.
type Regime int

const (
	Elliptic Regime = iota
	Parabolic
	Hyperbolic
)

func (r Regime) String() string {
	switch r {
	case Elliptic:
		return "elliptic"
	case Parabolic:
		return "parabolic"
	case Hyperbolic:
		return "hyperbolic"
	}
	return "unknown"
}

// RegimeSet is a bit set of admitted regimes.
type RegimeSet uint8

const (
	AllowElliptic RegimeSet = 1 << iota
	AllowParabolic
	AllowHyperbolic

	AllRegimes   = AllowElliptic | AllowParabolic | AllowHyperbolic
	EllipticOnly = AllowElliptic
)

func (s RegimeSet) Allows(r Regime) bool {
	return s&(1<<uint(r)) != 0
}

// Classify picks the regime from beta. kc/r0 sets the scale below which
// |beta| counts as parabolic.
func Classify(beta, r0, kc, parabolicTol float64) Regime {
	if beta == 0 || math.Abs(beta) <= parabolicTol*math.Abs(kc)/r0 {
		return Parabolic
	}
	if beta > 0 {
		return Elliptic
	}
	return Hyperbolic
}

const (
	// below this |beta*x^2| the closed forms lose digits in G3
	seriesThreshold = 0.25
	// parabolic orbits stay on the series longer; terms still peak near 1
	parabolicSeriesLimit = 4.0
	maxSeriesTerms       = 30
)

// Basis evaluates G1, G2, G3 at universal anomaly x.
func (r Regime) Basis(beta, x float64) (g1, g2, g3 float64) {
	z := beta * x * x
	limit := seriesThreshold
	if r == Parabolic {
		limit = parabolicSeriesLimit
	}
	if beta == 0 || math.Abs(z) < limit {
		c1, c2, c3 := stumpffSeries(z)
		return x * c1, x * x * c2, x * x * x * c3
	}

	// A parabolic orbit that has travelled far enough for the series to be
	// out of range falls through to the closed form for the sign of beta.
	if beta > 0 {
		g1, g2 = trigBasis(beta, x)
	} else {
		g1, g2 = hyperbolicBasis(beta, x)
	}
	g3 = (x - g1) / beta
	return g1, g2, g3
}

func trigBasis(beta, x float64) (g1, g2 float64) {
	sb := math.Sqrt(beta)
	a := 0.5 * sb * x
	s := math.Sin(a)
	return math.Sin(2*a) / sb, 2 * s * s / beta
}

func hyperbolicBasis(beta, x float64) (g1, g2 float64) {
	sb := math.Sqrt(-beta)
	a := 0.5 * sb * x
	s := math.Sinh(a)
	return math.Sinh(2*a) / sb, -2 * s * s / beta
}

// stumpffSeries sums c_k(z) = sum_n (-z)^n / (2n+k)! for k = 1, 2, 3.
func stumpffSeries(z float64) (c1, c2, c3 float64) {
	t1, t2, t3 := 1.0, 0.5, 1.0/6.0
	c1, c2, c3 = t1, t2, t3
	for n := 1; n < maxSeriesTerms; n++ {
		m := float64(2 * n)
		t1 *= -z / (m * (m + 1))
		t2 *= -z / ((m + 1) * (m + 2))
		t3 *= -z / ((m + 2) * (m + 3))
		c1 += t1
		c2 += t2
		c3 += t3
		if math.Abs(t1) <= 1e-17*math.Abs(c1) &&
			math.Abs(t2) <= 1e-17*math.Abs(c2) &&
			math.Abs(t3) <= 1e-17*math.Abs(c3) {
			break
		}
	}
	return c1, c2, c3
}
