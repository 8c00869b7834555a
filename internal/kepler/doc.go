// Package kepler propagates two-body orbits analytically with universal
// variables.
//
//   - [Solve]: bracketed Newton iteration for the universal anomaly x and
//     the Stumpff-like functions G1, G2, G3
//   - [Drift]: Lagrange f/g propagation of a relative position and velocity
//   - [Regime]: orbit type selected by the sign of beta
//
// Every regime is handled: trigonometric basis for bound orbits, hyperbolic
// basis for unbound ones and the Stumpff power series near beta*x^2 = 0.
// A solver that cannot produce an answer returns an error wrapping
// [dynamo.ErrConvergence], [dynamo.ErrUnsupportedRegime] or
// [dynamo.ErrInvalidState]; it never returns placeholder values.
//
// # Example
//
//	res, err := kepler.Drift(pos, vel, G*(m0+m1), dt, kepler.Options{})
//	if err != nil {
//	    // flag the particle, do not use res
//	}
package kepler
