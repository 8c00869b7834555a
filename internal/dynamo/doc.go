// Package dynamo provides the core types shared by every part of keplersim.
//
// The package defines the state-vector interface the integrators consume:
//
//   - [Particle]: position, velocity, acceleration, mass and radius
//   - [ParticleStore]: indexable, mutable collection with a reference body
//   - [Clock]: simulation time, step size and gravitational constant
//   - [Integrator]: the part1 / synchronize / part2 / reset step contract
//   - [Outcome]: per-particle result of a part1 phase
//
// # Example
//
//	ps := dynamo.NewParticles(star, planet)
//	clock := dynamo.NewClock(1.0, 0.01)
//	outcomes := integ.Part1(clock, ps)
//	integ.Synchronize(clock, ps)
//	integ.Part2(clock)
//
// # Thread Safety
//
// A [Particles] store may be written concurrently only at distinct indices.
// [ParallelFor] relies on this for the per-particle drift loop; the reference
// body must not be written while such a loop runs.
package dynamo
