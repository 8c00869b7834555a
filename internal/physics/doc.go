// Package physics provides the forces and conserved quantities of a
// gravitating particle system.
//
// Forces implement [dynamo.Force] and add into a caller-owned acceleration
// slice, so several can be stacked:
//
//   - [Gravity]: direct-summation Newtonian gravity, optionally softened
//   - [Interactions]: gravity without the reference body, for the kick of a
//     drift-kick-drift step
//   - [Indirect]: the fictitious force of a frame pinned to the reference
//     body; together with [Interactions] it completes the kick
//   - [Migration]: semi-major axis migration and eccentricity damping
//
// Drift is monitored through [Invariants]. [Barycentric] holds for the
// full problem in any frame; [TwoBody] holds for independent Kepler orbits:
//
//	e0 := physics.Barycentric.Energy(clock.G, ps, 0)
//	// ... integrate ...
//	drift := math.Abs((physics.Barycentric.Energy(clock.G, ps, 0) - e0) / e0)
package physics
