package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type Particle struct {
	Pos    r3.Vec
	Vel    r3.Vec
	Acc    r3.Vec
	Mass   float64
	Radius float64
}

func (p Particle) IsValid() bool {
	for _, v := range [...]float64{
		p.Pos.X, p.Pos.Y, p.Pos.Z,
		p.Vel.X, p.Vel.Y, p.Vel.Z,
		p.Mass,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ParticleStore is the particle array owned by the simulation. Integrators
// read and write positions and velocities in place through it. Set on
// distinct indices may be called from several goroutines at once.
type ParticleStore interface {
	Len() int
	At(i int) Particle
	Set(i int, p Particle)
	// Reference returns the index of the central body.
	Reference() int
}

// Particles is a slice-backed ParticleStore.
type Particles struct {
	Items []Particle
	Ref   int
}

func NewParticles(ps ...Particle) *Particles {
	items := make([]Particle, len(ps))
	copy(items, ps)
	return &Particles{Items: items}
}

func (p *Particles) Len() int              { return len(p.Items) }
func (p *Particles) At(i int) Particle     { return p.Items[i] }
func (p *Particles) Set(i int, q Particle) { p.Items[i] = q }
func (p *Particles) Reference() int        { return p.Ref }

// Add appends a particle and returns its index.
func (p *Particles) Add(q Particle) int {
	p.Items = append(p.Items, q)
	return len(p.Items) - 1
}

func (p *Particles) Clone() *Particles {
	c := &Particles{Items: make([]Particle, len(p.Items)), Ref: p.Ref}
	copy(c.Items, p.Items)
	return c
}

// Snapshot copies the current contents of any store.
func Snapshot(ps ParticleStore) []Particle {
	out := make([]Particle, ps.Len())
	for i := range out {
		out[i] = ps.At(i)
	}
	return out
}

// Clock is the simulation context passed into every step. T only moves
// forward, by exactly Dt per completed step.
type Clock struct {
	T    float64
	Dt   float64
	G    float64
	Step int

	// rounding lost from T by the previous Advance
	comp float64
}

func NewClock(g, dt float64) *Clock {
	return &Clock{G: g, Dt: dt}
}

// Advance moves T on by Dt with compensated summation, so that T after n
// steps stays within a few ulps of n*Dt.
func (c *Clock) Advance() {
	y := c.Dt - c.comp
	t := c.T + y
	c.comp = (t - c.T) - y
	c.T = t
	c.Step++
}

func (c *Clock) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive and finite, got %g", ErrParameterBounds, c.Dt)
	}
	if !(c.G > 0) || math.IsInf(c.G, 0) {
		return fmt.Errorf("%w: G must be positive and finite, got %g", ErrParameterBounds, c.G)
	}
	return nil
}

// Outcome records what part1 did to one particle. Err is nil when the
// particle was advanced.
type Outcome struct {
	Index int
	Step  int
	Time  float64
	Err   error
}

func (o Outcome) Advanced() bool { return o.Err == nil }

// Failures filters the outcomes that did not advance.
func Failures(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Integrator is the per-step contract consumed by the outer simulation loop.
type Integrator interface {
	Name() string
	Part1(clock *Clock, ps ParticleStore) []Outcome
	Synchronize(clock *Clock, ps ParticleStore)
	Part2(clock *Clock)
	Reset()
}

// Force adds accelerations for every particle into acc.
type Force interface {
	Accelerations(g float64, ps ParticleStore, acc []r3.Vec)
}

type Metric interface {
	Name() string
	Observe(clock Clock, ps ParticleStore)
	Value() float64
	Reset()
}

// Observer is an output hook. It only ever sees synchronized state.
type Observer interface {
	OnStep(clock Clock, ps ParticleStore)
}
