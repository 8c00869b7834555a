package integrators

import (
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/kepler"
	"github.com/san-kum/keplersim/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// DKD splits the step into a Kepler drift of dt/2, a kick over dt, and a
// second drift of dt/2. Positions stay relative to the reference body, so
// the kick carries the body-body interactions, the indirect term of the
// reference-following frame and any extra forces. A particle that fails
// either drift ends the step in its pre-step state.
type DKD struct {
	Opts      kepler.Options
	Softening float64
	Extra     []dynamo.Force
	MinChunk  int

	acc []r3.Vec
}

func NewDKD(opts kepler.Options, extra ...dynamo.Force) *DKD {
	return &DKD{Opts: opts, Extra: extra, MinChunk: defaultMinChunk}
}

func (d *DKD) Name() string { return "dkd" }

func (d *DKD) Part1(clock *dynamo.Clock, ps dynamo.ParticleStore) []dynamo.Outcome {
	half := 0.5 * clock.Dt
	before := dynamo.Snapshot(ps)

	first := driftAll(clock, ps, half, d.Opts, d.MinChunk, nil)
	failed := make(map[int]bool)
	for _, o := range first {
		if o.Err != nil {
			failed[o.Index] = true
		}
	}
	skip := func(i int) bool { return failed[i] }

	d.kick(clock, ps, skip)

	second := driftAll(clock, ps, half, d.Opts, d.MinChunk, skip)

	// first and second are both in index order; second lacks the failures.
	outcomes := make([]dynamo.Outcome, 0, len(first))
	j := 0
	for _, o := range first {
		if o.Err == nil {
			o = second[j]
			j++
			if o.Err != nil {
				ps.Set(o.Index, before[o.Index])
			}
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (d *DKD) kick(clock *dynamo.Clock, ps dynamo.ParticleStore, skip func(int) bool) {
	n := ps.Len()
	if len(d.acc) != n {
		d.acc = make([]r3.Vec, n)
	}
	for i := range d.acc {
		d.acc[i] = r3.Vec{}
	}

	physics.Interactions(d.Softening).Accelerations(clock.G, ps, d.acc)
	physics.Indirect{}.Accelerations(clock.G, ps, d.acc)
	for _, f := range d.Extra {
		f.Accelerations(clock.G, ps, d.acc)
	}

	ref := ps.Reference()
	for i := 0; i < n; i++ {
		if i == ref || skip(i) {
			continue
		}
		p := ps.At(i)
		p.Acc = d.acc[i]
		p.Vel = r3.Add(p.Vel, r3.Scale(clock.Dt, d.acc[i]))
		ps.Set(i, p)
	}
}

func (d *DKD) Synchronize(*dynamo.Clock, dynamo.ParticleStore) {}

func (d *DKD) Part2(clock *dynamo.Clock) { clock.Advance() }

func (d *DKD) Reset() { d.acc = nil }
