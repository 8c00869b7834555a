package integrators

import (
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/kepler"
)

// defaultMinChunk keeps small systems on a single goroutine.
const defaultMinChunk = 64

// KeplerDrift moves every body along its exact two-body orbit about the
// reference body. The reference body itself never moves.
type KeplerDrift struct {
	Opts     kepler.Options
	MinChunk int
}

func NewKeplerDrift(opts kepler.Options) *KeplerDrift {
	return &KeplerDrift{Opts: opts, MinChunk: defaultMinChunk}
}

func (k *KeplerDrift) Name() string { return "kepler" }

func (k *KeplerDrift) Part1(clock *dynamo.Clock, ps dynamo.ParticleStore) []dynamo.Outcome {
	return driftAll(clock, ps, clock.Dt, k.Opts, k.MinChunk, nil)
}

func (k *KeplerDrift) Synchronize(*dynamo.Clock, dynamo.ParticleStore) {}

func (k *KeplerDrift) Part2(clock *dynamo.Clock) { clock.Advance() }

func (k *KeplerDrift) Reset() {}

// driftAll drifts every non-reference particle by h and reports one outcome
// per attempted particle, in index order. Particles for which skip reports
// true are neither attempted nor reported.
func driftAll(clock *dynamo.Clock, ps dynamo.ParticleStore, h float64, opts kepler.Options, minChunk int, skip func(i int) bool) []dynamo.Outcome {
	ref := ps.Reference()
	idx := make([]int, 0, ps.Len())
	for i := 0; i < ps.Len(); i++ {
		if i != ref && (skip == nil || !skip(i)) {
			idx = append(idx, i)
		}
	}

	central := ps.At(ref)
	outcomes := make([]dynamo.Outcome, len(idx))

	dynamo.ParallelFor(len(idx), minChunk, func(start, end int) {
		for j := start; j < end; j++ {
			i := idx[j]
			o := dynamo.Outcome{Index: i, Step: clock.Step, Time: clock.T}

			q, err := kepler.DriftParticle(ps.At(i), central, clock.G, h, opts)
			if err != nil {
				o.Err = &dynamo.ParticleError{Index: i, Step: clock.Step, Time: clock.T, Wrapped: err}
			} else {
				ps.Set(i, q)
			}
			outcomes[j] = o
		}
	})

	return outcomes
}
