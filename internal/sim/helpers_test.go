package sim

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

type fakeIntegrator struct {
	part1 func(clock *dynamo.Clock, ps dynamo.ParticleStore) []dynamo.Outcome
	calls []string
}

func (f *fakeIntegrator) Name() string { return "fake" }

func (f *fakeIntegrator) Part1(clock *dynamo.Clock, ps dynamo.ParticleStore) []dynamo.Outcome {
	f.calls = append(f.calls, "part1")
	if f.part1 == nil {
		return nil
	}
	return f.part1(clock, ps)
}

func (f *fakeIntegrator) Synchronize(*dynamo.Clock, dynamo.ParticleStore) {
	f.calls = append(f.calls, "synchronize")
}

func (f *fakeIntegrator) Part2(clock *dynamo.Clock) {
	f.calls = append(f.calls, "part2")
	clock.Advance()
}

func (f *fakeIntegrator) Reset() { f.calls = append(f.calls, "reset") }

// outcomesWith returns a part1 that reports one outcome per index, failing
// those in bad.
func outcomesWith(indices []int, bad map[int]error) func(*dynamo.Clock, dynamo.ParticleStore) []dynamo.Outcome {
	return func(clock *dynamo.Clock, _ dynamo.ParticleStore) []dynamo.Outcome {
		out := make([]dynamo.Outcome, len(indices))
		for j, i := range indices {
			out[j] = dynamo.Outcome{Index: i, Step: clock.Step, Time: clock.T, Err: bad[i]}
		}
		return out
	}
}

type countingObserver struct {
	calls  int
	phases []Phase
	seq    *Sequence
}

func (o *countingObserver) OnStep(dynamo.Clock, dynamo.ParticleStore) {
	o.calls++
	if o.seq != nil {
		o.phases = append(o.phases, o.seq.Phase())
	}
}

type countingMetric struct{ n int }

func (m *countingMetric) Name() string                               { return "observations" }
func (m *countingMetric) Observe(dynamo.Clock, dynamo.ParticleStore) { m.n++ }
func (m *countingMetric) Value() float64                             { return float64(m.n) }
func (m *countingMetric) Reset()                                     { m.n = 0 }

// circular returns a unit central mass with massless bodies on circular
// orbits of the given radii.
func circular(radii ...float64) *dynamo.Particles {
	ps := dynamo.NewParticles(dynamo.Particle{Mass: 1})
	for _, r := range radii {
		ps.Add(dynamo.Particle{Pos: r3.Vec{X: r}, Vel: r3.Vec{Y: 1 / math.Sqrt(r)}})
	}
	return ps
}
