package integrators

import (
	"fmt"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// field sums a set of forces into a reusable acceleration buffer.
type field struct {
	forces []dynamo.Force
	acc    []r3.Vec
}

func newField(forces []dynamo.Force) field {
	if len(forces) == 0 {
		forces = []dynamo.Force{physics.Gravity{}}
	}
	return field{forces: forces}
}

func (f *field) eval(g float64, ps dynamo.ParticleStore) []r3.Vec {
	n := ps.Len()
	if len(f.acc) != n {
		f.acc = make([]r3.Vec, n)
	}
	for i := range f.acc {
		f.acc[i] = r3.Vec{}
	}
	for _, force := range f.forces {
		force.Accelerations(g, ps, f.acc)
	}
	return f.acc
}

// checkAll reports one outcome per particle, flagging any that are no
// longer finite.
func checkAll(clock *dynamo.Clock, ps dynamo.ParticleStore) []dynamo.Outcome {
	outcomes := make([]dynamo.Outcome, ps.Len())
	for i := range outcomes {
		outcomes[i] = dynamo.Outcome{Index: i, Step: clock.Step, Time: clock.T}
		if !ps.At(i).IsValid() {
			outcomes[i].Err = &dynamo.ParticleError{
				Index: i, Step: clock.Step, Time: clock.T,
				Wrapped: fmt.Errorf("%w: non-finite state", dynamo.ErrInvalidState),
			}
		}
	}
	return outcomes
}
