package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/keplersim/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs the same initial conditions once per step size, each on its
// own copy of the particles.
type Ensemble struct {
	// NewIntegrator and NewMetrics are called once per member so that no
	// scratch state is shared between goroutines.
	NewIntegrator func() (dynamo.Integrator, error)
	NewMetrics    func() []dynamo.Metric
	Logger        *slog.Logger
	// Limit bounds the number of members running at once; zero means no
	// limit.
	Limit int
}

type Member struct {
	Dt     float64
	Result *Result
}

func (e *Ensemble) Run(ctx context.Context, ps dynamo.ParticleStore, g float64, dts []float64, cfg Config) ([]Member, error) {
	if e.NewIntegrator == nil {
		return nil, fmt.Errorf("%w: ensemble has no integrator", dynamo.ErrParameterBounds)
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	initial := dynamo.Snapshot(ps)
	members := make([]Member, len(dts))

	grp, ctx := errgroup.WithContext(ctx)
	if e.Limit > 0 {
		grp.SetLimit(e.Limit)
	}

	for i, dt := range dts {
		grp.Go(func() error {
			own := &dynamo.Particles{Items: make([]dynamo.Particle, len(initial)), Ref: ps.Reference()}
			copy(own.Items, initial)

			integ, err := e.NewIntegrator()
			if err != nil {
				return fmt.Errorf("dt=%g: %w", dt, err)
			}
			s := New(integ, logger.With("dt", dt))
			if e.NewMetrics != nil {
				for _, m := range e.NewMetrics() {
					s.AddMetric(m)
				}
			}

			res, err := s.Run(ctx, own, dynamo.NewClock(g, dt), cfg)
			if err != nil {
				return fmt.Errorf("dt=%g: %w", dt, err)
			}
			members[i] = Member{Dt: dt, Result: res}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return members, nil
}
