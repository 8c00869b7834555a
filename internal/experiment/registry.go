package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/integrators"
	"github.com/san-kum/keplersim/internal/metrics"
	"github.com/san-kum/keplersim/internal/physics"
)

// IntegratorFactory builds a fresh integrator for cfg. extra holds forces
// beyond Newtonian gravity, such as migration.
type IntegratorFactory func(cfg *config.Config, extra []dynamo.Force) (dynamo.Integrator, error)

type Registry struct {
	integrators map[string]IntegratorFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]IntegratorFactory),
	}

	r.integrators["kepler"] = func(cfg *config.Config, extra []dynamo.Force) (dynamo.Integrator, error) {
		if len(extra) > 0 {
			return nil, fmt.Errorf("integrator kepler only follows the central body and cannot apply extra forces; use dkd")
		}
		return integrators.NewKeplerDrift(cfg.SolverOptions()), nil
	}
	r.integrators["dkd"] = func(cfg *config.Config, extra []dynamo.Force) (dynamo.Integrator, error) {
		d := integrators.NewDKD(cfg.SolverOptions(), extra...)
		d.Softening = cfg.Softening
		return d, nil
	}
	r.integrators["leapfrog"] = func(cfg *config.Config, extra []dynamo.Force) (dynamo.Integrator, error) {
		return integrators.NewLeapfrog(withGravity(cfg, extra)...), nil
	}
	r.integrators["euler"] = func(cfg *config.Config, extra []dynamo.Force) (dynamo.Integrator, error) {
		return integrators.NewEuler(withGravity(cfg, extra)...), nil
	}
	r.integrators["rk4"] = func(cfg *config.Config, extra []dynamo.Force) (dynamo.Integrator, error) {
		return integrators.NewRK4(withGravity(cfg, extra)...), nil
	}

	return r
}

func withGravity(cfg *config.Config, extra []dynamo.Force) []dynamo.Force {
	return append([]dynamo.Force{physics.Gravity{Softening: cfg.Softening}}, extra...)
}

func (r *Registry) Register(name string, f IntegratorFactory) {
	r.integrators[name] = f
}

func (r *Registry) GetIntegrator(name string, cfg *config.Config, extra ...dynamo.Force) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(cfg, extra)
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InvariantsFor names the energy and angular momentum the named integrator
// conserves. The kepler integrator leaves out the body-body forces, so only
// the two-body quantities stay constant under it.
func InvariantsFor(integrator string) physics.Invariants {
	if integrator == "kepler" {
		return physics.TwoBody
	}
	return physics.Barycentric
}

func DefaultMetrics(cfg *config.Config) []dynamo.Metric {
	inv := InvariantsFor(cfg.Integrator)
	return []dynamo.Metric{
		metrics.NewEnergyDrift(inv, cfg.Softening),
		metrics.NewAngularMomentumDrift(inv),
		metrics.NewSemiMajorAxisDrift(),
		metrics.NewFlaggedParticles(),
	}
}
