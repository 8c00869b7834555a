package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/orbit"
	"github.com/san-kum/keplersim/internal/physics"
	"github.com/san-kum/keplersim/internal/sim"
)

// Scenario is the particle set a config describes: the central body at the
// origin, at index 0, followed by the bodies in config order.
type Scenario struct {
	Particles *dynamo.Particles
	Names     []string
	// Migration is nil unless some body has a damping timescale.
	Migration *physics.Migration
}

func BuildScenario(cfg *config.Config) (*Scenario, error) {
	central := dynamo.Particle{Mass: cfg.Central.Mass, Radius: cfg.Central.Radius}
	ps := dynamo.NewParticles(central)
	names := []string{"central"}

	var mig *physics.Migration
	if cfg.HasMigration() {
		mig = physics.NewMigration(len(cfg.Bodies) + 1)
	}

	for i, b := range cfg.Bodies {
		el := orbit.Elements{A: b.A, E: b.E, Inc: b.Inc, Omega: b.Omega, Peri: b.Peri, F: b.F}
		p, err := orbit.ToParticle(cfg.G, central, b.Mass, el)
		if err != nil {
			return nil, fmt.Errorf("body %d (%s): %w", i, b.Name, err)
		}
		idx := ps.Add(p)

		name := b.Name
		if name == "" {
			name = fmt.Sprintf("body%d", idx)
		}
		names = append(names, name)

		if mig != nil {
			mig.SetTauA(idx, b.TauA)
			mig.SetTauE(idx, b.TauE)
		}
	}

	return &Scenario{Particles: ps, Names: names, Migration: mig}, nil
}

// Forces returns the forces beyond gravity that the scenario needs.
func (s *Scenario) Forces() []dynamo.Force {
	if s.Migration == nil {
		return nil
	}
	return []dynamo.Force{s.Migration}
}

type Experiment struct {
	cfg        *config.Config
	registry   *Registry
	scenario   *Scenario
	integrator dynamo.Integrator
	simulator  *sim.Simulator
	clock      *dynamo.Clock
	logger     *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Experiment {
	if logger == nil {
		logger = slog.Default()
	}
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   logger,
	}
}

// Setup validates the config, builds the particles and the integrator, and
// attaches the given metrics, or the default set when none are given.
func (e *Experiment) Setup(ms ...dynamo.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	scenario, err := BuildScenario(e.cfg)
	if err != nil {
		return err
	}
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator, e.cfg, scenario.Forces()...)
	if err != nil {
		return err
	}

	e.scenario = scenario
	e.integrator = integ
	e.clock = dynamo.NewClock(e.cfg.G, e.cfg.Dt)
	e.simulator = sim.New(integ, e.logger)

	if len(ms) == 0 {
		ms = DefaultMetrics(e.cfg)
	}
	for _, m := range ms {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.scenario.Particles, e.clock, SimConfig(e.cfg))
}

// Sequence returns a step sequence over the experiment's particles and
// clock, for callers that drive steps one at a time.
func (e *Experiment) Sequence() *sim.Sequence {
	return sim.NewSequence(e.integrator, e.clock, e.scenario.Particles, e.logger)
}

// Sweep runs the scenario once per step size, concurrently.
func (e *Experiment) Sweep(ctx context.Context, dts []float64, limit int) ([]sim.Member, error) {
	if e.scenario == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	ens := &sim.Ensemble{
		NewIntegrator: func() (dynamo.Integrator, error) {
			return e.registry.GetIntegrator(e.cfg.Integrator, e.cfg, e.scenario.Forces()...)
		},
		NewMetrics: func() []dynamo.Metric { return DefaultMetrics(e.cfg) },
		Logger:     e.logger,
		Limit:      limit,
	}
	return ens.Run(ctx, e.scenario.Particles, e.cfg.G, dts, SimConfig(e.cfg))
}

func SimConfig(cfg *config.Config) sim.Config {
	return sim.Config{
		Duration:      cfg.Duration,
		SnapshotEvery: cfg.SnapshotEvery,
		Softening:     cfg.Softening,
		Invariants:    InvariantsFor(cfg.Integrator),
	}
}

func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }
func (e *Experiment) Scenario() *Scenario       { return e.scenario }
func (e *Experiment) Clock() *dynamo.Clock      { return e.clock }
func (e *Experiment) Integrator() dynamo.Integrator {
	return e.integrator
}
