package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/orbit"
	"github.com/san-kum/keplersim/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScenario(t *testing.T) {
	cfg := config.GetPreset("keplertest")
	sc, err := BuildScenario(cfg)
	require.NoError(t, err)

	ps := sc.Particles
	require.Equal(t, 2, ps.Len())
	assert.Equal(t, 0, ps.Reference())
	assert.Equal(t, []string{"central", "b"}, sc.Names)
	assert.Nil(t, sc.Migration)
	assert.Empty(t, sc.Forces())

	central := ps.At(0)
	assert.Equal(t, 1.0, central.Mass)
	assert.Zero(t, central.Pos)

	el, err := orbit.FromParticle(cfg.G, ps.At(1), central)
	require.NoError(t, err)
	b := cfg.Bodies[0]
	assert.InDelta(t, b.A, el.A, 1e-12)
	assert.InDelta(t, b.E, el.E, 1e-12)
	assert.InDelta(t, b.Inc, el.Inc, 1e-12)
	assert.InDelta(t, b.Omega, el.Omega, 1e-12)
}

func TestBuildScenarioMigration(t *testing.T) {
	sc, err := BuildScenario(config.GetPreset("migration"))
	require.NoError(t, err)

	require.NotNil(t, sc.Migration)
	require.Len(t, sc.Forces(), 1)
	assert.Equal(t, []float64{0, 0, 20000}, sc.Migration.TauA)
	assert.Equal(t, []float64{0, 1000, 1000}, sc.Migration.TauE)
}

func TestBuildScenarioUnnamedAndInvalid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bodies = []config.BodyConfig{{A: 1}}
	sc, err := BuildScenario(cfg)
	require.NoError(t, err)
	assert.Equal(t, "body1", sc.Names[1])

	cfg.Bodies = []config.BodyConfig{{Name: "bad", A: 1, E: 1.5}}
	_, err = BuildScenario(cfg)
	assert.True(t, errors.Is(err, dynamo.ErrParameterBounds), "got %v", err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"dkd", "euler", "kepler", "leapfrog", "rk4"}, r.ListIntegrators())

	cfg := config.DefaultConfig()
	for _, name := range r.ListIntegrators() {
		integ, err := r.GetIntegrator(name, cfg)
		require.NoError(t, err, name)
		assert.Equal(t, name, integ.Name())
	}

	_, err := r.GetIntegrator("verlet", cfg)
	assert.Error(t, err)

	mig := physics.NewMigration(2)
	_, err = r.GetIntegrator("kepler", cfg, mig)
	assert.Error(t, err)
	_, err = r.GetIntegrator("dkd", cfg, mig)
	assert.NoError(t, err)
}

func TestDefaultMetrics(t *testing.T) {
	names := make([]string, 0)
	for _, m := range DefaultMetrics(config.DefaultConfig()) {
		names = append(names, m.Name())
	}
	assert.Contains(t, names, "semi_major_axis_drift")
	assert.Contains(t, names, "angular_momentum_drift")
	assert.Len(t, names, 4)
}

func TestExperimentRun(t *testing.T) {
	exp := New(config.GetPreset("keplertest"), nil)

	_, err := exp.Run(context.Background())
	require.Error(t, err, "run before setup")

	require.NoError(t, exp.Setup())
	res, err := exp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "kepler", res.Integrator)
	assert.Equal(t, 1000, res.StepsTaken)
	assert.Empty(t, res.Flagged)
	assert.Equal(t, len(res.Times), len(res.Snapshots))
	assert.InDelta(t, 10.0, exp.Clock().T, 1e-9)
	assert.Less(t, res.Metrics["semi_major_axis_drift"], 1e-8)

	// a massive body on an exact Kepler orbit keeps its two-body energy
	assert.Less(t, res.Metrics["energy_drift"], 1e-10)
	assert.Less(t, res.Metrics["angular_momentum_drift"], 1e-10)
	assert.Less(t, res.EnergyDrift, 1e-10)
}

func TestInvariantsFor(t *testing.T) {
	assert.Equal(t, physics.TwoBody.Name, InvariantsFor("kepler").Name)
	for _, name := range []string{"dkd", "leapfrog", "euler", "rk4"} {
		assert.Equal(t, physics.Barycentric.Name, InvariantsFor(name).Name, name)
	}
	assert.Equal(t, physics.TwoBody.Name, SimConfig(config.GetPreset("keplertest")).Invariants.Name)
}

func TestExperimentSetupErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Dt = -1
	err := New(cfg, nil).Setup()
	assert.True(t, errors.Is(err, dynamo.ErrParameterBounds), "got %v", err)

	cfg = config.GetPreset("migration")
	cfg.Integrator = "kepler"
	assert.Error(t, New(cfg, nil).Setup())

	cfg = config.DefaultConfig()
	cfg.Integrator = "unknown"
	assert.Error(t, New(cfg, nil).Setup())
}

func TestExperimentMigration(t *testing.T) {
	cfg := config.GetPreset("migration")
	cfg.Duration = 1
	exp := New(cfg, nil)
	require.NoError(t, exp.Setup())

	res, err := exp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, res.StepsTaken)
	assert.Empty(t, res.Flagged)
}

func TestExperimentSequence(t *testing.T) {
	exp := New(config.GetPreset("circular"), nil)
	require.NoError(t, exp.Setup())

	seq := exp.Sequence()
	_, err := seq.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, exp.Clock().Step)
	assert.InDelta(t, exp.Clock().Dt, exp.Clock().T, 1e-15)
}

func TestExperimentSweep(t *testing.T) {
	cfg := config.GetPreset("circular")
	cfg.Duration = 1
	exp := New(cfg, nil)

	_, err := exp.Sweep(context.Background(), []float64{0.1}, 0)
	require.Error(t, err, "sweep before setup")

	require.NoError(t, exp.Setup())
	members, err := exp.Sweep(context.Background(), []float64{0.1, 0.05, 0.01}, 2)
	require.NoError(t, err)
	require.Len(t, members, 3)

	for i, dt := range []float64{0.1, 0.05, 0.01} {
		assert.Equal(t, dt, members[i].Dt)
		assert.Equal(t, int(1/dt+0.5), members[i].Result.StepsTaken)
	}
	// the experiment's own particles are not touched
	assert.Equal(t, 0, exp.Clock().Step)
}

func TestExperimentSweepReportsFactoryErrors(t *testing.T) {
	cfg := config.GetPreset("circular")
	cfg.Duration = 1
	cfg.Integrator = "flaky"
	exp := New(cfg, nil)

	errExhausted := errors.New("integrator pool exhausted")
	built := 0
	exp.registry.Register("flaky", func(cfg *config.Config, extra []dynamo.Force) (dynamo.Integrator, error) {
		built++
		if built > 1 {
			return nil, errExhausted
		}
		return exp.registry.integrators["dkd"](cfg, extra)
	})
	require.NoError(t, exp.Setup())

	members, err := exp.Sweep(context.Background(), []float64{0.1}, 1)
	assert.True(t, errors.Is(err, errExhausted), "got %v", err)
	assert.Nil(t, members)
}
