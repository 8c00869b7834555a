package config

import (
	"math"
	"sort"

	"github.com/san-kum/keplersim/internal/kepler"
)

var defaultSolver = SolverConfig{
	Tolerance:          kepler.DefaultTolerance,
	MaxIterations:      kepler.DefaultMaxIterations,
	ParabolicTolerance: kepler.DefaultParabolicTolerance,
}

// G in AU^3 / (solar mass * year^2)
const gaussG = 4 * math.Pi * math.Pi

var Presets = map[string]*Config{
	"circular": {
		Integrator: "kepler", Dt: 2 * math.Pi / 100, Duration: 20 * math.Pi, G: 1, SnapshotEvery: 5,
		Solver: defaultSolver, Central: CentralConfig{Mass: 1},
		Bodies: []BodyConfig{{Name: "b", A: 1}},
	},
	"eccentric": {
		Integrator: "kepler", Dt: 0.05, Duration: 50, G: 1, SnapshotEvery: 2,
		Solver: defaultSolver, Central: CentralConfig{Mass: 1},
		Bodies: []BodyConfig{{Name: "b", A: 1, E: 0.6, Inc: 0.2, Peri: 1.0}},
	},
	"keplertest": {
		Integrator: "kepler", Dt: 0.01, Duration: 10, G: 1, SnapshotEvery: 10,
		Solver: defaultSolver, Central: CentralConfig{Mass: 1},
		Bodies: []BodyConfig{{
			Name: "b", Mass: 1e-2,
			A: 1, E: 0.2940098, Inc: 0.80004, Omega: 0.3020, Peri: 0.1, F: 0,
		}},
	},
	"solar": {
		Integrator: "dkd", Dt: 0.1, Duration: 1000, G: gaussG, SnapshotEvery: 50,
		Solver: defaultSolver, Central: CentralConfig{Mass: 1},
		Bodies: []BodyConfig{
			{Name: "jupiter", Mass: 9.5458e-4, A: 5.2026, E: 0.0485, Inc: 0.0228, Omega: 1.7534, Peri: 4.7799, F: 0.5},
			{Name: "saturn", Mass: 2.8580e-4, A: 9.5549, E: 0.0555, Inc: 0.0434, Omega: 1.9838, Peri: 5.9236, F: 2.1},
		},
	},
	"migration": {
		Integrator: "dkd", Dt: 0.01, Duration: 2000, G: 1, SnapshotEvery: 200,
		Solver: defaultSolver, Central: CentralConfig{Mass: 0.32},
		Bodies: []BodyConfig{
			{Name: "b", Mass: 1.9e-3, A: 1, E: 0.01, TauE: 1000},
			{Name: "c", Mass: 0.6e-3, A: 2.2, E: 0.01, F: 1.0, TauA: 20000, TauE: 1000},
		},
	},
	"comparison": {
		Integrator: "leapfrog", Dt: 0.05, Duration: 100, G: 1, SnapshotEvery: 10,
		Solver: defaultSolver, Central: CentralConfig{Mass: 1},
		Bodies: []BodyConfig{{Name: "b", Mass: 1e-3, A: 1, E: 0.3}},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
