package config

import (
	"fmt"
	"sort"

	"gopkg.in/gcfg.v1"
)

// ExampleINI is a complete INI-style config.
const ExampleINI = `[Run]
# kepler | dkd | leapfrog | rk4 | euler
Integrator = dkd
Dt = 0.01
Duration = 100
G = 1
SnapshotEvery = 10
Softening = 0

[Solver]
Tolerance = 1e-9
max-iterations = 1000
elliptic-only = false

[Central]
Mass = 1

# One section per body. Bodies are added in name order.
[Body "b"]
Mass = 1e-3
A = 1
E = 0.05

[Body "c"]
Mass = 1e-3
A = 1.6
E = 0.02
Inc = 0.01
TauA = 5000
`

type iniRun struct {
	Integrator    string
	Dt            float64
	Duration      float64
	G             float64
	SnapshotEvery int
	Softening     float64
}

type iniBody struct {
	Mass  float64
	A     float64
	E     float64
	Inc   float64
	Omega float64
	Peri  float64
	F     float64
	TauA  float64
	TauE  float64
}

type iniFile struct {
	Run     iniRun
	Solver  SolverConfig
	Central CentralConfig
	Body    map[string]*iniBody
}

func loadINI(path string) (*Config, error) {
	def := DefaultConfig()
	f := iniFile{
		Run: iniRun{
			Integrator: def.Integrator,
			Dt:         def.Dt,
			Duration:   def.Duration,
			G:          def.G,
		},
		Solver:  def.Solver,
		Central: def.Central,
	}

	if err := gcfg.ReadFileInto(&f, path); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg := &Config{
		Integrator:    f.Run.Integrator,
		Dt:            f.Run.Dt,
		Duration:      f.Run.Duration,
		G:             f.Run.G,
		SnapshotEvery: f.Run.SnapshotEvery,
		Softening:     f.Run.Softening,
		Solver:        f.Solver,
		Central:       f.Central,
	}

	names := make([]string, 0, len(f.Body))
	for name := range f.Body {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := f.Body[name]
		cfg.Bodies = append(cfg.Bodies, BodyConfig{
			Name: name, Mass: b.Mass,
			A: b.A, E: b.E, Inc: b.Inc, Omega: b.Omega, Peri: b.Peri, F: b.F,
			TauA: b.TauA, TauE: b.TauE,
		})
	}

	return cfg, nil
}
