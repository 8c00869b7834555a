package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/kepler"
	"gopkg.in/yaml.v3"
)

const (
	DefaultIntegrator = "kepler"
	DefaultDt         = 0.01
	DefaultDuration   = 10.0
	DefaultG          = 1.0
	DefaultCentral    = 1.0
)

type Config struct {
	Integrator    string        `yaml:"integrator"`
	Dt            float64       `yaml:"dt"`
	Duration      float64       `yaml:"duration"`
	G             float64       `yaml:"g"`
	SnapshotEvery int           `yaml:"snapshot_every"`
	Softening     float64       `yaml:"softening"`
	Solver        SolverConfig  `yaml:"solver"`
	Central       CentralConfig `yaml:"central"`
	Bodies        []BodyConfig  `yaml:"bodies"`
}

type SolverConfig struct {
	Tolerance          float64 `yaml:"tolerance" gcfg:"tolerance"`
	MaxIterations      int     `yaml:"max_iterations" gcfg:"max-iterations"`
	ParabolicTolerance float64 `yaml:"parabolic_tolerance" gcfg:"parabolic-tolerance"`
	EllipticOnly       bool    `yaml:"elliptic_only" gcfg:"elliptic-only"`
}

type CentralConfig struct {
	Mass   float64 `yaml:"mass" gcfg:"mass"`
	Radius float64 `yaml:"radius" gcfg:"radius"`
}

// BodyConfig places a body by its orbital elements about the central mass.
// TauA and TauE switch on migration and eccentricity damping.
type BodyConfig struct {
	Name  string  `yaml:"name"`
	Mass  float64 `yaml:"mass"`
	A     float64 `yaml:"a"`
	E     float64 `yaml:"e"`
	Inc   float64 `yaml:"inc"`
	Omega float64 `yaml:"omega"`
	Peri  float64 `yaml:"peri"`
	F     float64 `yaml:"f"`
	TauA  float64 `yaml:"tau_a"`
	TauE  float64 `yaml:"tau_e"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: DefaultIntegrator,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		G:          DefaultG,
		Solver: SolverConfig{
			Tolerance:          kepler.DefaultTolerance,
			MaxIterations:      kepler.DefaultMaxIterations,
			ParabolicTolerance: kepler.DefaultParabolicTolerance,
		},
		Central: CentralConfig{Mass: DefaultCentral},
	}
}

// Load reads a YAML config, or an INI-style one when the file ends in .ini
// or .gcfg. Unset values keep their defaults.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".gcfg":
		return loadINI(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Bodies = append([]BodyConfig(nil), c.Bodies...)
	return &cp
}

func (c *Config) SolverOptions() kepler.Options {
	opts := kepler.Options{
		Tolerance:          c.Solver.Tolerance,
		MaxIterations:      c.Solver.MaxIterations,
		ParabolicTolerance: c.Solver.ParabolicTolerance,
	}
	if c.Solver.EllipticOnly {
		opts.Regimes = kepler.EllipticOnly
	}
	return opts
}

func (c *Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"dt", c.Dt},
		{"duration", c.Duration},
		{"g", c.G},
		{"central.mass", c.Central.Mass},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", dynamo.ErrParameterBounds, p.name, p.v)
		}
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("%w: snapshot_every must not be negative", dynamo.ErrParameterBounds)
	}
	if c.Softening < 0 {
		return fmt.Errorf("%w: softening must not be negative", dynamo.ErrParameterBounds)
	}
	if c.Solver.Tolerance < 0 || c.Solver.MaxIterations < 0 || c.Solver.ParabolicTolerance < 0 {
		return fmt.Errorf("%w: solver settings must not be negative", dynamo.ErrParameterBounds)
	}

	seen := make(map[string]bool, len(c.Bodies))
	for i, b := range c.Bodies {
		if b.Name != "" {
			if seen[b.Name] {
				return fmt.Errorf("%w: duplicate body %q", dynamo.ErrParameterBounds, b.Name)
			}
			seen[b.Name] = true
		}
		if b.Mass < 0 {
			return fmt.Errorf("%w: body %d (%s) has negative mass", dynamo.ErrParameterBounds, i, b.Name)
		}
		if b.TauA < 0 || b.TauE < 0 {
			return fmt.Errorf("%w: body %d (%s) has a negative damping timescale", dynamo.ErrParameterBounds, i, b.Name)
		}
	}
	return nil
}

// HasMigration reports whether any body has a damping timescale set.
func (c *Config) HasMigration() bool {
	for _, b := range c.Bodies {
		if b.TauA != 0 || b.TauE != 0 {
			return true
		}
	}
	return false
}
