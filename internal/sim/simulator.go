package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/physics"
)

type Config struct {
	Duration float64
	// SnapshotEvery records the particle state every that many steps. The
	// initial and final states are always recorded.
	SnapshotEvery int
	// ValidateState stops the run at the first non-finite particle.
	ValidateState bool
	// Softening used for the energy diagnostic.
	Softening float64
	// Invariants picks the energy behind Result.EnergyDrift; the zero value
	// means physics.Barycentric.
	Invariants physics.Invariants
}

type Result struct {
	Integrator  string
	Snapshots   [][]dynamo.Particle
	Times       []float64
	Metrics     map[string]float64
	StepsTaken  int
	Flagged     []dynamo.Outcome
	EnergyDrift float64
	Aborted     bool
	Errors      []error
}

// SimError reports a run stopped by an invalid state.
type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("t=%.4f step=%d: %s", e.Time, e.Step, e.Message)
}

type Simulator struct {
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	logger     *slog.Logger
}

func New(integrator dynamo.Integrator, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		integrator: integrator,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		logger:     logger,
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run integrates ps in place for cfg.Duration, rounded to a whole number of
// clock.Dt steps. The context is checked between steps only.
func (s *Simulator) Run(ctx context.Context, ps dynamo.ParticleStore, clock *dynamo.Clock, cfg Config) (*Result, error) {
	if err := s.validateConfig(clock, cfg); err != nil {
		return nil, err
	}

	every := cfg.SnapshotEvery
	if every <= 0 {
		every = 1
	}
	steps := int(math.Round(cfg.Duration / clock.Dt))

	result := &Result{
		Integrator: s.integrator.Name(),
		Snapshots:  make([][]dynamo.Particle, 0, steps/every+2),
		Times:      make([]float64, 0, steps/every+2),
		Metrics:    make(map[string]float64),
		Errors:     make([]error, 0),
	}

	seq := NewSequence(s.integrator, clock, ps, s.logger)
	for _, o := range s.observers {
		seq.AddObserver(o)
	}
	seq.Reset()

	for _, m := range s.metrics {
		m.Reset()
		m.Observe(*clock, ps)
	}

	record := func() {
		result.Snapshots = append(result.Snapshots, dynamo.Snapshot(ps))
		result.Times = append(result.Times, clock.T)
	}
	record()

	energy := cfg.Invariants.OrDefault().Energy
	initialEnergy := energy(clock.G, ps, cfg.Softening)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		outcomes, err := seq.Step()
		result.Flagged = append(result.Flagged, dynamo.Failures(outcomes)...)
		if err != nil {
			result.Errors = append(result.Errors, err)
			if errors.Is(err, dynamo.ErrStepAborted) {
				result.Aborted = true
				s.logger.Error("step aborted", "step", clock.Step, "t", clock.T, "err", err)
				break
			}
			return result, err
		}
		result.StepsTaken++

		for _, m := range s.metrics {
			m.Observe(*clock, ps)
		}

		if cfg.ValidateState {
			if idx, ok := firstInvalid(ps); ok {
				err := SimError{Time: clock.T, Step: clock.Step, Message: fmt.Sprintf("particle %d has a non-finite state", idx)}
				result.Errors = append(result.Errors, err)
				s.logger.Error("invalid state", "step", clock.Step, "t", clock.T, "index", idx)
				break
			}
		}

		if clock.Step%every == 0 || i == steps-1 {
			record()
		}
	}

	if result.Times[len(result.Times)-1] != clock.T {
		record()
	}

	finalEnergy := energy(clock.G, ps, cfg.Softening)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.logger.Info("run complete",
		"integrator", result.Integrator,
		"steps", result.StepsTaken,
		"t", clock.T,
		"flagged", len(result.Flagged),
		"energy_drift", result.EnergyDrift)

	return result, nil
}

func (s *Simulator) validateConfig(clock *dynamo.Clock, cfg Config) error {
	if err := clock.Validate(); err != nil {
		return err
	}
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("%w: duration must be positive, got %g", dynamo.ErrParameterBounds, cfg.Duration)
	}
	if math.Round(cfg.Duration/clock.Dt) < 1 {
		return fmt.Errorf("%w: duration %g is shorter than one step of %g", dynamo.ErrParameterBounds, cfg.Duration, clock.Dt)
	}
	if cfg.Softening < 0 {
		return fmt.Errorf("%w: softening must be non-negative, got %g", dynamo.ErrParameterBounds, cfg.Softening)
	}
	return nil
}

func firstInvalid(ps dynamo.ParticleStore) (int, bool) {
	for i := 0; i < ps.Len(); i++ {
		if !ps.At(i).IsValid() {
			return i, true
		}
	}
	return 0, false
}
