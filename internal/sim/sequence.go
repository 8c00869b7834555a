package sim

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/keplersim/internal/dynamo"
)

// Phase is the position of a Sequence within one step.
type Phase int

const (
	Idle Phase = iota
	Part1Applied
	Synchronized
	Part2Applied
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Part1Applied:
		return "part1-applied"
	case Synchronized:
		return "synchronized"
	case Part2Applied:
		return "part2-applied"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Sequence drives an integrator through part1, synchronize and part2 in
// that order, once per step. Observers are only called with synchronized
// state.
type Sequence struct {
	integ     dynamo.Integrator
	clock     *dynamo.Clock
	ps        dynamo.ParticleStore
	observers []dynamo.Observer
	logger    *slog.Logger
	phase     Phase
}

func NewSequence(integ dynamo.Integrator, clock *dynamo.Clock, ps dynamo.ParticleStore, logger *slog.Logger) *Sequence {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequence{integ: integ, clock: clock, ps: ps, logger: logger}
}

func (s *Sequence) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Sequence) Phase() Phase { return s.phase }

func (s *Sequence) Clock() dynamo.Clock { return *s.clock }

func (s *Sequence) outOfOrder(op string) error {
	return fmt.Errorf("%w: %s in phase %s", dynamo.ErrOutOfOrder, op, s.phase)
}

// Part1 applies the integrator's drift and kick. Per-particle failures are
// logged and returned; they do not stop the step unless no particle that
// was attempted advanced, in which case the step is aborted, the sequence
// returns to Idle and the clock is left alone.
func (s *Sequence) Part1() ([]dynamo.Outcome, error) {
	if s.phase != Idle && s.phase != Part2Applied {
		return nil, s.outOfOrder("part1")
	}

	outcomes := s.integ.Part1(s.clock, s.ps)
	failed := dynamo.Failures(outcomes)
	for _, o := range failed {
		s.logger.Warn("particle not advanced",
			"integrator", s.integ.Name(),
			"index", o.Index,
			"step", o.Step,
			"t", o.Time,
			"err", o.Err)
	}

	if len(outcomes) > 0 && len(failed) == len(outcomes) {
		s.phase = Idle
		return outcomes, fmt.Errorf("%w: step %d at t=%g, %d particles failed",
			dynamo.ErrStepAborted, s.clock.Step, s.clock.T, len(failed))
	}

	s.phase = Part1Applied
	return outcomes, nil
}

// Synchronize makes particle state consistent for readers and notifies the
// observers. Calling it again, or outside a step, has no further effect.
func (s *Sequence) Synchronize() error {
	switch s.phase {
	case Part1Applied:
		s.integ.Synchronize(s.clock, s.ps)
		s.phase = Synchronized
		for _, o := range s.observers {
			o.OnStep(*s.clock, s.ps)
		}
		return nil
	case Synchronized, Idle, Part2Applied:
		return nil
	}
	return s.outOfOrder("synchronize")
}

// Part2 advances the clock by exactly one dt.
func (s *Sequence) Part2() error {
	if s.phase != Synchronized {
		return s.outOfOrder("part2")
	}

	before := *s.clock
	s.integ.Part2(s.clock)
	if s.clock.T < before.T || s.clock.Step != before.Step+1 {
		return fmt.Errorf("%w: clock moved from t=%g step %d to t=%g step %d",
			dynamo.ErrInvalidState, before.T, before.Step, s.clock.T, s.clock.Step)
	}

	s.phase = Part2Applied
	return nil
}

// Step runs one full cycle.
func (s *Sequence) Step() ([]dynamo.Outcome, error) {
	outcomes, err := s.Part1()
	if err != nil {
		return outcomes, err
	}
	if err := s.Synchronize(); err != nil {
		return outcomes, err
	}
	return outcomes, s.Part2()
}

func (s *Sequence) Reset() {
	s.integ.Reset()
	s.phase = Idle
}
