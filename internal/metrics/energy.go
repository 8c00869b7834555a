package metrics

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// EnergyDrift is the largest relative change in energy seen since the first
// observation. The energy is the one inv names, so a scheme is only judged
// on what it is meant to conserve.
type EnergyDrift struct {
	name          string
	inv           physics.Invariants
	softening     float64
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(inv physics.Invariants, softening float64) *EnergyDrift {
	return &EnergyDrift{
		name:      "energy_drift",
		inv:       inv.OrDefault(),
		softening: softening,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(clock dynamo.Clock, ps dynamo.ParticleStore) {
	energy := e.inv.Energy(clock.G, ps, e.softening)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

type AngularMomentumDrift struct {
	inv      physics.Invariants
	initial  r3.Vec
	maxDrift float64
	samples  int
}

func NewAngularMomentumDrift(inv physics.Invariants) *AngularMomentumDrift {
	return &AngularMomentumDrift{inv: inv.OrDefault()}
}

func (a *AngularMomentumDrift) Name() string { return "angular_momentum_drift" }

func (a *AngularMomentumDrift) Observe(_ dynamo.Clock, ps dynamo.ParticleStore) {
	l := a.inv.AngularMomentum(ps)
	if a.samples == 0 {
		a.initial = l
	}
	a.samples++

	if n := r3.Norm(a.initial); n != 0 {
		a.maxDrift = math.Max(a.maxDrift, r3.Norm(r3.Sub(l, a.initial))/n)
	}
}

func (a *AngularMomentumDrift) Value() float64 { return a.maxDrift }

func (a *AngularMomentumDrift) Reset() {
	a.initial = r3.Vec{}
	a.maxDrift = 0
	a.samples = 0
}
