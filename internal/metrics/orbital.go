package metrics

import (
	"math"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/orbit"
	"gonum.org/v1/gonum/floats"
)

// SemiMajorAxisDrift is the largest relative change in any body's
// semi-major axis about the reference body. Bodies without bound elements
// at the first observation are ignored.
type SemiMajorAxisDrift struct {
	initial  []float64
	drifts   []float64
	maxDrift float64
	samples  int
}

func NewSemiMajorAxisDrift() *SemiMajorAxisDrift {
	return &SemiMajorAxisDrift{}
}

func (s *SemiMajorAxisDrift) Name() string { return "semi_major_axis_drift" }

func (s *SemiMajorAxisDrift) Observe(clock dynamo.Clock, ps dynamo.ParticleStore) {
	n := ps.Len()
	ref := ps.Reference()
	central := ps.At(ref)

	if s.samples == 0 {
		s.initial = make([]float64, n)
		s.drifts = make([]float64, n)
		for i := 0; i < n; i++ {
			if i == ref {
				continue
			}
			if el, err := orbit.FromParticle(clock.G, ps.At(i), central); err == nil {
				s.initial[i] = el.A
			}
		}
	}
	s.samples++

	if len(s.drifts) != n {
		return
	}
	for i := 0; i < n; i++ {
		s.drifts[i] = 0
		if s.initial[i] == 0 {
			continue
		}
		el, err := orbit.FromParticle(clock.G, ps.At(i), central)
		if err != nil {
			// no longer bound
			s.drifts[i] = math.Inf(1)
			continue
		}
		s.drifts[i] = math.Abs(el.A-s.initial[i]) / s.initial[i]
	}
	if n > 0 {
		s.maxDrift = math.Max(s.maxDrift, floats.Max(s.drifts))
	}
}

func (s *SemiMajorAxisDrift) Value() float64 { return s.maxDrift }

func (s *SemiMajorAxisDrift) Reset() {
	s.initial, s.drifts = nil, nil
	s.maxDrift = 0
	s.samples = 0
}

// FlaggedParticles is the largest number of bodies seen at once that are
// either non-finite or unbound from the reference body.
type FlaggedParticles struct {
	name    string
	maxSeen int
	current int
}

func NewFlaggedParticles() *FlaggedParticles {
	return &FlaggedParticles{name: "flagged_particles"}
}

func (f *FlaggedParticles) Name() string { return f.name }

func (f *FlaggedParticles) Observe(clock dynamo.Clock, ps dynamo.ParticleStore) {
	ref := ps.Reference()
	central := ps.At(ref)

	f.current = 0
	for i := 0; i < ps.Len(); i++ {
		if i == ref {
			continue
		}
		p := ps.At(i)
		if !p.IsValid() {
			f.current++
			continue
		}
		if _, err := orbit.FromParticle(clock.G, p, central); err != nil {
			f.current++
		}
	}
	if f.current > f.maxSeen {
		f.maxSeen = f.current
	}
}

func (f *FlaggedParticles) Value() float64 { return float64(f.maxSeen) }

func (f *FlaggedParticles) Current() int { return f.current }

func (f *FlaggedParticles) Reset() {
	f.maxSeen = 0
	f.current = 0
}
