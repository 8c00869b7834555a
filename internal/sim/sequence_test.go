package sim

import (
	"bytes"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/integrators"
	"github.com/san-kum/keplersim/internal/kepler"
)

var _ = Describe("Sequence", func() {
	var (
		integ *fakeIntegrator
		clock *dynamo.Clock
		ps    *dynamo.Particles
		logs  *bytes.Buffer
		seq   *Sequence
	)

	BeforeEach(func() {
		integ = &fakeIntegrator{}
		clock = dynamo.NewClock(1, 0.1)
		ps = circular(1, 2)
		logs = &bytes.Buffer{}
		seq = NewSequence(integ, clock, ps, slog.New(slog.NewTextHandler(logs, nil)))
	})

	It("starts idle", func() {
		Expect(seq.Phase()).To(Equal(Idle))
		Expect(seq.Clock()).To(Equal(*clock))
	})

	It("runs the phases of a step in order", func() {
		_, err := seq.Step()
		Expect(err).NotTo(HaveOccurred())
		Expect(integ.calls).To(Equal([]string{"part1", "synchronize", "part2"}))
		Expect(seq.Phase()).To(Equal(Part2Applied))
		Expect(clock.Step).To(Equal(1))
		Expect(clock.T).To(BeNumerically("~", 0.1, 1e-15))
	})

	It("allows the next step after part2", func() {
		for i := 0; i < 3; i++ {
			_, err := seq.Step()
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(clock.Step).To(Equal(3))
	})

	Context("out of order", func() {
		It("rejects part1 twice", func() {
			_, err := seq.Part1()
			Expect(err).NotTo(HaveOccurred())
			_, err = seq.Part1()
			Expect(errors.Is(err, dynamo.ErrOutOfOrder)).To(BeTrue())
		})

		It("rejects part2 before synchronize", func() {
			_, err := seq.Part1()
			Expect(err).NotTo(HaveOccurred())
			Expect(errors.Is(seq.Part2(), dynamo.ErrOutOfOrder)).To(BeTrue())
			Expect(clock.Step).To(Equal(0))
		})

		It("rejects part2 from idle", func() {
			Expect(errors.Is(seq.Part2(), dynamo.ErrOutOfOrder)).To(BeTrue())
		})

		It("rejects part1 while synchronized", func() {
			_, err := seq.Part1()
			Expect(err).NotTo(HaveOccurred())
			Expect(seq.Synchronize()).To(Succeed())
			_, err = seq.Part1()
			Expect(errors.Is(err, dynamo.ErrOutOfOrder)).To(BeTrue())
		})
	})

	Context("synchronize", func() {
		var obs *countingObserver

		BeforeEach(func() {
			obs = &countingObserver{seq: seq}
			seq.AddObserver(obs)
		})

		It("is idempotent", func() {
			_, err := seq.Part1()
			Expect(err).NotTo(HaveOccurred())
			Expect(seq.Synchronize()).To(Succeed())
			Expect(seq.Synchronize()).To(Succeed())
			Expect(integ.calls).To(Equal([]string{"part1", "synchronize"}))
			Expect(obs.calls).To(Equal(1))
		})

		It("only shows observers synchronized state", func() {
			for i := 0; i < 4; i++ {
				_, err := seq.Step()
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(obs.phases).To(HaveLen(4))
			for _, p := range obs.phases {
				Expect(p).To(Equal(Synchronized))
			}
		})

		It("is a no-op between steps", func() {
			Expect(seq.Synchronize()).To(Succeed())
			Expect(integ.calls).To(BeEmpty())
			Expect(obs.calls).To(BeZero())
		})
	})

	Context("per-particle failures", func() {
		It("keeps stepping when some particles fail", func() {
			integ.part1 = outcomesWith([]int{1, 2}, map[int]error{1: dynamo.ErrConvergence})

			out, err := seq.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(dynamo.Failures(out)).To(HaveLen(1))
			Expect(clock.Step).To(Equal(1))
			Expect(logs.String()).To(ContainSubstring("particle not advanced"))
			Expect(logs.String()).To(ContainSubstring("index=1"))
		})

		It("aborts the step when every attempted particle fails", func() {
			integ.part1 = outcomesWith([]int{1, 2}, map[int]error{
				1: dynamo.ErrConvergence,
				2: dynamo.ErrUnsupportedRegime,
			})

			out, err := seq.Step()
			Expect(errors.Is(err, dynamo.ErrStepAborted)).To(BeTrue())
			Expect(out).To(HaveLen(2))
			Expect(seq.Phase()).To(Equal(Idle))
			Expect(clock.Step).To(Equal(0))
			Expect(clock.T).To(BeZero())
			Expect(integ.calls).To(Equal([]string{"part1"}))

			integ.part1 = nil
			_, err = seq.Step()
			Expect(err).NotTo(HaveOccurred())
		})

		It("advances when nothing was attempted", func() {
			integ.part1 = outcomesWith(nil, nil)
			_, err := seq.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(clock.Step).To(Equal(1))
		})
	})

	It("resets the integrator and returns to idle", func() {
		_, err := seq.Part1()
		Expect(err).NotTo(HaveOccurred())
		seq.Reset()
		Expect(seq.Phase()).To(Equal(Idle))
		Expect(integ.calls).To(ContainElement("reset"))
		_, err = seq.Part1()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("with the kepler drift", func() {
		It("moves the clock by exactly dt per step", func() {
			s := NewSequence(integrators.NewKeplerDrift(kepler.Options{}), clock, ps, nil)
			for i := 0; i < 5; i++ {
				out, err := s.Step()
				Expect(err).NotTo(HaveOccurred())
				Expect(out).To(HaveLen(2))
			}
			Expect(clock.Step).To(Equal(5))
			Expect(clock.T).To(BeNumerically("~", 0.5, 1e-12))
			Expect(ps.At(0)).To(Equal(dynamo.Particle{Mass: 1}))
		})
	})
})
