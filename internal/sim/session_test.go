package sim_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/physics"
	"github.com/san-kum/chaoslab/internal/sim"
)

var _ = Describe("Session", func() {
	var (
		s      *sim.Session
		builds int
	)

	build := func(f dynamo.Field) (*sim.Ensemble, error) {
		builds++
		m := f.(physics.Model)
		return sim.NewEnsemble(f, []dynamo.State{m.DefaultState()})
	}

	BeforeEach(func() {
		builds = 0
		var err error
		s, err = sim.NewSession(physics.NewVanDerPol(), build, 0.01, 4)
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts idle and only ticks while running", func() {
		Expect(s.Phase()).To(Equal(sim.Idle))
		r, err := s.Frame()
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Steps).To(BeZero())

		Expect(s.Start()).To(Succeed())
		r, err = s.Frame()
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Steps).To(Equal(4))
		Expect(s.Frames()).To(Equal(1))
	})

	It("walks idle, running, paused, running, idle", func() {
		Expect(s.Start()).To(Succeed())
		Expect(s.Pause()).To(Succeed())
		Expect(s.Phase()).To(Equal(sim.Paused))

		r, _ := s.Frame()
		Expect(r.Steps).To(BeZero())

		Expect(s.Resume()).To(Succeed())
		Expect(s.Phase()).To(Equal(sim.Running))
		Expect(s.Reset()).To(Succeed())
		Expect(s.Phase()).To(Equal(sim.Idle))
		Expect(s.Ensemble().Time()).To(BeZero())
	})

	It("rejects transitions that skip a state", func() {
		Expect(s.Pause()).To(MatchError(sim.ErrInvalidTransition))
		Expect(s.Resume()).To(MatchError(sim.ErrInvalidTransition))
		Expect(s.Start()).To(Succeed())
		Expect(s.Start()).To(MatchError(sim.ErrInvalidTransition))
	})

	It("replaces the ensemble when the field changes", func() {
		Expect(s.Start()).To(Succeed())
		_, _ = s.Frame()
		old := s.Ensemble()
		oldGen := old.Generation()

		f, err := physics.NewVanDerPol().WithParam("mu", 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.SetField(f)).To(Succeed())

		Expect(s.Ensemble()).NotTo(BeIdenticalTo(old))
		Expect(old.Generation()).To(Equal(oldGen + 1))
		Expect(s.Ensemble().Time()).To(BeZero())
		Expect(s.Field().Params()["mu"]).To(Equal(2.0))
		Expect(s.Phase()).To(Equal(sim.Running))
		Expect(builds).To(Equal(2))
	})

	It("changes speed without touching history", func() {
		Expect(s.SetSpeed(0)).NotTo(Succeed())
		Expect(s.SetSpeed(10)).To(Succeed())
		Expect(s.Start()).To(Succeed())
		r, _ := s.Frame()
		Expect(r.Steps).To(Equal(10))
	})

	It("runs a batch of frames", func() {
		r, err := s.Run(context.Background(), 25)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Steps).To(Equal(100))
		Expect(r.Time).To(BeNumerically("~", 1.0, 1e-9))
		Expect(s.Phase()).To(Equal(sim.Running))
	})

	It("stops a batch when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r, err := s.Run(ctx, 25)
		Expect(err).To(MatchError(context.Canceled))
		Expect(r.Steps).To(BeZero())
	})
})
