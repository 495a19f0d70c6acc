package sim_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/physics"
	"github.com/san-kum/chaoslab/internal/sim"
)

// distanceToPath is the shortest distance from p to the polyline through path.
func distanceToPath(p dynamo.State, path []dynamo.State) float64 {
	best := math.Inf(1)
	for k := 1; k < len(path); k++ {
		a, b := path[k-1], path[k]
		ab := b.Sub(a)
		denom := ab[0]*ab[0] + ab[1]*ab[1]
		u := 0.0
		if denom > 0 {
			ap := p.Sub(a)
			u = math.Max(0, math.Min(1, (ap[0]*ab[0]+ap[1]*ab[1])/denom))
		}
		q := a.Add(ab.Scale(u))
		if d, _ := p.Distance(q); d < best {
			best = d
		}
	}
	return best
}

func escapingLogistic() dynamo.Field {
	f, err := physics.NewLogistic().WithParam("r", 4.5)
	Expect(err).NotTo(HaveOccurred())
	return f
}

var _ = Describe("Ensemble", func() {
	Describe("construction", func() {
		It("rejects states of the wrong arity", func() {
			_, err := sim.NewEnsemble(physics.NewLorenz(), []dynamo.State{{1, 2}})
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("rejects non-finite states", func() {
			_, err := sim.NewEnsemble(physics.NewVanDerPol(), []dynamo.State{{math.NaN(), 0}})
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
		})

		It("records the initial state as the first history entry", func() {
			ens, err := sim.NewEnsemble(physics.NewVanDerPol(), []dynamo.State{{2, 0}})
			Expect(err).NotTo(HaveOccurred())
			snap, err := ens.Snapshot(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.History).To(HaveLen(1))
			Expect(snap.History[0]).To(Equal(dynamo.State{2, 0}))
		})
	})

	Describe("Tick", func() {
		var ens *sim.Ensemble

		BeforeEach(func() {
			var err error
			ens, err = sim.NewEnsemble(physics.NewLorenz(),
				[]dynamo.State{{1, 1, 1}, {1.0001, 1, 1}},
				sim.WithCapacity(50))
			Expect(err).NotTo(HaveOccurred())
		})

		It("appends every sub-step to history", func() {
			r, err := ens.Tick(0.01, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Steps).To(Equal(10))
			Expect(r.Time).To(BeNumerically("~", 0.1, 1e-12))

			snap, _ := ens.Snapshot(1)
			Expect(snap.History).To(HaveLen(11))
			Expect(snap.Steps).To(Equal(10))
			Expect(snap.History[10]).To(Equal(snap.Current))
		})

		It("bounds history by capacity", func() {
			_, err := ens.Tick(0.01, 120)
			Expect(err).NotTo(HaveOccurred())
			snap, _ := ens.Snapshot(0)
			Expect(snap.History).To(HaveLen(50))
			Expect(snap.History[49]).To(Equal(snap.Current))
		})

		It("rejects bad arguments", func() {
			_, err := ens.Tick(0, 1)
			Expect(err).To(HaveOccurred())
			_, err = ens.Tick(0.01, 0)
			Expect(err).To(HaveOccurred())
		})

		It("advances maps by one per step", func() {
			m, err := sim.NewEnsemble(physics.NewHenon(), []dynamo.State{{0, 0}})
			Expect(err).NotTo(HaveOccurred())
			r, err := m.Tick(0.01, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Time).To(Equal(7.0))
		})

		It("matches sequential results when computed in parallel", func() {
			initial := sim.Cloud(sim.GaussianSeeder(7, dynamo.State{1, 1, 1}, 0.5), 64)
			seq, _ := sim.NewEnsemble(physics.NewLorenz(), initial)
			par, _ := sim.NewEnsemble(physics.NewLorenz(), initial, sim.WithParallel(true))
			_, err := seq.Tick(0.01, 25)
			Expect(err).NotTo(HaveOccurred())
			_, err = par.Tick(0.01, 25)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 64; i++ {
				a, _ := seq.State(i)
				b, _ := par.State(i)
				Expect(a).To(Equal(b))
			}
		})
	})

	Describe("observers", func() {
		It("see a fully committed step, once per trajectory", func() {
			var ens *sim.Ensemble
			calls := map[int]int{}
			consistent := true
			obs := sim.ObserverFunc(func(i int, prev, next dynamo.State, tPrev, tNext float64) {
				calls[i]++
				for j := 0; j < ens.Len(); j++ {
					snap, _ := ens.Snapshot(j)
					if snap.Steps != calls[i] {
						consistent = false
					}
				}
				if tNext-tPrev <= 0 || len(prev) != len(next) {
					consistent = false
				}
			})

			var err error
			ens, err = sim.NewEnsemble(physics.NewVanDerPol(),
				[]dynamo.State{{2, 0}, {1, 0}, {0.5, 0.5}},
				sim.WithObserver(obs))
			Expect(err).NotTo(HaveOccurred())

			_, err = ens.Tick(0.01, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(calls).To(Equal(map[int]int{0: 5, 1: 5, 2: 5}))
			Expect(consistent).To(BeTrue())
		})
	})

	Describe("membership", func() {
		It("keeps order stable after removal", func() {
			ens, err := sim.NewEnsemble(physics.NewVanDerPol(),
				[]dynamo.State{{1, 0}, {2, 0}, {3, 0}})
			Expect(err).NotTo(HaveOccurred())
			gen := ens.Generation()

			idx, err := ens.AddTrajectory(dynamo.State{4, 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).To(Equal(3))
			Expect(ens.Generation()).To(Equal(gen))

			Expect(ens.RemoveTrajectory(1)).To(Succeed())
			Expect(ens.Generation()).To(Equal(gen + 1))
			Expect(ens.Len()).To(Equal(3))
			for i, want := range []float64{1, 3, 4} {
				x, _ := ens.State(i)
				Expect(x[0]).To(Equal(want))
			}

			Expect(ens.RemoveTrajectory(5)).To(MatchError(sim.ErrNoTrajectory))
		})

		It("resets time and generation", func() {
			ens, _ := sim.NewEnsemble(physics.NewVanDerPol(), []dynamo.State{{1, 0}})
			_, _ = ens.Tick(0.1, 3)
			gen := ens.Generation()

			Expect(ens.Reset([]dynamo.State{{0.5, 0}, {0.7, 0}})).To(Succeed())
			Expect(ens.Time()).To(BeZero())
			Expect(ens.Len()).To(Equal(2))
			Expect(ens.Generation()).To(Equal(gen + 1))
		})
	})

	Describe("divergence", func() {
		It("freezes a diverged trajectory without a seeder", func() {
			ens, err := sim.NewEnsemble(escapingLogistic(),
				[]dynamo.State{{0.5}, {0.1}})
			Expect(err).NotTo(HaveOccurred())

			r, err := ens.Tick(1, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Divergences).NotTo(BeEmpty())
			d := r.Divergences[0]
			Expect(d.Index).To(Equal(0))
			Expect(d.Reseeded).To(BeFalse())
			Expect(d.Err).To(MatchError(dynamo.ErrDomain))

			var simErr *dynamo.SimulationError
			Expect(d.Err).To(BeAssignableToTypeOf(simErr))

			Expect(ens.Divergent(0)).To(BeTrue())
			frozen, _ := ens.Snapshot(0)
			_, _ = ens.Tick(1, 5)
			after, _ := ens.Snapshot(0)
			Expect(after.Steps).To(Equal(frozen.Steps))
			Expect(after.Current).To(Equal(frozen.Current))
			Expect(after.Current.IsValid()).To(BeTrue())
		})

		It("reseeds deterministically when a seeder is set", func() {
			run := func() []dynamo.State {
				seeder := sim.GaussianSeeder(42, dynamo.State{0.5}, 0.01)
				ens, err := sim.NewEnsemble(escapingLogistic(),
					[]dynamo.State{{0.5}}, sim.WithSeeder(seeder))
				Expect(err).NotTo(HaveOccurred())
				var out []dynamo.State
				for i := 0; i < 6; i++ {
					_, err := ens.Tick(1, 1)
					Expect(err).NotTo(HaveOccurred())
					x, _ := ens.State(0)
					out = append(out, x)
				}
				snap, _ := ens.Snapshot(0)
				Expect(snap.Reseeds).To(BeNumerically(">", 0))
				Expect(snap.Divergent).To(BeFalse())
				return out
			}
			Expect(run()).To(Equal(run()))
		})
	})

	It("converges onto the Van der Pol limit cycle from any amplitude", func() {
		ens, err := sim.NewEnsemble(physics.NewVanDerPol(),
			[]dynamo.State{{0.5, 0}, {3.5, 0}}, sim.WithCapacity(1000))
		Expect(err).NotTo(HaveOccurred())

		_, err = ens.Tick(0.02, 5000)
		Expect(err).NotTo(HaveOccurred())

		inner, _ := ens.Snapshot(0)
		outer, _ := ens.State(1)
		Expect(distanceToPath(outer, inner.History)).To(BeNumerically("<", 0.05))
	})

	It("rescales a pair to a fixed separation", func() {
		ens, _ := sim.NewEnsemble(physics.NewLorenz(), []dynamo.State{{1, 1, 1}, {1, 1, 4}})
		before, err := ens.Rescale(0, 1, 1e-3)
		Expect(err).NotTo(HaveOccurred())
		Expect(before).To(BeNumerically("~", 3, 1e-12))

		a, _ := ens.State(0)
		b, _ := ens.State(1)
		d, _ := a.Distance(b)
		Expect(d).To(BeNumerically("~", 1e-3, 1e-12))
		Expect(b[2]).To(BeNumerically(">", a[2]))
	})
})

var _ = Describe("Seeders", func() {
	It("are reproducible for a fixed seed", func() {
		a := sim.Cloud(sim.GaussianSeeder(1, dynamo.State{0, 0}, 1), 10)
		b := sim.Cloud(sim.GaussianSeeder(1, dynamo.State{0, 0}, 1), 10)
		c := sim.Cloud(sim.GaussianSeeder(2, dynamo.State{0, 0}, 1), 10)
		Expect(a).To(Equal(b))
		Expect(a).NotTo(Equal(c))
	})

	It("builds perturbed copies along one axis", func() {
		xs := sim.Perturbed(dynamo.State{1, 1, 1}, 0, 1e-4, 2)
		Expect(xs).To(HaveLen(3))
		Expect(xs[1][0]).To(BeNumerically("~", 1.0001, 1e-12))
		Expect(xs[2][0]).To(BeNumerically("~", 1.0002, 1e-12))
		Expect(xs[2][1]).To(Equal(1.0))
	})
})
