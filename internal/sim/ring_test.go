package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/chaoslab/internal/sim"
)

var _ = Describe("Ring", func() {
	It("keeps the most recent entries in insertion order", func() {
		const n, k = 5, 3
		r := sim.NewRing[int](n)
		for i := 0; i < n+k; i++ {
			r.Append(i)
		}
		Expect(r.Len()).To(Equal(n))
		Expect(r.Cap()).To(Equal(n))
		Expect(r.Snapshot()).To(Equal([]int{3, 4, 5, 6, 7}))
		Expect(r.At(0)).To(Equal(3))

		last, ok := r.Last()
		Expect(ok).To(BeTrue())
		Expect(last).To(Equal(7))
	})

	It("never grows beyond capacity", func() {
		r := sim.NewRing[float64](3)
		for i := 0; i < 100; i++ {
			r.Append(float64(i))
			Expect(r.Len()).To(BeNumerically("<=", 3))
		}
	})

	It("returns snapshots the caller may modify", func() {
		r := sim.NewRing[int](2)
		r.Append(1)
		snap := r.Snapshot()
		snap[0] = 99
		Expect(r.At(0)).To(Equal(1))
	})

	It("empties on reset", func() {
		r := sim.NewRing[int](4)
		r.Append(1)
		r.Append(2)
		r.Reset()
		Expect(r.Len()).To(BeZero())
		_, ok := r.Last()
		Expect(ok).To(BeFalse())
		r.Append(3)
		Expect(r.Snapshot()).To(Equal([]int{3}))
	})

	It("rejects a zero capacity", func() {
		Expect(func() { sim.NewRing[int](0) }).To(Panic())
	})
})
