package sim

import (
	"math/rand/v2"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Seeder supplies a replacement initial state for a diverged trajectory.
type Seeder func(index int) dynamo.State

// GaussianSeeder draws states from an isotropic normal distribution around
// center. The sequence of draws is fully determined by seed.
func GaussianSeeder(seed uint64, center dynamo.State, sigma float64) Seeder {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func(int) dynamo.State {
		x := center.Clone()
		for i := range x {
			x[i] += sigma * rng.NormFloat64()
		}
		return x
	}
}

// ConstantSeeder always restarts from x0.
func ConstantSeeder(x0 dynamo.State) Seeder {
	return func(int) dynamo.State { return x0.Clone() }
}

// Cloud draws n initial states from s.
func Cloud(s Seeder, n int) []dynamo.State {
	out := make([]dynamo.State, n)
	for i := range out {
		out[i] = s(i)
	}
	return out
}

// Perturbed returns base followed by copies of base shifted by eps along
// component k, one per requested offset multiple.
func Perturbed(base dynamo.State, k int, eps float64, n int) []dynamo.State {
	out := make([]dynamo.State, 0, n+1)
	out = append(out, base.Clone())
	for i := 1; i <= n; i++ {
		x := base.Clone()
		x[k] += float64(i) * eps
		out = append(out, x)
	}
	return out
}
