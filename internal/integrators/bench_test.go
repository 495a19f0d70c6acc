package integrators

import (
	"testing"

	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/physics"
)

func benchmarkStep(b *testing.B, integ dynamo.Integrator, f dynamo.Field, x dynamo.State, dt float64) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := integ.Step(f, x, float64(i)*dt, dt)
		if err != nil {
			b.Fatal(err)
		}
		x = next
	}
}

func BenchmarkEuler(b *testing.B) {
	benchmarkStep(b, NewEuler(), physics.NewVanDerPol(), dynamo.State{2, 0}, 0.001)
}

func BenchmarkRK4(b *testing.B) {
	benchmarkStep(b, NewRK4(), physics.NewVanDerPol(), dynamo.State{2, 0}, 0.01)
}

func BenchmarkRK4_Lorenz(b *testing.B) {
	benchmarkStep(b, NewRK4(), physics.NewLorenz(), dynamo.State{1, 1, 1}, 0.01)
}

func BenchmarkRK4_Betatron(b *testing.B) {
	benchmarkStep(b, NewRK4(), physics.NewBetatron(), dynamo.State{0.1, 0, 0.05, 0}, 1)
}
