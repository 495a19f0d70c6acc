package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/physics"
	"github.com/san-kum/chaoslab/internal/sim"
)

// settledLorenz returns an ensemble holding two Lorenz trajectories 1e-4
// apart, both started on the attractor.
func settledLorenz(t *testing.T) *sim.Ensemble {
	t.Helper()
	ens, err := sim.NewEnsemble(physics.NewLorenz(), []dynamo.State{{1, 1, 1}})
	require.NoError(t, err)
	_, err = ens.Tick(0.01, 1000)
	require.NoError(t, err)

	x, err := ens.State(0)
	require.NoError(t, err)
	require.NoError(t, ens.Reset(sim.Perturbed(x, 0, 1e-4, 1)))
	return ens
}

func TestTrackerDetectsChaos(t *testing.T) {
	ens := settledLorenz(t)
	tr, err := NewTracker(ens, 0, 1, 200)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		_, err := ens.Tick(0.01, 10)
		require.NoError(t, err)
		_, err = tr.Sample()
		require.NoError(t, err)
	}

	lambda, err := tr.EstimateLyapunov(100)
	require.NoError(t, err)
	assert.Greater(t, lambda, 0.0)
}

func TestTrackerInsufficientSamples(t *testing.T) {
	ens := settledLorenz(t)
	tr, err := NewTracker(ens, 0, 1, 200)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, _ = ens.Tick(0.01, 1)
		_, err := tr.Sample()
		require.NoError(t, err)
	}

	_, err = tr.EstimateLyapunov(100)
	assert.ErrorIs(t, err, dynamo.ErrInsufficientSamples)

	_, err = tr.EstimateLyapunov(1)
	assert.Error(t, err)
}

func TestTrackerZeroDistance(t *testing.T) {
	ens, err := sim.NewEnsemble(physics.NewVanDerPol(), []dynamo.State{{1, 0}, {1, 0}})
	require.NoError(t, err)
	tr, err := NewTracker(ens, 0, 1, 10)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _ = ens.Tick(0.01, 1)
		s, err := tr.Sample()
		require.NoError(t, err)
		assert.Zero(t, s.Distance)
		assert.True(t, math.IsInf(s.Log10, -1))
	}

	_, err = tr.EstimateLyapunov(5)
	assert.ErrorIs(t, err, dynamo.ErrInsufficientSamples)
}

func TestTrackerStaleAfterReset(t *testing.T) {
	ens := settledLorenz(t)
	tr, err := NewTracker(ens, 0, 1, 50)
	require.NoError(t, err)

	_, err = tr.Sample()
	require.NoError(t, err)
	require.Equal(t, 1, tr.Len())

	require.NoError(t, ens.Reset([]dynamo.State{{1, 1, 1}, {2, 2, 2}}))

	_, err = tr.Sample()
	assert.ErrorIs(t, err, dynamo.ErrStaleEnsemble)
	assert.Zero(t, tr.Len())
}

func TestTrackerRenormalization(t *testing.T) {
	ens := settledLorenz(t)
	tr, err := NewTracker(ens, 0, 1, 500, WithRenormalize(1e-4, 1e-2))
	require.NoError(t, err)

	for i := 0; i < 400; i++ {
		_, err := ens.Tick(0.01, 5)
		require.NoError(t, err)
		_, err = tr.Sample()
		require.NoError(t, err)

		xi, _ := ens.State(0)
		xj, _ := ens.State(1)
		d, _ := xi.Distance(xj)
		require.LessOrEqual(t, d, 1e-2)
	}

	samples := tr.Samples()
	last := samples[len(samples)-1]
	assert.Greater(t, last.Log10, math.Log10(1e-2), "accumulated separation should keep growing")

	lambda, err := tr.EstimateLyapunov(400)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, lambda, 0.5)
}

func TestNewTrackerValidation(t *testing.T) {
	ens := settledLorenz(t)

	_, err := NewTracker(ens, 0, 0, 10)
	assert.Error(t, err)

	_, err = NewTracker(ens, 0, 7, 10)
	assert.ErrorIs(t, err, sim.ErrNoTrajectory)

	_, err = NewTracker(ens, 0, 1, 10, WithRenormalize(1, 0.5))
	assert.Error(t, err)
}
