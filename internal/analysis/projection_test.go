package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

func TestProject(t *testing.T) {
	pts, err := Project([]dynamo.State{{1, 2, 3}, {4, 5, 6}}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []Point{{1, 3}, {4, 6}}, pts)

	_, err = Project([]dynamo.State{{1, 2}}, 0, 2)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
}

func TestBoundsOf(t *testing.T) {
	b := BoundsOf([]Point{{0, 0}, {10, 5}}, 0.1)
	assert.InDelta(t, -1, b.MinX, 1e-12)
	assert.InDelta(t, 11, b.MaxX, 1e-12)
	assert.InDelta(t, -0.5, b.MinY, 1e-12)
	assert.InDelta(t, 5.5, b.MaxY, 1e-12)

	flat := BoundsOf([]Point{{2, 2}}, 0)
	assert.Equal(t, Bounds{1.5, 2.5, 1.5, 2.5}, flat)

	u := flat.Union(Bounds{0, 1, 0, 1})
	assert.Equal(t, Bounds{0, 2.5, 0, 2.5}, u)
}
