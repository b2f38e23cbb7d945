package ba

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutBijective(t *testing.T) {
	l := NewLayout(3, 5)
	require.Equal(t, 6*3+3*5, l.Size())

	seen := make(map[Index]bool)
	for p := TransX; p <= PoseZ; p++ {
		for i := 0; i < l.Cameras; i++ {
			k := l.Camera(p, i)
			assert.False(t, seen[k], "duplicate index %d", k)
			seen[k] = true
			gp, gi := l.Locate(k)
			assert.Equal(t, p, gp)
			assert.Equal(t, i, gi)
		}
	}
	for p := PointA; p <= PointInvDepth; p++ {
		for j := 0; j < l.Points; j++ {
			k := l.Point(p, j)
			assert.False(t, seen[k], "duplicate index %d", k)
			seen[k] = true
			gp, gj := l.Locate(k)
			assert.Equal(t, p, gp)
			assert.Equal(t, j, gj)
		}
	}
	assert.Len(t, seen, l.Size())
}

func TestLayoutGrouping(t *testing.T) {
	l := NewLayout(2, 4)
	// tx[2] ty[2] tz[2] ω[2] φ[2] κ[2] a[4] b[4] ρ[4]
	assert.Equal(t, Index(1), l.Camera(TransX, 1))
	assert.Equal(t, Index(4), l.Camera(TransZ, 0))
	assert.Equal(t, Index(11), l.Camera(PoseZ, 1))
	assert.Equal(t, Index(12), l.Point(PointA, 0))
	assert.Equal(t, Index(17), l.Point(PointB, 1))
	assert.Equal(t, Index(23), l.Point(PointInvDepth, 3))

	local := l.Local(1, 2)
	assert.Equal(t, [9]Index{1, 3, 5, 7, 9, 11, 14, 18, 22}, local)
}

func TestLayoutBounds(t *testing.T) {
	l := NewLayout(2, 4)
	assert.Panics(t, func() { l.Camera(TransX, 2) })
	assert.Panics(t, func() { l.Camera(PointA, 0) })
	assert.Panics(t, func() { l.Point(PointA, -1) })
	assert.Panics(t, func() { l.Point(PoseX, 0) })
	assert.Panics(t, func() { l.Locate(Index(l.Size())) })
	assert.Panics(t, func() { NewLayout(-1, 2) })
}

func TestParamString(t *testing.T) {
	assert.Equal(t, "tz", TransZ.String())
	assert.Equal(t, "rho", PointInvDepth.String())
	assert.Equal(t, "Param(12)", Param(12).String())
	assert.True(t, PoseY.IsCamera())
	assert.True(t, PointB.IsPoint())
}
