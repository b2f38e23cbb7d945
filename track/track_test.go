package track

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lensblur/types"
)

func gridTracks(frames, points int) *Tracks {
	t := &Tracks{Frames: make([]Frame, frames)}
	for i := range t.Frames {
		t.Frames[i].Points = make([]r2.Point, points)
		for j := range t.Frames[i].Points {
			t.Frames[i].Points[j] = r2.Point{X: float64(10*j + i), Y: float64(20*j - i)}
		}
	}
	return t
}

func TestFilterDropsPointsLostInAnyFrame(t *testing.T) {
	tr := gridTracks(4, 10)
	last := &tr.Frames[3]
	last.Status = make([]bool, 10)
	for j := range last.Status {
		last.Status[j] = true
	}
	last.Status[1], last.Status[4], last.Status[8] = false, false, false

	corr, err := Filter(tr, DefaultNormalization())
	require.NoError(t, err)
	assert.Equal(t, 4, corr.Cameras())
	assert.Equal(t, 7, corr.Points())

	want := []int{0, 2, 3, 5, 6, 7, 9}
	for k, id := range want {
		assert.Equal(t, id, corr.ID(k))
	}
	assert.InDelta(t, 0.7, tr.Survival(), 1e-12)
}

func TestFilterKeepsOnlyPointsVisibleEverywhere(t *testing.T) {
	tr := gridTracks(3, 3)
	tr.Frames[0].Status = []bool{true, false, true}
	tr.Frames[2].Status = []bool{true, true, false}

	corr, err := Filter(tr, DefaultNormalization())
	require.NoError(t, err)
	require.Equal(t, 1, corr.Points())
	assert.Equal(t, 0, corr.ID(0))
}

func TestFilterNormalizes(t *testing.T) {
	tr := &Tracks{Frames: []Frame{
		{Points: []r2.Point{{X: 256, Y: 256}, {X: 512, Y: 0}}},
		{Points: []r2.Point{{X: 0, Y: 512}, {X: 384, Y: 128}}},
	}}
	corr, err := Filter(tr, DefaultNormalization())
	require.NoError(t, err)
	assert.Equal(t, r2.Point{X: 0, Y: 0}, corr.At(0, 0))
	assert.Equal(t, r2.Point{X: 1, Y: -1}, corr.At(0, 1))
	assert.Equal(t, r2.Point{X: -1, Y: 1}, corr.At(1, 0))
	assert.Equal(t, r2.Point{X: 0.5, Y: -0.5}, corr.At(1, 1))
}

func TestNormalizationRoundTrip(t *testing.T) {
	n := Normalization{Width: 640, Height: 480}
	p := r2.Point{X: 17.5, Y: 401}
	q := n.Denormalize(n.Normalize(p))
	assert.InDelta(t, p.X, q.X, 1e-9)
	assert.InDelta(t, p.Y, q.Y, 1e-9)

	c := n.Normalize(r2.Point{X: 320, Y: 240})
	assert.Equal(t, r2.Point{}, c)
	// s = max(W, H) / 2
	assert.InDelta(t, 1.0, n.Normalize(r2.Point{X: 640, Y: 240}).X, 1e-12)
}

func TestFilterInvalidInput(t *testing.T) {
	cases := map[string]struct {
		tracks *Tracks
		norm   Normalization
	}{
		"nil":         {nil, DefaultNormalization()},
		"no frames":   {&Tracks{}, DefaultNormalization()},
		"bad norm":    {gridTracks(2, 2), Normalization{}},
		"count":       {&Tracks{Frames: []Frame{{Points: make([]r2.Point, 2)}, {Points: make([]r2.Point, 3)}}}, DefaultNormalization()},
		"status size": {&Tracks{Frames: []Frame{{Points: make([]r2.Point, 2), Status: []bool{true}}}}, DefaultNormalization()},
		"all lost":    {&Tracks{Frames: []Frame{{Points: make([]r2.Point, 2), Status: []bool{false, false}}}}, DefaultNormalization()},
		"not finite":  {&Tracks{Frames: []Frame{{Points: []r2.Point{{X: math.NaN()}}}}}, DefaultNormalization()},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Filter(tc.tracks, tc.norm)
			require.ErrorIs(t, err, types.ErrInvalidInput)
		})
	}
}

func TestNewCorrespondence(t *testing.T) {
	corr, err := NewCorrespondence([][]r2.Point{{{X: 0.1}, {Y: 0.2}}, {{X: 0.3}, {Y: 0.4}}})
	require.NoError(t, err)
	assert.Equal(t, 2, corr.Cameras())
	assert.Equal(t, 2, corr.Points())
	assert.Equal(t, 1, corr.ID(1))

	var empty Correspondence
	assert.Equal(t, 0, empty.Cameras())
	assert.Equal(t, 0, empty.Points())

	_, err = NewCorrespondence(nil)
	require.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = NewCorrespondence([][]r2.Point{{{}}, {}})
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestRecorded(t *testing.T) {
	tr := gridTracks(3, 4)
	got, err := Recorded{Tracks: tr}.Track(nil)
	require.NoError(t, err)
	assert.Same(t, tr, got)

	_, err = Recorded{}.Track(nil)
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestSaveLoad(t *testing.T) {
	tr := gridTracks(2, 3)
	tr.Frames[1].Status = []bool{true, false, true}
	path := filepath.Join(t.TempDir(), "tracks.yaml")
	require.NoError(t, Save(path, tr))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tr, got)
}

func TestLoadJSON(t *testing.T) {
	got, err := Load(filepath.Join("testdata", "tracks.json"))
	require.NoError(t, err)
	require.Len(t, got.Frames, 2)
	assert.Equal(t, r2.Point{X: 12, Y: 40.5}, got.Frames[1].Points[0])
	assert.Equal(t, []bool{true, false}, got.Frames[1].Status)
	assert.InDelta(t, 0.5, got.Survival(), 1e-12)
}

func TestVisibility(t *testing.T) {
	v := NewVisibility(70)
	assert.Equal(t, 70, v.Count())
	assert.False(t, v.Get(70))
	assert.False(t, v.Get(-1))

	v.And([]bool{true, false, true})
	v.Clear(65)
	v.Clear(65)
	v.Clear(100)
	assert.Equal(t, 68, v.Count())
	assert.False(t, v.Get(1))
	assert.False(t, v.Get(65))
	assert.True(t, v.Get(69))

	b := v.Bools()
	require.Len(t, b, 70)
	assert.False(t, b[1])
	assert.True(t, b[64])

	assert.Equal(t, 0, NewVisibility(0).Count())
	assert.Equal(t, 64, NewVisibility(64).Count())
}
