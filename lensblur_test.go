package lensblur

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lensblur/ba"
	"lensblur/synth"
	"lensblur/track"
	"lensblur/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func sceneTracks(t *testing.T, lost float64) *track.Tracks {
	t.Helper()
	opt := synth.DefaultOptions()
	opt.Lost = lost
	scene, err := synth.Generate(opt)
	require.NoError(t, err)
	return scene.Tracks(track.DefaultNormalization())
}

func newEstimator(opts ...Option) *Estimator {
	base := []Option{
		WithLogger(quiet),
		WithStop(ba.Stop{MaxSteps: 50, TargetRatio: 1e-4, MaxFailures: 5}),
		WithSolverOptions(
			ba.WithSeed(7),
			ba.WithDamping(types.DefaultInitialDamping, ba.DampingMarquardt),
			ba.WithPolicy(ba.StepRevert)),
	}
	return New(append(base, opts...)...)
}

func TestEstimateTracks(t *testing.T) {
	e := newEstimator()
	res, err := e.EstimateTracks(sceneTracks(t, 0))
	require.NoError(t, err)
	assert.Len(t, res.Cameras, 3)
	assert.Len(t, res.Points, 50)
	assert.Equal(t, 1.0, res.Survival)
	assert.Less(t, res.Report.Ratio(), 1e-3)
	assert.NotEqual(t, uuid.Nil, res.RunID)
	assert.False(t, e.Running())

	r, err := res.Export(0.1)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, r.RunID)
	assert.Equal(t, 50, r.Points)
}

func TestEstimateDropsLostPoints(t *testing.T) {
	tracks := sceneTracks(t, 0.1)
	mask, err := tracks.Mask()
	require.NoError(t, err)
	kept := 0
	for _, ok := range mask {
		if ok {
			kept++
		}
	}
	res, err := newEstimator().EstimateTracks(tracks)
	if kept*6 < 3*6+kept*3 {
		require.ErrorIs(t, err, types.ErrFewFeatures)
		return
	}
	require.NoError(t, err)
	assert.Len(t, res.Points, kept)
	assert.Len(t, res.IDs, kept)
	for k, id := range res.IDs {
		assert.True(t, mask[id], "point %d (id %d) was lost", k, id)
	}
}

func TestEstimateRunIDsDiffer(t *testing.T) {
	e := newEstimator(WithStop(ba.Stop{MaxSteps: 1}))
	a, err := e.EstimateTracks(sceneTracks(t, 0))
	require.NoError(t, err)
	b, err := e.EstimateTracks(sceneTracks(t, 0))
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestEstimateAlreadyRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	first := true
	e := newEstimator(
		WithStop(ba.Stop{MaxSteps: 2}),
		WithObserver(func(ba.StepResult) bool {
			if first {
				first = false
				close(started)
				<-release
			}
			return true
		}))

	tracks := sceneTracks(t, 0)
	done := make(chan error, 1)
	go func() {
		_, err := e.EstimateTracks(tracks)
		done <- err
	}()
	<-started
	assert.True(t, e.Running())
	_, err := e.EstimateTracks(tracks)
	require.ErrorIs(t, err, types.ErrAlreadyRunning)
	_, err = e.Estimate(nil)
	require.Error(t, err)
	close(release)
	require.NoError(t, <-done)
	assert.False(t, e.Running())
}

func TestEstimateWithTracker(t *testing.T) {
	tracks := sceneTracks(t, 0)
	e := newEstimator(WithTracker(track.Recorded{Tracks: tracks}), WithStop(ba.Stop{MaxSteps: 2}))
	frames := make([]image.Image, len(tracks.Frames))
	res, err := e.Estimate(frames)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Report.Steps)

	_, err = e.Estimate(make([]image.Image, 1))
	require.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = newEstimator().Estimate(frames)
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

type brokenTracker struct{}

func (brokenTracker) Track([]image.Image) (*track.Tracks, error) { return nil, errors.New("camera unplugged") }

func TestEstimateTrackerError(t *testing.T) {
	_, err := newEstimator(WithTracker(brokenTracker{})).Estimate(nil)
	require.EqualError(t, err, "track 0 frames: camera unplugged")
}

func TestEstimateSingleFrame(t *testing.T) {
	tracks := sceneTracks(t, 0)
	tracks.Frames = tracks.Frames[:1]
	_, err := newEstimator().EstimateTracks(tracks)
	require.ErrorIs(t, err, types.ErrFewFeatures)
}

func TestEstimateObserverAbort(t *testing.T) {
	e := newEstimator(WithObserver(func(ba.StepResult) bool { return false }))
	res, err := e.EstimateTracks(sceneTracks(t, 0))
	require.NoError(t, err)
	assert.Equal(t, ba.ReasonAborted, res.Report.Reason)
	assert.Equal(t, 1, res.Report.Steps)
}
