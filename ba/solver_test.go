package ba

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lensblur/maths"
	"lensblur/track"
	"lensblur/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// sceneCorrespondence 由已知相机与点生成无噪声观测
func sceneCorrespondence(t *testing.T, cams []Camera, points []r3.Vector) *track.Correspondence {
	t.Helper()
	obs := make([][]r2.Point, len(cams))
	for i, c := range cams {
		obs[i] = make([]r2.Point, len(points))
		for j, p := range points {
			h := Reproject(c.Translation, c.Pose, Encode(p))
			obs[i][j] = r2.Point{X: h.X, Y: h.Y}
		}
	}
	corr, err := track.NewCorrespondence(obs)
	require.NoError(t, err)
	return corr
}

func smallScene(t *testing.T) *track.Correspondence {
	cams := []Camera{
		{},
		{Translation: r3.Vector{X: 0.2, Y: -0.05, Z: 0.03}, Pose: r3.Vector{X: 0.02, Y: -0.03, Z: 0.01}},
		{Translation: r3.Vector{X: -0.1, Y: 0.15, Z: -0.02}, Pose: r3.Vector{X: -0.01, Y: 0.02, Z: 0.04}},
	}
	var points []r3.Vector
	for j := 0; j < 12; j++ {
		d := 2 + float64(j%5)*0.4
		u := -0.4 + 0.07*float64(j)
		v := 0.3 - 0.05*float64(j)
		points = append(points, r3.Vector{X: u * d, Y: v * d, Z: d})
	}
	return sceneCorrespondence(t, cams, points)
}

func TestInitializeFinite(t *testing.T) {
	s, err := NewSolver(smallScene(t), WithSeed(3), WithLogger(quiet))
	require.NoError(t, err)
	require.NoError(t, s.Initialize())

	for k, v := range s.State().Vector() {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "param %d = %v", k, v)
	}
	l := s.Layout()
	for i := 0; i < l.Cameras; i++ {
		tr := s.State().Translation(i)
		assert.LessOrEqual(t, math.Abs(tr.X), types.DefaultTranslationJitter)
		assert.LessOrEqual(t, math.Abs(tr.Y), types.DefaultTranslationJitter)
		assert.LessOrEqual(t, math.Abs(tr.Z), types.DefaultTranslationJitter)
		assert.Equal(t, r3.Vector{}, s.State().Pose(i))
	}
	for j := 0; j < l.Points; j++ {
		p := s.State().Point(j)
		obs := s.Correspondence().At(0, j)
		assert.Equal(t, obs.X, p.X)
		assert.Equal(t, obs.Y, p.Y)
		depth := 1 / p.Z
		assert.GreaterOrEqual(t, depth, types.DefaultDepthMin-1e-12)
		assert.LessOrEqual(t, depth, types.DefaultDepthMax+1e-12)
	}
	assert.True(t, s.Error() > 0 && !math.IsInf(s.Error(), 0))
	assert.Equal(t, s.Error(), s.InitialError())
	assert.Equal(t, PhaseReady, s.Phase())
}

func TestInitializeScale(t *testing.T) {
	s, err := NewSolver(smallScene(t), WithSeed(3), WithScale(10), WithLogger(quiet))
	require.NoError(t, err)
	require.NoError(t, s.Initialize())
	for j := 0; j < s.Layout().Points; j++ {
		depth := s.State().World(j).Z
		assert.GreaterOrEqual(t, depth, 20-1e-9)
		assert.LessOrEqual(t, depth, 40+1e-9)
	}
}

func TestSingleCameraFewFeatures(t *testing.T) {
	corr, err := track.NewCorrespondence([][]r2.Point{{{X: 0.1}, {X: 0.2, Y: 0.1}, {Y: -0.3}, {X: 0.4}}})
	require.NoError(t, err)
	_, err = NewSolver(corr)
	require.ErrorIs(t, err, types.ErrFewFeatures)
}

func TestMinPointsFewFeatures(t *testing.T) {
	_, err := NewSolver(smallScene(t), WithMinPoints(20))
	require.ErrorIs(t, err, types.ErrFewFeatures)
}

func TestNewSolverInvalidOptions(t *testing.T) {
	corr := smallScene(t)
	for name, opt := range map[string]Option{
		"scale":   WithScale(0),
		"depth":   WithDepthRange(3, 2),
		"jitter":  WithJitter(-1),
		"damping": WithDamping(0, DampingMarquardt),
		"mode":    WithDamping(1e-3, DampingMode(7)),
		"policy":  WithPolicy(StepPolicy(3)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewSolver(corr, opt)
			require.ErrorIs(t, err, types.ErrInvalidInput)
		})
	}
	_, err := NewSolver(nil)
	require.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = NewSolver(&track.Correspondence{})
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestStepBeforeInitialize(t *testing.T) {
	s, err := NewSolver(smallScene(t), WithLogger(quiet))
	require.NoError(t, err)
	_, err = s.Step()
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestStepDampingMoves(t *testing.T) {
	s, err := NewSolver(smallScene(t),
		WithSeed(5),
		WithLogger(quiet),
		WithDamping(types.DefaultInitialDamping, DampingMarquardt))
	require.NoError(t, err)
	require.NoError(t, s.Initialize())

	for n := 0; n < 6; n++ {
		prev := s.Damping()
		res, err := s.Step()
		require.NoError(t, err)
		assert.Equal(t, n+1, res.Iteration)
		assert.False(t, math.IsNaN(res.Error) || math.IsInf(res.Error, 0))
		if res.Improved {
			assert.Equal(t, prev/10, res.Damping)
			assert.Less(t, res.Error, res.PreviousError)
		} else {
			assert.Equal(t, prev*10, res.Damping)
		}
		assert.Equal(t, res.Damping, s.Damping())
		assert.Equal(t, res.Error, s.Error())
		assert.Equal(t, PhaseReady, s.Phase())
	}
}

func TestStepMultiplicativeDamping(t *testing.T) {
	s, err := NewSolver(smallScene(t), WithSeed(5), WithLogger(quiet))
	require.NoError(t, err)
	require.NoError(t, s.Initialize())

	for n := 0; n < 4; n++ {
		prev := s.Damping()
		res, err := s.Step()
		if err != nil {
			require.ErrorIs(t, err, types.ErrBundleAdjustmentFailed)
			assert.Equal(t, prev, s.Damping())
			require.NoError(t, s.SetDamping(prev*10))
			continue
		}
		assert.False(t, math.IsNaN(s.Error()) || math.IsInf(s.Error(), 0))
		if res.Improved {
			assert.Equal(t, prev/10, res.Damping)
		} else {
			assert.Equal(t, prev*10, res.Damping)
		}
		if !res.Degenerate && !res.Improved {
			// 默认策略保留变差的参数
			assert.False(t, res.Reverted)
			assert.GreaterOrEqual(t, res.Error, res.PreviousError)
		}
	}
}

func TestStepRevertPolicy(t *testing.T) {
	s, err := NewSolver(smallScene(t),
		WithSeed(5),
		WithLogger(quiet),
		WithPolicy(StepRevert),
		WithDamping(types.DefaultInitialDamping, DampingMarquardt))
	require.NoError(t, err)
	require.NoError(t, s.Initialize())

	last := s.Error()
	for n := 0; n < 10; n++ {
		before := s.State().Vector()
		res, err := s.Step()
		require.NoError(t, err)
		// 回溯策略下误差单调不增
		assert.LessOrEqual(t, res.Error, last)
		if res.Reverted {
			assert.Equal(t, before, s.State().Vector())
		}
		last = res.Error
	}
}

func TestSeedDeterminism(t *testing.T) {
	run := func() ([]float64, []StepResult) {
		s, err := NewSolver(smallScene(t),
			WithSeed(42),
			WithLogger(quiet),
			WithDamping(types.DefaultInitialDamping, DampingMarquardt))
		require.NoError(t, err)
		require.NoError(t, s.Initialize())
		var results []StepResult
		for n := 0; n < 5; n++ {
			res, err := s.Step()
			require.NoError(t, err)
			results = append(results, res)
		}
		return s.State().Vector(), results
	}
	p1, r1 := run()
	p2, r2 := run()
	assert.Equal(t, p1, p2)
	assert.Equal(t, r1, r2)

	a, err := NewSolver(smallScene(t), WithSeed(1), WithLogger(quiet))
	require.NoError(t, err)
	require.NoError(t, a.Initialize())
	b, err := NewSolver(smallScene(t), WithSeed(2), WithLogger(quiet))
	require.NoError(t, err)
	require.NoError(t, b.Initialize())
	assert.NotEqual(t, a.State().Vector(), b.State().Vector())
}

type failingSolver struct{}

func (failingSolver) Solve(maths.Matrix, maths.Vector, maths.Vector) error { return maths.ErrSingular }
func (failingSolver) Name() string                                        { return "failing" }

func TestStepSolveFailure(t *testing.T) {
	s, err := NewSolver(smallScene(t), WithLogger(quiet), WithLinearSolver(failingSolver{}))
	require.NoError(t, err)
	require.NoError(t, s.Initialize())
	before := s.State().Vector()
	errBefore := s.Error()

	_, err = s.Step()
	require.ErrorIs(t, err, types.ErrBundleAdjustmentFailed)
	require.ErrorIs(t, err, maths.ErrSingular)
	assert.Equal(t, PhaseFailed, s.Phase())
	assert.Equal(t, types.DefaultInitialDamping, s.Damping())
	assert.Equal(t, before, s.State().Vector())
	assert.Equal(t, errBefore, s.Error())
	assert.Equal(t, 0, s.Iteration())

	require.NoError(t, s.SetDamping(1))
	assert.Equal(t, PhaseReady, s.Phase())
	assert.Equal(t, 1.0, s.Damping())
	require.ErrorIs(t, s.SetDamping(-1), types.ErrInvalidInput)
	require.ErrorIs(t, s.SetDamping(math.Inf(1)), types.ErrInvalidInput)
}

func TestEvaluateDegenerate(t *testing.T) {
	s, err := NewSolver(smallScene(t), WithSeed(1), WithLogger(quiet))
	require.NoError(t, err)
	require.NoError(t, s.Initialize())

	_, ok := evaluate(s.State(), s.Correspondence())
	require.True(t, ok)

	// 逆深度非正
	k := s.Layout().Point(PointInvDepth, 2)
	s.State().set(k, -0.1)
	_, ok = evaluate(s.State(), s.Correspondence())
	assert.False(t, ok)
	s.State().rollback()

	// 点位于相机后方
	s.State().set(s.Layout().Camera(TransZ, 1), -10)
	_, ok = evaluate(s.State(), s.Correspondence())
	assert.False(t, ok)
	s.State().rollback()

	e, ok := evaluate(s.State(), s.Correspondence())
	require.True(t, ok)
	assert.Equal(t, s.Error(), e)
}

func TestLinearSolversAgree(t *testing.T) {
	step := func(ls maths.LinearSolver) []float64 {
		s, err := NewSolver(smallScene(t),
			WithSeed(9),
			WithLogger(quiet),
			WithLinearSolver(ls),
			WithDamping(1, DampingMarquardt))
		require.NoError(t, err)
		require.NoError(t, s.Initialize())
		_, err = s.Step()
		require.NoError(t, err)
		return s.State().Vector()
	}
	a := step(maths.NewGonumSolver())
	b := step(maths.NewLUSolver())
	require.Len(t, b, len(a))
	for k := range a {
		assert.InDelta(t, a[k], b[k], 1e-8, "param %d", k)
	}
}
