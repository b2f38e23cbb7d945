package ba

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"

	"lensblur/maths"
	"lensblur/track"
	"lensblur/types"
)

// Phase 求解器状态
type Phase int

const (
	PhaseReady   Phase = iota // 可以开始下一步
	PhaseSolving              // 正在装配和求解
	PhaseApplied              // 增量已写入缓存，等待误差判定
	PhaseFailed               // 线性求解失败，参数与阻尼未改变
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseSolving:
		return "solving"
	case PhaseApplied:
		return "applied"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// StepResult 单步结果
type StepResult struct {
	Iteration     int     `json:"iteration"`
	Error         float64 `json:"error"`          // 本步之后的误差
	PreviousError float64 `json:"previous_error"` // 本步之前的误差
	Damping       float64 `json:"damping"`        // 本步之后的阻尼因子
	Improved      bool    `json:"improved"`
	Reverted      bool    `json:"reverted"`
	Degenerate    bool    `json:"degenerate"`
}

// Solver 阻尼高斯-牛顿光束法平差求解器
// 单线程使用，不可并发调用。
type Solver struct {
	corr   *track.Correspondence
	layout Layout
	state  *State
	normal *normal
	delta  maths.Vector
	rhs    maths.Vector

	diff   Differentiator
	linear maths.LinearSolver
	logger *slog.Logger

	seed      int64
	scale     float64
	depthMin  float64
	depthMax  float64
	jitter    float64
	minPoints int

	damping float64
	mode    DampingMode
	policy  StepPolicy

	phase        Phase
	initialized  bool
	iteration    int
	err          float64
	initialError float64
}

// NewSolver 由观测集合创建求解器
func NewSolver(corr *track.Correspondence, opts ...Option) (*Solver, error) {
	if corr == nil {
		return nil, fmt.Errorf("new solver: nil correspondence: %w", types.ErrInvalidInput)
	}
	if corr.Cameras() == 0 || corr.Points() == 0 {
		return nil, fmt.Errorf("new solver: %d cameras x %d points: %w", corr.Cameras(), corr.Points(), types.ErrInvalidInput)
	}
	s := &Solver{
		corr:      corr,
		diff:      AnalyticDifferentiator{},
		linear:    maths.NewGonumSolver(),
		logger:    slog.Default(),
		scale:     1,
		depthMin:  types.DefaultDepthMin,
		depthMax:  types.DefaultDepthMax,
		jitter:    types.DefaultTranslationJitter,
		minPoints: types.DefaultMinPoints,
		damping:   types.DefaultInitialDamping,
		mode:      DampingMultiplicative,
		policy:    StepKeep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	s.layout = NewLayout(corr.Cameras(), corr.Points())
	if 2*s.layout.Cameras*s.layout.Points < s.layout.Size() || s.layout.Points < s.minPoints {
		return nil, fmt.Errorf("new solver: %d cameras x %d points for %d unknowns: %w",
			s.layout.Cameras, s.layout.Points, s.layout.Size(), types.ErrFewFeatures)
	}
	s.state = newState(s.layout)
	s.normal = newNormal(s.layout)
	s.delta = maths.NewDenseVector(s.layout.Size())
	s.rhs = maths.NewDenseVector(s.layout.Size())
	return s, nil
}

func (s *Solver) validate() error {
	switch {
	case !(s.scale > 0) || math.IsInf(s.scale, 0):
		return fmt.Errorf("new solver: scale %v: %w", s.scale, types.ErrInvalidInput)
	case !(s.depthMin > 0) || s.depthMax < s.depthMin || math.IsInf(s.depthMax, 0):
		return fmt.Errorf("new solver: depth range [%v,%v]: %w", s.depthMin, s.depthMax, types.ErrInvalidInput)
	case s.jitter < 0 || math.IsInf(s.jitter, 0) || math.IsNaN(s.jitter):
		return fmt.Errorf("new solver: jitter %v: %w", s.jitter, types.ErrInvalidInput)
	case !validDamping(s.damping):
		return fmt.Errorf("new solver: damping %v: %w", s.damping, types.ErrInvalidInput)
	case s.mode != DampingMultiplicative && s.mode != DampingMarquardt:
		return fmt.Errorf("new solver: damping mode %d: %w", s.mode, types.ErrInvalidInput)
	case s.policy != StepKeep && s.policy != StepRevert:
		return fmt.Errorf("new solver: step policy %d: %w", s.policy, types.ErrInvalidInput)
	}
	return nil
}

func validDamping(c float64) bool { return c > 0 && !math.IsInf(c, 0) }

// Initialize 初始化参数状态并计算初始误差
// 平移取 [-J, J] 均匀抖动，姿态为 0，特征点取第一帧观测射线与 [Dmin, Dmax] 均匀深度。
func (s *Solver) Initialize() error {
	rng := rand.New(rand.NewSource(s.seed))
	jitter := s.jitter * s.scale
	for i := 0; i < s.layout.Cameras; i++ {
		s.state.setTranslation(i, r3.Vector{
			X: (2*rng.Float64() - 1) * jitter,
			Y: (2*rng.Float64() - 1) * jitter,
			Z: (2*rng.Float64() - 1) * jitter,
		})
		s.state.setPose(i, r3.Vector{})
	}
	lo, hi := s.depthMin*s.scale, s.depthMax*s.scale
	for j := 0; j < s.layout.Points; j++ {
		obs := s.corr.At(0, j)
		depth := lo + rng.Float64()*(hi-lo)
		s.state.setPoint(j, r3.Vector{X: obs.X, Y: obs.Y, Z: 1 / depth})
	}
	s.state.commit()

	e, ok := evaluate(s.state, s.corr)
	if !ok {
		return fmt.Errorf("initialize: initial error %v: %w", e, types.ErrInvalidInput)
	}
	s.err, s.initialError = e, e
	s.iteration = 0
	s.phase = PhaseReady
	s.initialized = true
	s.logger.Debug("bundle adjustment initialized",
		"cameras", s.layout.Cameras,
		"points", s.layout.Points,
		"unknowns", s.layout.Size(),
		"error", e,
		"damping", s.damping,
		"seed", s.seed)
	return nil
}

// Step 执行一步阻尼求解
// 线性求解失败时返回 ErrBundleAdjustmentFailed，参数与阻尼保持不变。
func (s *Solver) Step() (StepResult, error) {
	if !s.initialized {
		return StepResult{}, fmt.Errorf("step before initialize: %w", types.ErrInvalidInput)
	}
	s.phase = PhaseSolving
	before := s.normal.assemble(s.state, s.corr, s.diff)
	s.applyDamping()
	for k := 0; k < s.layout.Size(); k++ {
		s.rhs.Set(k, -s.normal.gradient.Get(k))
	}
	if err := s.linear.Solve(s.normal.hessian, s.rhs, s.delta); err != nil {
		s.phase = PhaseFailed
		s.logger.Warn("bundle adjustment step failed",
			"iteration", s.iteration+1, "damping", s.damping, "solver", s.linear.Name(), "err", err)
		return StepResult{
			Iteration:     s.iteration + 1,
			Error:         s.err,
			PreviousError: s.err,
			Damping:       s.damping,
		}, fmt.Errorf("step %d: %w: %w", s.iteration+1, types.ErrBundleAdjustmentFailed, err)
	}

	for k := 0; k < s.layout.Size(); k++ {
		s.state.increment(Index(k), s.delta.Get(k))
	}
	s.phase = PhaseApplied

	res := StepResult{Iteration: s.iteration + 1, PreviousError: before}
	after, ok := evaluate(s.state, s.corr)
	switch {
	case !ok:
		s.state.rollback()
		s.damping *= types.DampingScale
		res.Error, res.Reverted, res.Degenerate = before, true, true
	case after < before:
		s.state.commit()
		s.damping /= types.DampingScale
		res.Error, res.Improved = after, true
	default:
		s.damping *= types.DampingScale
		if s.policy == StepRevert {
			s.state.rollback()
			res.Error, res.Reverted = before, true
		} else {
			s.state.commit()
			res.Error = after
		}
	}
	res.Damping = s.damping
	s.err = res.Error
	s.iteration++
	s.phase = PhaseReady

	if res.Degenerate {
		s.logger.Warn("degenerate update rolled back", "iteration", res.Iteration, "damping", res.Damping)
	}
	s.logger.Debug("bundle adjustment step",
		"iteration", res.Iteration,
		"error", res.Error,
		"damping", res.Damping,
		"improved", res.Improved)
	return res, nil
}

func (s *Solver) applyDamping() {
	h := s.normal.hessian
	for k := 0; k < s.layout.Size(); k++ {
		d := h.Get(k, k)
		switch s.mode {
		case DampingMarquardt:
			h.Set(k, k, d*(1+s.damping))
		default:
			h.Set(k, k, d*s.damping)
		}
	}
}

// SetDamping 设置阻尼因子，可用于求解失败后重试
func (s *Solver) SetDamping(c float64) error {
	if !validDamping(c) {
		return fmt.Errorf("set damping %v: %w", c, types.ErrInvalidInput)
	}
	s.damping = c
	if s.phase == PhaseFailed {
		s.phase = PhaseReady
	}
	return nil
}

// Damping 当前阻尼因子
func (s *Solver) Damping() float64 { return s.damping }

// Error 当前总误差
func (s *Solver) Error() float64 { return s.err }

// InitialError 初始化后的总误差
func (s *Solver) InitialError() float64 { return s.initialError }

// Iteration 已完成的步数
func (s *Solver) Iteration() int { return s.iteration }

// Phase 当前状态
func (s *Solver) Phase() Phase { return s.phase }

// Layout 参数布局
func (s *Solver) Layout() Layout { return s.layout }

// State 参数状态（只读使用）
func (s *Solver) State() *State { return s.state }

// Correspondence 观测集合
func (s *Solver) Correspondence() *track.Correspondence { return s.corr }

// Mode 阻尼方式
func (s *Solver) Mode() DampingMode { return s.mode }

// Policy 误差变差时的处理方式
func (s *Solver) Policy() StepPolicy { return s.policy }

// Camera 相机位姿
type Camera struct {
	Translation r3.Vector
	Pose        r3.Vector
}

// Cameras 全部相机位姿
func (s *Solver) Cameras() []Camera {
	out := make([]Camera, s.layout.Cameras)
	for i := range out {
		out[i] = Camera{Translation: s.state.Translation(i), Pose: s.state.Pose(i)}
	}
	return out
}

// Points 全部特征点的世界坐标
func (s *Solver) Points() []r3.Vector {
	out := make([]r3.Vector, s.layout.Points)
	for j := range out {
		out[j] = s.state.World(j)
	}
	return out
}
