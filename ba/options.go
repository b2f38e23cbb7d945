package ba

import (
	"log/slog"

	"lensblur/maths"
)

// DampingMode 对角阻尼方式
type DampingMode int

const (
	// DampingMultiplicative H_kk ← c·H_kk
	DampingMultiplicative DampingMode = iota
	// DampingMarquardt H_kk ← (1+c)·H_kk
	DampingMarquardt
)

func (m DampingMode) String() string {
	switch m {
	case DampingMultiplicative:
		return "multiplicative"
	case DampingMarquardt:
		return "marquardt"
	}
	return "unknown"
}

// StepPolicy 误差变差时的处理方式
type StepPolicy int

const (
	// StepKeep 保留变差的参数，仅增大阻尼
	StepKeep StepPolicy = iota
	// StepRevert 回溯到上一步参数并增大阻尼
	StepRevert
)

func (p StepPolicy) String() string {
	switch p {
	case StepKeep:
		return "keep"
	case StepRevert:
		return "revert"
	}
	return "unknown"
}

// Option 求解器选项
type Option func(*Solver)

// WithSeed 初始化随机源种子
func WithSeed(seed int64) Option { return func(s *Solver) { s.seed = seed } }

// WithLogger 日志
func WithLogger(logger *slog.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScale 场景尺度，缩放初始深度区间与平移抖动
func WithScale(scale float64) Option { return func(s *Solver) { s.scale = scale } }

// WithDepthRange 初始深度区间
func WithDepthRange(min, max float64) Option {
	return func(s *Solver) { s.depthMin, s.depthMax = min, max }
}

// WithJitter 初始平移抖动幅度
func WithJitter(j float64) Option { return func(s *Solver) { s.jitter = j } }

// WithDamping 初始阻尼与阻尼方式
func WithDamping(c float64, mode DampingMode) Option {
	return func(s *Solver) { s.damping, s.mode = c, mode }
}

// WithPolicy 误差变差时的处理方式
func WithPolicy(p StepPolicy) Option { return func(s *Solver) { s.policy = p } }

// WithDifferentiator 微分方式
func WithDifferentiator(d Differentiator) Option {
	return func(s *Solver) {
		if d != nil {
			s.diff = d
		}
	}
}

// WithLinearSolver 线性方程组求解器
func WithLinearSolver(ls maths.LinearSolver) Option {
	return func(s *Solver) {
		if ls != nil {
			s.linear = ls
		}
	}
}

// WithMinPoints 最少特征点数
func WithMinPoints(n int) Option { return func(s *Solver) { s.minPoints = n } }
