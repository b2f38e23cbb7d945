package ba

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"lensblur/types"
)

// Reason 停止原因
type Reason string

const (
	ReasonMaxSteps  Reason = "max_steps"  // 达到步数上限
	ReasonConverged Reason = "converged"  // 相对误差变化小于阈值
	ReasonTarget    Reason = "target"     // 误差比例达到目标
	ReasonDamping   Reason = "damping"    // 阻尼因子超过上限
	ReasonAborted   Reason = "aborted"    // 观察者中止
	ReasonFailed    Reason = "failed"     // 线性求解失败
)

// Stop 停止策略
// MaxSteps 必须为正；其余条件为 0 时不启用。
type Stop struct {
	MaxSteps    int     `yaml:"max_steps" validate:"gt=0"`
	RelativeTol float64 `yaml:"relative_tol" validate:"gte=0"`
	TargetRatio float64 `yaml:"target_ratio" validate:"gte=0,lt=1"`
	MaxDamping  float64 `yaml:"max_damping" validate:"gte=0"`
	// MaxFailures 连续求解失败的容忍次数，失败后阻尼放大 10 倍重试
	MaxFailures int `yaml:"max_failures" validate:"gte=0"`
}

func (s Stop) validate() error {
	if s == (Stop{}) {
		return fmt.Errorf("stop policy is empty: %w", types.ErrInvalidInput)
	}
	if s.MaxSteps <= 0 {
		return fmt.Errorf("stop policy: max steps %d: %w", s.MaxSteps, types.ErrInvalidInput)
	}
	if s.RelativeTol < 0 || s.TargetRatio < 0 || s.TargetRatio >= 1 || s.MaxDamping < 0 || s.MaxFailures < 0 {
		return fmt.Errorf("stop policy %+v: %w", s, types.ErrInvalidInput)
	}
	return nil
}

// Observer 每步回调，返回 false 中止迭代
type Observer func(StepResult) bool

// Report 迭代汇总
type Report struct {
	Steps        int          `json:"steps"`
	InitialError float64      `json:"initial_error"`
	FinalError   float64      `json:"final_error"`
	Damping      float64      `json:"damping"`
	Failures     int          `json:"failures"`
	Reason       Reason       `json:"reason"`
	History      []StepResult `json:"history"`
}

// Ratio 最终误差与初始误差之比
func (r Report) Ratio() float64 {
	if r.InitialError == 0 {
		return 0
	}
	return r.FinalError / r.InitialError
}

// Errors 每步之后的误差序列
func (r Report) Errors() []float64 {
	out := make([]float64, len(r.History))
	for i, h := range r.History {
		out[i] = h.Error
	}
	return out
}

// Best 历史最小误差
func (r Report) Best() float64 {
	if len(r.History) == 0 {
		return r.FinalError
	}
	return math.Min(floats.Min(r.Errors()), r.InitialError)
}

// Run 重复执行 Step 直到满足停止策略
// 求解器未初始化时先初始化。
func Run(s *Solver, stop Stop, observe Observer) (Report, error) {
	if err := stop.validate(); err != nil {
		return Report{}, err
	}
	if !s.initialized {
		if err := s.Initialize(); err != nil {
			return Report{}, err
		}
	}
	rep := Report{InitialError: s.InitialError(), Reason: ReasonMaxSteps}
	failures := 0
	for rep.Steps < stop.MaxSteps {
		res, err := s.Step()
		if err != nil {
			if !errors.Is(err, types.ErrBundleAdjustmentFailed) || failures >= stop.MaxFailures {
				rep.Reason = ReasonFailed
				rep.finish(s)
				return rep, err
			}
			failures++
			rep.Failures++
			if err := s.SetDamping(s.Damping() * types.DampingScale); err != nil {
				return rep, err
			}
			continue
		}
		failures = 0
		rep.Steps++
		rep.History = append(rep.History, res)
		if observe != nil && !observe(res) {
			rep.Reason = ReasonAborted
			break
		}
		if reason, done := stop.check(rep.InitialError, res); done {
			rep.Reason = reason
			break
		}
	}
	rep.finish(s)
	s.logger.Info("bundle adjustment finished",
		"steps", rep.Steps,
		"initial_error", rep.InitialError,
		"final_error", rep.FinalError,
		"damping", rep.Damping,
		"reason", rep.Reason)
	return rep, nil
}

func (r *Report) finish(s *Solver) {
	r.FinalError = s.Error()
	r.Damping = s.Damping()
}

func (s Stop) check(initial float64, res StepResult) (Reason, bool) {
	if res.Error == 0 || (s.TargetRatio > 0 && initial > 0 && res.Error/initial <= s.TargetRatio) {
		return ReasonTarget, true
	}
	if s.RelativeTol > 0 && res.Improved && res.PreviousError > 0 &&
		(res.PreviousError-res.Error)/res.PreviousError < s.RelativeTol {
		return ReasonConverged, true
	}
	if s.MaxDamping > 0 && res.Damping > s.MaxDamping {
		return ReasonDamping, true
	}
	return "", false
}
