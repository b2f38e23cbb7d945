// Package lensblur 由图像序列的特征点跟踪结果重建稀疏三维结构与相机运动。
package lensblur

import (
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"lensblur/ba"
	"lensblur/export"
	"lensblur/track"
	"lensblur/types"
)

// Estimator 深度估计: 跟踪 -> 可见性筛选 -> 光束法平差
// 同一时刻只允许一次估计，重叠调用返回 ErrAlreadyRunning。
type Estimator struct {
	tracker   track.Tracker
	norm      track.Normalization
	stop      ba.Stop
	options   []ba.Option
	observers []ba.Observer
	logger    *slog.Logger

	running atomic.Bool
}

// Option 估计器选项
type Option func(*Estimator)

// WithTracker 特征跟踪器
func WithTracker(t track.Tracker) Option { return func(e *Estimator) { e.tracker = t } }

// WithNormalization 归一化尺寸
func WithNormalization(n track.Normalization) Option { return func(e *Estimator) { e.norm = n } }

// WithStop 停止策略
func WithStop(s ba.Stop) Option { return func(e *Estimator) { e.stop = s } }

// WithSolverOptions 追加求解器选项
func WithSolverOptions(opts ...ba.Option) Option {
	return func(e *Estimator) { e.options = append(e.options, opts...) }
}

// WithObserver 追加每步观察者
func WithObserver(o ba.Observer) Option {
	return func(e *Estimator) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithLogger 日志
func WithLogger(l *slog.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// New 创建估计器
func New(opts ...Option) *Estimator {
	e := &Estimator{
		norm:   track.DefaultNormalization(),
		stop:   ba.Stop{MaxSteps: types.DefaultMaxSteps, MaxFailures: 3},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result 一次估计的结果
type Result struct {
	RunID    uuid.UUID
	Cameras  []ba.Camera
	Points   []r3.Vector // 世界坐标
	IDs      []int       // 存活点在原始跟踪结果中的索引
	Survival float64     // 全帧存活点比例
	Report   ba.Report
	Duration time.Duration
}

// Export 转换为 JSON 报告
func (r *Result) Export(scale float64) (*export.Report, error) {
	return export.NewReport(r.RunID, r.Report, r.Cameras, r.Points, r.IDs, r.Survival, scale)
}

// Running 是否正在估计
func (e *Estimator) Running() bool { return e.running.Load() }

// Estimate 对有序帧序列跟踪并估计
func (e *Estimator) Estimate(frames []image.Image) (*Result, error) {
	if e.tracker == nil {
		return nil, fmt.Errorf("estimate: no tracker configured: %w", types.ErrInvalidInput)
	}
	if !e.running.CompareAndSwap(false, true) {
		return nil, types.ErrAlreadyRunning
	}
	defer e.running.Store(false)
	tracks, err := e.tracker.Track(frames)
	if err != nil {
		return nil, fmt.Errorf("track %d frames: %w", len(frames), err)
	}
	return e.estimate(tracks)
}

// EstimateTracks 对已有跟踪结果估计
func (e *Estimator) EstimateTracks(t *track.Tracks) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, types.ErrAlreadyRunning
	}
	defer e.running.Store(false)
	return e.estimate(t)
}

func (e *Estimator) estimate(t *track.Tracks) (*Result, error) {
	corr, err := track.Filter(t, e.norm)
	if err != nil {
		return nil, err
	}
	survival := t.Survival()
	return e.solve(corr, survival)
}

// Solve 对观测集合直接求解
func (e *Estimator) Solve(corr *track.Correspondence) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, types.ErrAlreadyRunning
	}
	defer e.running.Store(false)
	return e.solve(corr, 1)
}

func (e *Estimator) solve(corr *track.Correspondence, survival float64) (*Result, error) {
	id := uuid.New()
	logger := e.logger.With("run_id", id.String())
	logger.Info("estimation started",
		"cameras", corr.Cameras(),
		"points", corr.Points(),
		"survival", survival)

	opts := append(append([]ba.Option{}, e.options...), ba.WithLogger(logger))
	solver, err := ba.NewSolver(corr, opts...)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rep, err := ba.Run(solver, e.stop, e.observe)
	if err != nil {
		logger.Warn("estimation failed", "err", err, "steps", rep.Steps)
		return nil, err
	}
	res := &Result{
		RunID:    id,
		Cameras:  solver.Cameras(),
		Points:   solver.Points(),
		IDs:      make([]int, corr.Points()),
		Survival: survival,
		Report:   rep,
		Duration: time.Since(start),
	}
	for j := range res.IDs {
		res.IDs[j] = corr.ID(j)
	}
	logger.Info("estimation finished",
		"steps", rep.Steps,
		"ratio", rep.Ratio(),
		"reason", rep.Reason,
		"duration", res.Duration)
	return res, nil
}

func (e *Estimator) observe(res ba.StepResult) bool {
	ok := true
	for _, o := range e.observers {
		if !o(res) {
			ok = false
		}
	}
	return ok
}
