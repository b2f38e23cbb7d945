// Package metrics 求解过程的 Prometheus 指标。
// 使用独立的 Registry，可写出为 node_exporter 文本文件。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lensblur/ba"
)

const namespace = "lensblur"

// Metrics 求解指标
type Metrics struct {
	Registry *prometheus.Registry

	// StepsTotal 按结果统计的步数
	// Labels: outcome (improved, worsened, reverted, degenerate)
	StepsTotal *prometheus.CounterVec
	// FailuresTotal 线性求解失败次数
	FailuresTotal prometheus.Counter
	// RunsTotal 按停止原因统计的运行次数
	RunsTotal *prometheus.CounterVec
	// RunDuration 单次运行耗时
	RunDuration prometheus.Histogram

	Error    prometheus.Gauge // 当前总误差
	Damping  prometheus.Gauge // 当前阻尼因子
	Ratio    prometheus.Gauge // 最终误差 / 初始误差
	Cameras  prometheus.Gauge
	Points   prometheus.Gauge
	Survival prometheus.Gauge // 全帧存活点比例
}

// New 在新的 Registry 上注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: "solver", Name: name, Help: help})
	}
	return &Metrics{
		Registry: reg,
		StepsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "steps_total",
			Help:      "Damped solver steps by outcome.",
		}, []string{"outcome"}),
		FailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "failures_total",
			Help:      "Linear solves that failed on a singular or ill-conditioned system.",
		}),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "runs_total",
			Help:      "Completed solver runs by stop reason.",
		}, []string{"reason"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a solver run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		Error:    gauge("error", "Total squared reprojection error after the last step."),
		Damping:  gauge("damping", "Damping factor after the last step."),
		Ratio:    gauge("error_ratio", "Final error divided by initial error."),
		Cameras:  gauge("cameras", "Cameras in the problem."),
		Points:   gauge("points", "Surviving feature points in the problem."),
		Survival: gauge("survival_ratio", "Fraction of tracked points visible in every frame."),
	}
}

// Outcome 单步结果的标签值
func Outcome(res ba.StepResult) string {
	switch {
	case res.Degenerate:
		return "degenerate"
	case res.Improved:
		return "improved"
	case res.Reverted:
		return "reverted"
	}
	return "worsened"
}

// Observe 作为 ba.Run 的观察者使用
func (m *Metrics) Observe(res ba.StepResult) bool {
	m.StepsTotal.WithLabelValues(Outcome(res)).Inc()
	m.Error.Set(res.Error)
	m.Damping.Set(res.Damping)
	return true
}

// SetProblem 记录问题规模
func (m *Metrics) SetProblem(cameras, points int, survival float64) {
	m.Cameras.Set(float64(cameras))
	m.Points.Set(float64(points))
	m.Survival.Set(survival)
}

// ObserveRun 记录一次运行的汇总
func (m *Metrics) ObserveRun(rep ba.Report, d time.Duration) {
	m.RunsTotal.WithLabelValues(string(rep.Reason)).Inc()
	m.RunDuration.Observe(d.Seconds())
	m.FailuresTotal.Add(float64(rep.Failures))
	m.Error.Set(rep.FinalError)
	m.Damping.Set(rep.Damping)
	m.Ratio.Set(rep.Ratio())
}

// WriteTextfile 写出文本格式，供 node_exporter textfile collector 读取
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
