// Package synth 生成已知真值的仿真场景，用于求解器测试与演示。
package synth

import (
	"fmt"
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"lensblur/ba"
	"lensblur/track"
	"lensblur/types"
)

// Options 场景参数
type Options struct {
	Cameras  int     `yaml:"cameras" validate:"gt=0"`
	Points   int     `yaml:"points" validate:"gt=0"`
	Baseline float64 `yaml:"baseline" validate:"gte=0"` // 相机平移范围 [-B, B]
	Rotation float64 `yaml:"rotation" validate:"gte=0"` // 相机姿态范围 [-R, R]（弧度）
	DepthMin float64 `yaml:"depth_min" validate:"gt=0"`
	DepthMax float64 `yaml:"depth_max" validate:"gtefield=DepthMin"`
	Spread   float64 `yaml:"spread" validate:"gt=0"` // 参考相机中归一化坐标范围 [-S, S]
	Noise    float64 `yaml:"noise" validate:"gte=0"` // 观测高斯噪声标准差（归一化坐标）
	Lost     float64 `yaml:"lost" validate:"gte=0,lt=1"`
	Seed     int64   `yaml:"seed"`
}

// DefaultOptions 3 台相机、50 个点的小基线场景
func DefaultOptions() Options {
	return Options{
		Cameras:  3,
		Points:   50,
		Baseline: 0.3,
		Rotation: 0.05,
		DepthMin: types.DefaultDepthMin,
		DepthMax: types.DefaultDepthMax,
		Spread:   0.5,
		Seed:     1,
	}
}

// Scene 真值场景
// 第一台相机位于原点且无旋转，作为参考帧。
type Scene struct {
	Cameras []ba.Camera
	Points  []r3.Vector // 世界坐标
	Noise   float64
	Lost    float64

	rng *rand.Rand
}

// Generate 生成场景
func Generate(opt Options) (*Scene, error) {
	if err := check(opt); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(opt.Seed))
	uniform := func(r float64) float64 { return (2*rng.Float64() - 1) * r }

	cams := make([]ba.Camera, opt.Cameras)
	for i := 1; i < opt.Cameras; i++ {
		cams[i] = ba.Camera{
			Translation: r3.Vector{X: uniform(opt.Baseline), Y: uniform(opt.Baseline), Z: uniform(opt.Baseline) / 2},
			Pose:        r3.Vector{X: uniform(opt.Rotation), Y: uniform(opt.Rotation), Z: uniform(opt.Rotation)},
		}
	}
	return populate(cams, opt, rng)
}

// Line 沿 x 轴等间距排列、无旋转的相机组，第一台位于原点
func Line(n int, spacing float64) []ba.Camera {
	cams := make([]ba.Camera, n)
	for i := range cams {
		cams[i].Translation = r3.Vector{X: float64(i) * spacing}
	}
	return cams
}

// GenerateRig 使用给定相机生成场景，opt 中的相机数量与基线参数被忽略
func GenerateRig(cams []ba.Camera, opt Options) (*Scene, error) {
	if len(cams) == 0 {
		return nil, fmt.Errorf("synth: no cameras: %w", types.ErrInvalidInput)
	}
	opt.Cameras = len(cams)
	if err := check(opt); err != nil {
		return nil, err
	}
	return populate(append([]ba.Camera(nil), cams...), opt, rand.New(rand.NewSource(opt.Seed)))
}

func check(opt Options) error {
	if opt.Cameras <= 0 || opt.Points <= 0 || !(opt.DepthMin > 0) || opt.DepthMax < opt.DepthMin ||
		opt.Baseline < 0 || opt.Rotation < 0 || !(opt.Spread > 0) || opt.Noise < 0 || opt.Lost < 0 || opt.Lost >= 1 {
		return fmt.Errorf("synth: options %+v: %w", opt, types.ErrInvalidInput)
	}
	return nil
}

func populate(cams []ba.Camera, opt Options, rng *rand.Rand) (*Scene, error) {
	uniform := func(r float64) float64 { return (2*rng.Float64() - 1) * r }
	s := &Scene{Cameras: cams, Noise: opt.Noise, Lost: opt.Lost, rng: rng}
	s.Points = make([]r3.Vector, opt.Points)
	for j := range s.Points {
		d := opt.DepthMin + rng.Float64()*(opt.DepthMax-opt.DepthMin)
		s.Points[j] = r3.Vector{X: uniform(opt.Spread) * d, Y: uniform(opt.Spread) * d, Z: d}
	}
	for i, c := range s.Cameras {
		for j, p := range s.Points {
			if ba.Transform(c.Translation, c.Pose, ba.Encode(p)).Z <= 0 {
				return nil, fmt.Errorf("synth: point %d behind camera %d: %w", j, i, types.ErrInvalidInput)
			}
		}
	}
	return s, nil
}

// Project 点 j 在相机 i 中的理想归一化坐标
func (s *Scene) Project(i, j int) r2.Point {
	c := s.Cameras[i]
	h := ba.Reproject(c.Translation, c.Pose, ba.Encode(s.Points[j]))
	return r2.Point{X: h.X, Y: h.Y}
}

func (s *Scene) observe(i, j int) r2.Point {
	p := s.Project(i, j)
	if s.Noise > 0 {
		p.X += s.rng.NormFloat64() * s.Noise
		p.Y += s.rng.NormFloat64() * s.Noise
	}
	return p
}

// Correspondence 全部点均可见的观测集合
func (s *Scene) Correspondence() (*track.Correspondence, error) {
	obs := make([][]r2.Point, len(s.Cameras))
	for i := range obs {
		obs[i] = make([]r2.Point, len(s.Points))
		for j := range obs[i] {
			obs[i][j] = s.observe(i, j)
		}
	}
	return track.NewCorrespondence(obs)
}

// Tracks 像素坐标的跟踪结果，每个点在每帧以 Lost 概率跟踪失败
func (s *Scene) Tracks(norm track.Normalization) *track.Tracks {
	t := &track.Tracks{Frames: make([]track.Frame, len(s.Cameras))}
	for i := range t.Frames {
		f := &t.Frames[i]
		f.Points = make([]r2.Point, len(s.Points))
		if s.Lost > 0 {
			f.Status = make([]bool, len(s.Points))
		}
		for j := range f.Points {
			f.Points[j] = norm.Denormalize(s.observe(i, j))
			if f.Status != nil {
				f.Status[j] = s.rng.Float64() >= s.Lost
			}
		}
	}
	return t
}
