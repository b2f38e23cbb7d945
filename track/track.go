package track

import (
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"

	"lensblur/types"
)

// Frame 单帧的跟踪结果
// Points 与 Status 按特征点索引对齐；Status 为空表示该帧全部跟踪成功。
type Frame struct {
	Points []r2.Point `yaml:"points"`
	Status []bool     `yaml:"status,omitempty"`
}

// Tracks 按帧顺序排列的跟踪结果（外部跟踪器的输出）
type Tracks struct {
	Frames []Frame `yaml:"frames"`
}

// Tracker 外部特征跟踪能力: 输入有序帧序列，输出每帧的二维观测与跟踪状态。
type Tracker interface {
	Track(frames []image.Image) (*Tracks, error)
}

// Recorded 回放预先记录的跟踪结果
type Recorded struct {
	Tracks *Tracks
}

// Track 返回记录的跟踪结果，帧数不一致时报错；frames 为空时不检查帧数。
func (r Recorded) Track(frames []image.Image) (*Tracks, error) {
	if r.Tracks == nil {
		return nil, fmt.Errorf("recorded tracker: no tracks: %w", types.ErrInvalidInput)
	}
	if len(frames) != 0 && len(frames) != len(r.Tracks.Frames) {
		return nil, fmt.Errorf("recorded tracker: %d frames given, %d recorded: %w",
			len(frames), len(r.Tracks.Frames), types.ErrInvalidInput)
	}
	return r.Tracks, nil
}

// Count 第一帧的特征点数量
func (t *Tracks) Count() int {
	if len(t.Frames) == 0 {
		return 0
	}
	return len(t.Frames[0].Points)
}

// Visibility 所有帧跟踪状态的逻辑与: 只有每一帧都跟踪成功的点可见
func (t *Tracks) Visibility() (*Visibility, error) {
	if len(t.Frames) == 0 {
		return nil, fmt.Errorf("tracks: no frames: %w", types.ErrInvalidInput)
	}
	n := t.Count()
	vis := NewVisibility(n)
	for i, f := range t.Frames {
		if len(f.Points) != n {
			return nil, fmt.Errorf("tracks: frame %d has %d points, want %d: %w", i, len(f.Points), n, types.ErrInvalidInput)
		}
		if f.Status == nil {
			continue
		}
		if len(f.Status) != n {
			return nil, fmt.Errorf("tracks: frame %d has %d status flags, want %d: %w", i, len(f.Status), n, types.ErrInvalidInput)
		}
		vis.And(f.Status)
	}
	return vis, nil
}

// Mask 全帧可见性的布尔形式
func (t *Tracks) Mask() ([]bool, error) {
	vis, err := t.Visibility()
	if err != nil {
		return nil, err
	}
	return vis.Bools(), nil
}

// Survival 全帧存活的特征点比例（跟踪稳定度）
func (t *Tracks) Survival() float64 {
	vis, err := t.Visibility()
	if err != nil || vis.Len() == 0 {
		return 0
	}
	return float64(vis.Count()) / float64(vis.Len())
}

// Normalization 像素坐标到归一化像平面坐标的换算
// u = (px - W/2) / s, v = (py - H/2) / s, s = max(W, H) / 2
type Normalization struct {
	Width  int `yaml:"width" validate:"gt=0"`
	Height int `yaml:"height" validate:"gt=0"`
}

// DefaultNormalization 512x512
func DefaultNormalization() Normalization {
	return Normalization{Width: types.DefaultNormalizationSize, Height: types.DefaultNormalizationSize}
}

func (n Normalization) scale() float64 {
	return math.Max(float64(n.Width), float64(n.Height)) / 2
}

// Valid 尺寸是否为正
func (n Normalization) Valid() bool { return n.Width > 0 && n.Height > 0 }

// Normalize 像素坐标 -> 归一化坐标
func (n Normalization) Normalize(p r2.Point) r2.Point {
	s := n.scale()
	return r2.Point{X: (p.X - float64(n.Width)/2) / s, Y: (p.Y - float64(n.Height)/2) / s}
}

// Denormalize 归一化坐标 -> 像素坐标
func (n Normalization) Denormalize(p r2.Point) r2.Point {
	s := n.scale()
	return r2.Point{X: p.X*s + float64(n.Width)/2, Y: p.Y*s + float64(n.Height)/2}
}
