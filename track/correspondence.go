package track

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"lensblur/types"
)

// Correspondence 观测集合: 每台相机（帧）对每个存活特征点的归一化二维坐标。
// 只保留在所有帧中都跟踪成功的点，不做插值补全。
type Correspondence struct {
	obs [][]r2.Point // [相机][点]
	ids []int        // 存活点在原始跟踪结果中的索引
}

// Filter 按全帧可见性筛选跟踪结果并归一化
func Filter(t *Tracks, norm Normalization) (*Correspondence, error) {
	if t == nil {
		return nil, fmt.Errorf("filter: nil tracks: %w", types.ErrInvalidInput)
	}
	if !norm.Valid() {
		return nil, fmt.Errorf("filter: normalization %dx%d: %w", norm.Width, norm.Height, types.ErrInvalidInput)
	}
	mask, err := t.Mask()
	if err != nil {
		return nil, err
	}
	var ids []int
	for j, ok := range mask {
		if ok {
			ids = append(ids, j)
		}
	}
	obs := make([][]r2.Point, len(t.Frames))
	for i, f := range t.Frames {
		obs[i] = make([]r2.Point, len(ids))
		for k, j := range ids {
			obs[i][k] = norm.Normalize(f.Points[j])
		}
	}
	c := &Correspondence{obs: obs, ids: ids}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCorrespondence 直接由归一化坐标构建（全部点视为可见）
func NewCorrespondence(obs [][]r2.Point) (*Correspondence, error) {
	c := &Correspondence{obs: obs}
	if len(obs) > 0 {
		c.ids = make([]int, len(obs[0]))
		for j := range c.ids {
			c.ids[j] = j
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Correspondence) validate() error {
	if len(c.obs) == 0 {
		return fmt.Errorf("correspondence: no cameras: %w", types.ErrInvalidInput)
	}
	np := len(c.obs[0])
	if np == 0 {
		return fmt.Errorf("correspondence: no surviving points: %w", types.ErrInvalidInput)
	}
	for i, row := range c.obs {
		if len(row) != np {
			return fmt.Errorf("correspondence: camera %d has %d observations, want %d: %w", i, len(row), np, types.ErrInvalidInput)
		}
		for j, p := range row {
			if !finite(p.X) || !finite(p.Y) {
				return fmt.Errorf("correspondence: camera %d point %d is not finite: %w", i, j, types.ErrInvalidInput)
			}
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Cameras 相机数 Nc
func (c *Correspondence) Cameras() int { return len(c.obs) }

// Points 存活点数 Np，无相机时为 0
func (c *Correspondence) Points() int {
	if len(c.obs) == 0 {
		return 0
	}
	return len(c.obs[0])
}

// At 相机 i 对点 j 的归一化观测
func (c *Correspondence) At(i, j int) r2.Point { return c.obs[i][j] }

// ID 存活点 j 在原始跟踪结果中的索引
func (c *Correspondence) ID(j int) int { return c.ids[j] }
