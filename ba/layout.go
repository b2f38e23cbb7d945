package ba

import (
	"fmt"

	"lensblur/types"
)

// Param 参数种类
// 参数向量按种类分组排列: 前六组每组 Nc 个（相机），后三组每组 Np 个（特征点）。
type Param int

const (
	TransX        Param = iota // 相机平移 x
	TransY                     // 相机平移 y
	TransZ                     // 相机平移 z
	PoseX                      // 绕 x 轴旋转 ω
	PoseY                      // 绕 y 轴旋转 φ
	PoseZ                      // 绕 z 轴旋转 κ
	PointA                     // 参考射线 a
	PointB                     // 参考射线 b
	PointInvDepth              // 逆深度 ρ
	paramCount
)

var paramNames = [...]string{"tx", "ty", "tz", "pose_x", "pose_y", "pose_z", "a", "b", "rho"}

func (p Param) String() string {
	if p < 0 || p >= paramCount {
		return fmt.Sprintf("Param(%d)", int(p))
	}
	return paramNames[p]
}

// IsCamera 是否为相机参数
func (p Param) IsCamera() bool { return p >= TransX && p <= PoseZ }

// IsPoint 是否为特征点参数
func (p Param) IsPoint() bool { return p >= PointA && p <= PointInvDepth }

// Index 参数向量下标
type Index int

// Layout 参数向量布局（双射且在求解器生命周期内固定）
type Layout struct {
	Cameras int // Nc
	Points  int // Np
}

// NewLayout 创建布局
func NewLayout(cameras, points int) Layout {
	if cameras < 0 || points < 0 {
		panic(fmt.Sprintf("ba: negative layout %dx%d", cameras, points))
	}
	return Layout{Cameras: cameras, Points: points}
}

// Size 参数总数 K = 6·Nc + 3·Np
func (l Layout) Size() int {
	return types.CameraParams*l.Cameras + types.PointParams*l.Points
}

// Camera 相机 i 的参数 p 的下标
func (l Layout) Camera(p Param, i int) Index {
	if !p.IsCamera() {
		panic(fmt.Sprintf("ba: %s is not a camera parameter", p))
	}
	if i < 0 || i >= l.Cameras {
		panic(fmt.Sprintf("ba: camera %d out of range [0,%d)", i, l.Cameras))
	}
	return Index(int(p)*l.Cameras + i)
}

// Point 特征点 j 的参数 p 的下标
func (l Layout) Point(p Param, j int) Index {
	if !p.IsPoint() {
		panic(fmt.Sprintf("ba: %s is not a point parameter", p))
	}
	if j < 0 || j >= l.Points {
		panic(fmt.Sprintf("ba: point %d out of range [0,%d)", j, l.Points))
	}
	return Index(types.CameraParams*l.Cameras + int(p-PointA)*l.Points + j)
}

// Locate 下标反查 (参数种类, 相机或点序号)
func (l Layout) Locate(k Index) (Param, int) {
	if k < 0 || int(k) >= l.Size() {
		panic(fmt.Sprintf("ba: index %d out of range [0,%d)", k, l.Size()))
	}
	n := int(k)
	cams := types.CameraParams * l.Cameras
	if n < cams {
		return Param(n / l.Cameras), n % l.Cameras
	}
	n -= cams
	return PointA + Param(n/l.Points), n % l.Points
}

// Local 观测对 (i, j) 的 9 个局部参数下标
// 顺序: tx ty tz ω φ κ a b ρ
func (l Layout) Local(i, j int) [types.LocalParams]Index {
	var idx [types.LocalParams]Index
	for m := TransX; m <= PoseZ; m++ {
		idx[m] = l.Camera(m, i)
	}
	for m := PointA; m <= PointInvDepth; m++ {
		idx[m] = l.Point(m, j)
	}
	return idx
}
