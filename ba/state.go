package ba

import (
	"github.com/golang/geo/r3"

	"lensblur/maths"
)

// State 参数向量
// 写入先落在缓存上，由求解器决定提交或回溯。
type State struct {
	layout Layout
	params maths.UpdateVector
}

func newState(l Layout) *State {
	return &State{
		layout: l,
		params: maths.NewUpdateVectorPtr(maths.NewDenseVector(l.Size())),
	}
}

// Layout 参数布局
func (s *State) Layout() Layout { return s.layout }

// Get 读取参数（含未提交的修改）
func (s *State) Get(k Index) float64 { return s.params.Get(int(k)) }

func (s *State) set(k Index, v float64)       { s.params.Set(int(k), v) }
func (s *State) increment(k Index, v float64) { s.params.Increment(int(k), v) }
func (s *State) commit()                      { s.params.Update() }
func (s *State) rollback()                    { s.params.Rollback() }

// Translation 相机 i 的平移
func (s *State) Translation(i int) r3.Vector {
	return r3.Vector{
		X: s.Get(s.layout.Camera(TransX, i)),
		Y: s.Get(s.layout.Camera(TransY, i)),
		Z: s.Get(s.layout.Camera(TransZ, i)),
	}
}

// Pose 相机 i 的姿态 (ω, φ, κ)
func (s *State) Pose(i int) r3.Vector {
	return r3.Vector{
		X: s.Get(s.layout.Camera(PoseX, i)),
		Y: s.Get(s.layout.Camera(PoseY, i)),
		Z: s.Get(s.layout.Camera(PoseZ, i)),
	}
}

// Point 特征点 j 的逆深度参数 (a, b, ρ)
func (s *State) Point(j int) r3.Vector {
	return r3.Vector{
		X: s.Get(s.layout.Point(PointA, j)),
		Y: s.Get(s.layout.Point(PointB, j)),
		Z: s.Get(s.layout.Point(PointInvDepth, j)),
	}
}

// World 特征点 j 的世界坐标
func (s *State) World(j int) r3.Vector { return Decode(s.Point(j)) }

func (s *State) setTranslation(i int, v r3.Vector) {
	s.set(s.layout.Camera(TransX, i), v.X)
	s.set(s.layout.Camera(TransY, i), v.Y)
	s.set(s.layout.Camera(TransZ, i), v.Z)
}

func (s *State) setPose(i int, v r3.Vector) {
	s.set(s.layout.Camera(PoseX, i), v.X)
	s.set(s.layout.Camera(PoseY, i), v.Y)
	s.set(s.layout.Camera(PoseZ, i), v.Z)
}

func (s *State) setPoint(j int, v r3.Vector) {
	s.set(s.layout.Point(PointA, j), v.X)
	s.set(s.layout.Point(PointB, j), v.Y)
	s.set(s.layout.Point(PointInvDepth, j), v.Z)
}

// local 读取观测对 (i, j) 的局部参数
func (s *State) local(i, j int) local {
	var l local
	for m, k := range s.layout.Local(i, j) {
		l[m] = s.Get(k)
	}
	return l
}

// Vector 参数向量副本
func (s *State) Vector() []float64 {
	out := make([]float64, s.layout.Size())
	for k := range out {
		out[k] = s.params.Get(k)
	}
	return out
}
