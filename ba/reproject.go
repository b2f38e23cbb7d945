package ba

import (
	"math"

	"github.com/golang/geo/r3"
)

// mat3 3x3 行主序矩阵
type mat3 [3][3]float64

func (m mat3) mul(n mat3) mat3 {
	var out mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return out
}

func (m mat3) apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

func rotX(a float64) mat3 {
	s, c := math.Sincos(a)
	return mat3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

func rotY(a float64) mat3 {
	s, c := math.Sincos(a)
	return mat3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

func rotZ(a float64) mat3 {
	s, c := math.Sincos(a)
	return mat3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// 各轴旋转矩阵对角度的导数
func drotX(a float64) mat3 {
	s, c := math.Sincos(a)
	return mat3{{0, 0, 0}, {0, -s, -c}, {0, c, -s}}
}

func drotY(a float64) mat3 {
	s, c := math.Sincos(a)
	return mat3{{-s, 0, c}, {0, 0, 0}, {-c, 0, -s}}
}

func drotZ(a float64) mat3 {
	s, c := math.Sincos(a)
	return mat3{{-s, -c, 0}, {c, -s, 0}, {0, 0, 0}}
}

// Rotation 姿态 (ω, φ, κ) 对应的旋转矩阵 R = Rz(κ)·Ry(φ)·Rx(ω)
func Rotation(pose r3.Vector) [3][3]float64 {
	return rotZ(pose.Z).mul(rotY(pose.Y)).mul(rotX(pose.X))
}

// Decode 逆深度参数 (a, b, ρ) 对应的世界坐标 (a/ρ, b/ρ, 1/ρ)
func Decode(point r3.Vector) r3.Vector {
	return r3.Vector{X: point.X / point.Z, Y: point.Y / point.Z, Z: 1 / point.Z}
}

// Encode 世界坐标对应的逆深度参数，Z 必须非零
// 该映射是自逆的。
func Encode(world r3.Vector) r3.Vector { return Decode(world) }

// Transform 特征点在相机坐标系下的位置 Pc = R(pose)·P + t
func Transform(t, pose, point r3.Vector) r3.Vector {
	return mat3(Rotation(pose)).apply(Decode(point)).Add(t)
}

// Reproject 重投影模型: 齐次投影位置 h = Pc / Pc.z
// 纯函数，z 通道恒为 1。
func Reproject(t, pose, point r3.Vector) r3.Vector {
	pc := Transform(t, pose, point)
	return r3.Vector{X: pc.X / pc.Z, Y: pc.Y / pc.Z, Z: 1}
}

// local 观测对的局部参数 tx ty tz ω φ κ a b ρ
type local [9]float64

func (l *local) translation() r3.Vector { return r3.Vector{X: l[0], Y: l[1], Z: l[2]} }
func (l *local) pose() r3.Vector        { return r3.Vector{X: l[3], Y: l[4], Z: l[5]} }
func (l *local) point() r3.Vector       { return r3.Vector{X: l[6], Y: l[7], Z: l[8]} }

func (l *local) project() r3.Vector {
	return Reproject(l.translation(), l.pose(), l.point())
}
