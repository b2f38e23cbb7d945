package ba

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"lensblur/types"
)

// Block 观测对的雅可比块: 3 个残差通道对 9 个局部参数的偏导
// 列顺序 tx ty tz ω φ κ a b ρ，其余参数的偏导恒为 0。
type Block [types.Channels][types.LocalParams]float64

// Differentiator 重投影模型的微分方式，求解器生命周期内固定
type Differentiator interface {
	Block(s *State, i, j int, dst *Block)
	Name() string
}

// 微分方式名称
const (
	DiffAnalytic  = "analytic"
	DiffNumerical = "numerical"
)

// NumericalDifferentiator 有限差分（gonum diff/fd）
type NumericalDifferentiator struct {
	Formula fd.Formula // fd.Central 或 fd.Forward
	Step    float64    // 差分步长

	jac *mat.Dense
}

// NewNumericalDifferentiator 创建有限差分微分器，step<=0 时使用默认步长
func NewNumericalDifferentiator(central bool, step float64) *NumericalDifferentiator {
	formula := fd.Forward
	if central {
		formula = fd.Central
	}
	if step <= 0 {
		step = types.DefaultFiniteStep
	}
	return &NumericalDifferentiator{
		Formula: formula,
		Step:    step,
		jac:     mat.NewDense(types.Channels, types.LocalParams, nil),
	}
}

func (d *NumericalDifferentiator) Name() string { return DiffNumerical }

// Block 对局部参数逐列差分
func (d *NumericalDifferentiator) Block(s *State, i, j int, dst *Block) {
	if d.jac == nil {
		d.jac = mat.NewDense(types.Channels, types.LocalParams, nil)
	}
	x := s.local(i, j)
	fd.Jacobian(d.jac, func(y, x []float64) {
		var l local
		copy(l[:], x)
		h := l.project()
		y[0], y[1], y[2] = h.X, h.Y, h.Z
	}, x[:], &fd.JacobianSettings{
		Formula: d.Formula,
		Step:    d.Step,
	})
	for r := 0; r < types.Channels; r++ {
		for c := 0; c < types.LocalParams; c++ {
			dst[r][c] = d.jac.At(r, c)
		}
	}
}

// AnalyticDifferentiator 链式法则解析求导
type AnalyticDifferentiator struct{}

func (AnalyticDifferentiator) Name() string { return DiffAnalytic }

// Block dh/dθ = dh/dPc · dPc/dθ
func (AnalyticDifferentiator) Block(s *State, i, j int, dst *Block) {
	l := s.local(i, j)
	pose, point := l.pose(), l.point()
	rx, ry, rz := rotX(pose.X), rotY(pose.Y), rotZ(pose.Z)
	rot := rz.mul(ry).mul(rx)
	p := Decode(point)
	pc := rot.apply(p).Add(l.translation())

	// dh/dPc，z 通道恒为 0
	iz := 1 / pc.Z
	jx := r3.Vector{X: iz, Y: 0, Z: -pc.X * iz * iz}
	jy := r3.Vector{X: 0, Y: iz, Z: -pc.Y * iz * iz}

	rho := point.Z
	cols := [types.LocalParams]r3.Vector{
		{X: 1}, {Y: 1}, {Z: 1},
		rz.mul(ry).mul(drotX(pose.X)).apply(p),
		rz.mul(drotY(pose.Y)).mul(rx).apply(p),
		drotZ(pose.Z).mul(ry).mul(rx).apply(p),
		rot.apply(r3.Vector{X: 1 / rho}),
		rot.apply(r3.Vector{Y: 1 / rho}),
		rot.apply(r3.Vector{X: -point.X / (rho * rho), Y: -point.Y / (rho * rho), Z: -1 / (rho * rho)}),
	}
	for c, col := range cols {
		dst[0][c] = jx.Dot(col)
		dst[1][c] = jy.Dot(col)
		dst[2][c] = 0
	}
}
