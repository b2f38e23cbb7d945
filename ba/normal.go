package ba

import (
	"math"

	"github.com/golang/geo/r3"

	"lensblur/maths"
	"lensblur/track"
)

// residual 观测对的残差 r = h - (u, v, 1)
func residual(h r3.Vector, corr *track.Correspondence, i, j int) r3.Vector {
	obs := corr.At(i, j)
	return r3.Vector{X: h.X - obs.X, Y: h.Y - obs.Y, Z: h.Z - 1}
}

// normal 正规方程组 H·Δ = -g 的装配器
type normal struct {
	layout   Layout
	hessian  maths.Matrix
	gradient maths.Vector
	block    Block
}

func newNormal(l Layout) *normal {
	return &normal{
		layout:   l,
		hessian:  maths.NewDenseMatrix(l.Size(), l.Size()),
		gradient: maths.NewDenseVector(l.Size()),
	}
}

// assemble 重新计算全部观测对的残差与雅可比块并累加，返回总误差 Σ r²
// gradient[k] = Σ J_k·r, hessian[k1][k2] = Σ J_k1·J_k2
func (n *normal) assemble(s *State, corr *track.Correspondence, d Differentiator) float64 {
	n.hessian.Zero()
	n.gradient.Zero()
	total := 0.0
	for i := 0; i < n.layout.Cameras; i++ {
		for j := 0; j < n.layout.Points; j++ {
			l := s.local(i, j)
			r := residual(l.project(), corr, i, j)
			total += r.Dot(r)
			rv := [3]float64{r.X, r.Y, r.Z}

			d.Block(s, i, j, &n.block)
			idx := n.layout.Local(i, j)
			for m1, k1 := range idx {
				g := 0.0
				for c := range rv {
					g += n.block[c][m1] * rv[c]
				}
				n.gradient.Increment(int(k1), g)
				for m2, k2 := range idx {
					h := 0.0
					for c := range rv {
						h += n.block[c][m1] * n.block[c][m2]
					}
					n.hessian.Increment(int(k1), int(k2), h)
				}
			}
		}
	}
	return total
}

// evaluate 总误差；任一逆深度非正、任一点位于相机后方或误差非有限值时 ok 为 false
func evaluate(s *State, corr *track.Correspondence) (total float64, ok bool) {
	l := s.Layout()
	for j := 0; j < l.Points; j++ {
		if s.Point(j).Z <= 0 {
			return math.Inf(1), false
		}
	}
	for i := 0; i < l.Cameras; i++ {
		t, pose := s.Translation(i), s.Pose(i)
		for j := 0; j < l.Points; j++ {
			pc := Transform(t, pose, s.Point(j))
			if pc.Z <= 0 {
				return math.Inf(1), false
			}
			h := r3.Vector{X: pc.X / pc.Z, Y: pc.Y / pc.Z, Z: 1}
			r := residual(h, corr, i, j)
			total += r.Dot(r)
		}
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return total, false
	}
	return total, true
}
