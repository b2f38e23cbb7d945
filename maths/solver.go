package maths

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// 线性求解器名称
const (
	SolverLU    = "lu"    // 本包的部分主元LU
	SolverGonum = "gonum" // gonum: Cholesky，失败时回退到LU
)

// ErrSingular 矩阵奇异或病态
var ErrSingular = errors.New("maths: matrix is singular or ill-conditioned")

// NewLinearSolver 按名称创建线性求解器
func NewLinearSolver(name string) (LinearSolver, error) {
	switch name {
	case SolverLU:
		return NewLUSolver(), nil
	case SolverGonum, "":
		return NewGonumSolver(), nil
	}
	return nil, fmt.Errorf("maths: unknown linear solver %q", name)
}

// luSolver 基于 luDense 的求解器，按维度缓存分解器
type luSolver struct {
	lu LU
	n  int
}

// NewLUSolver 创建基于部分主元LU的求解器
func NewLUSolver() LinearSolver { return &luSolver{} }

func (s *luSolver) Name() string { return SolverLU }

// Solve 求解 A·x = b
func (s *luSolver) Solve(a Matrix, b, x Vector) error {
	if !a.IsSquare() || a.Rows() != b.Length() || b.Length() != x.Length() {
		return fmt.Errorf("lu solve: dimension mismatch %dx%d, b=%d, x=%d", a.Rows(), a.Cols(), b.Length(), x.Length())
	}
	if s.lu == nil || s.n != a.Rows() {
		lu, err := NewLU(a.Rows())
		if err != nil {
			return err
		}
		s.lu, s.n = lu, a.Rows()
	}
	if err := s.lu.Decompose(a); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	if err := s.lu.SolveReuse(b, x); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return checkFinite(x)
}

// gonumSolver 基于 gonum/mat 的求解器
// 对称正定时走 Cholesky，否则回退到带条件数检查的 LU。
type gonumSolver struct {
	// 条件数上限，超过视为病态
	MaxCondition float64
}

// DefaultMaxCondition 默认条件数上限（约为 1/(5·机器精度)）
const DefaultMaxCondition = 1e15

// NewGonumSolver 创建 gonum 求解器
func NewGonumSolver() LinearSolver {
	return &gonumSolver{MaxCondition: DefaultMaxCondition}
}

func (s *gonumSolver) Name() string { return SolverGonum }

// Solve 求解 A·x = b
func (s *gonumSolver) Solve(a Matrix, b, x Vector) error {
	n := a.Rows()
	if !a.IsSquare() || n != b.Length() || n != x.Length() {
		return fmt.Errorf("gonum solve: dimension mismatch %dx%d, b=%d, x=%d", n, a.Cols(), b.Length(), x.Length())
	}
	if n == 0 {
		return fmt.Errorf("gonum solve: empty system")
	}
	rhs := mat.NewVecDense(n, b.ToDense())
	var out mat.VecDense

	if a.IsSymmetric(0) {
		sym := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				sym.SetSym(i, j, a.Get(i, j))
			}
		}
		var chol mat.Cholesky
		if chol.Factorize(sym) && chol.Cond() <= s.MaxCondition {
			if err := chol.SolveVecTo(&out, rhs); err == nil {
				x.BuildFromDense(out.RawVector().Data)
				return checkFinite(x)
			}
		}
	}

	dense := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dense.Set(i, j, a.Get(i, j))
		}
	}
	var lu mat.LU
	lu.Factorize(dense)
	if cond := lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > s.MaxCondition {
		return fmt.Errorf("%w: condition number %.3g", ErrSingular, cond)
	}
	if err := lu.SolveVecTo(&out, false, rhs); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	x.BuildFromDense(out.RawVector().Data)
	return checkFinite(x)
}

func checkFinite(x Vector) error {
	for i := 0; i < x.Length(); i++ {
		if v := x.Get(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite solution at %d", ErrSingular, i)
		}
	}
	return nil
}
