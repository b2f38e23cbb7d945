package maths

import (
	"math"
	"math/rand"
	"testing"
)

// TestLuDenseSolve 函数验证了针对密集矩阵的 LU 分解和求解过程的正确性。
func TestLuDenseSolve(t *testing.T) {
	// 求解线性方程组 Ax = b
	// A = [[2, 3, 1],
	//      [1, 2, 3],
	//      [3, 1, 2]]
	// b = [9, 6, 8]
	// 预期解 x = [35/18, 29/18, 5/18]
	a := NewDenseMatrixFrom([][]float64{
		{2, 3, 1},
		{1, 2, 3},
		{3, 1, 2},
	})
	b := NewDenseVectorWithData([]float64{9, 6, 8})

	lu, err := NewLU(3)
	if err != nil {
		t.Fatalf("NewLU failed: %v", err)
	}
	if err = lu.Decompose(a); err != nil {
		t.Fatalf("Decomposition failed: %v", err)
	}

	x := NewDenseVector(3)
	if err = lu.SolveReuse(b, x); err != nil {
		t.Fatalf("SolveReuse failed: %v", err)
	}

	expected := []float64{35.0 / 18.0, 29.0 / 18.0, 5.0 / 18.0}
	tolerance := 1e-9
	for i := 0; i < 3; i++ {
		if math.Abs(x.Get(i)-expected[i]) > tolerance {
			t.Errorf("Element x[%d] is incorrect. Got %f, expected %f", i, x.Get(i), expected[i])
		}
	}
}

// TestLuDenseSingular 函数验证 Decompose 方法能否正确识别奇异矩阵。
func TestLuDenseSingular(t *testing.T) {
	// A 是一个奇异矩阵（第三行是前两行之和）
	a := NewDenseMatrixFrom([][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{5, 7, 9},
	})
	lu, err := NewLU(3)
	if err != nil {
		t.Fatalf("NewLU failed: %v", err)
	}
	if err = lu.Decompose(a); err == nil {
		t.Fatalf("Decompose should have failed for a singular matrix but it did not")
	}
}

// TestLuDenseDimension 维度不匹配时返回错误
func TestLuDenseDimension(t *testing.T) {
	if _, err := NewLU(0); err == nil {
		t.Fatalf("NewLU(0) should fail")
	}
	lu, _ := NewLU(2)
	if err := lu.Decompose(NewDenseMatrix(3, 3)); err == nil {
		t.Fatalf("Decompose should fail on dimension mismatch")
	}
	if err := lu.Decompose(NewDenseMatrix(2, 3)); err == nil {
		t.Fatalf("Decompose should fail on non-square input")
	}
}

// TestLuDenseRandom 随机对角占优矩阵的残差检查
func TestLuDenseRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	size := 30
	a := NewDenseMatrix(size, size)
	b := NewDenseVector(size)
	for i := 0; i < size; i++ {
		b.Set(i, rng.Float64())
		for j := 0; j < size; j++ {
			a.Set(i, j, rng.Float64())
		}
		a.Increment(i, i, float64(size))
	}
	lu, _ := NewLU(size)
	if err := lu.Decompose(a); err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	x := NewDenseVector(size)
	if err := lu.SolveReuse(b, x); err != nil {
		t.Fatalf("SolveReuse failed: %v", err)
	}
	r := a.MatrixVectorMultiply(x)
	for i := 0; i < size; i++ {
		if d := math.Abs(r.Get(i) - b.Get(i)); d > 1e-10 {
			t.Errorf("residual[%d] = %g", i, d)
		}
	}
}

// BenchmarkLuDenseDecompose 测试对密集矩阵进行 LU 分解的性能。
func BenchmarkLuDenseDecompose(b *testing.B) {
	size := 100
	m := NewDenseMatrix(size, size)
	// 填充随机数据以避免对零矩阵的特殊优化
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			m.Set(i, j, rand.Float64())
		}
		m.Increment(i, i, 1)
	}
	lu, err := NewLU(size)
	if err != nil {
		b.Fatalf("NewLU failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := lu.Decompose(m); err != nil {
			b.Fatalf("Decomposition failed during benchmark: %v", err)
		}
	}
}
