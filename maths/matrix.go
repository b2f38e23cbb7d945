package maths

import (
	"fmt"
	"math"
	"strings"
)

// denseMatrix 稠密矩阵实现（行优先，全量存储所有元素）
type denseMatrix struct {
	DataManager
	rows, cols int
}

// NewDenseMatrix 创建指定维度的空稠密矩阵
func NewDenseMatrix(rows, cols int) Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("invalid matrix dimension %dx%d", rows, cols))
	}
	return &denseMatrix{
		DataManager: NewDataManager(rows * cols),
		rows:        rows,
		cols:        cols,
	}
}

// NewDenseMatrixFrom 从二维切片创建稠密矩阵
func NewDenseMatrixFrom(dense [][]float64) Matrix {
	rows := len(dense)
	cols := 0
	if rows > 0 {
		cols = len(dense[0])
	}
	m := NewDenseMatrix(rows, cols)
	m.BuildFromDense(dense)
	return m
}

func (m *denseMatrix) index(row, col int) int {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("index (%d,%d) out of range %dx%d", row, col, m.rows, m.cols))
	}
	return row*m.cols + col
}

// Rows 返回矩阵行数
func (m *denseMatrix) Rows() int { return m.rows }

// Cols 返回矩阵列数
func (m *denseMatrix) Cols() int { return m.cols }

// IsSquare 判断是否为方阵
func (m *denseMatrix) IsSquare() bool { return m.rows == m.cols }

// Get 获取指定行列元素值（越界panic）
func (m *denseMatrix) Get(row, col int) float64 {
	return m.DataManager.Get(m.index(row, col))
}

// Set 设置指定行列元素值（越界panic）
func (m *denseMatrix) Set(row, col int, value float64) {
	m.DataManager.Set(m.index(row, col), value)
}

// Increment 增量更新矩阵元素（value累加，越界panic）
func (m *denseMatrix) Increment(row, col int, value float64) {
	m.DataManager.Increment(m.index(row, col), value)
}

// ToDense 转换为二维切片（副本）
func (m *denseMatrix) ToDense() [][]float64 {
	out := make([][]float64, m.rows)
	raw := m.DataPtr()
	for i := range out {
		out[i] = make([]float64, m.cols)
		copy(out[i], raw[i*m.cols:(i+1)*m.cols])
	}
	return out
}

// BuildFromDense 从稠密矩阵构建（覆盖原有数据）
func (m *denseMatrix) BuildFromDense(dense [][]float64) {
	if len(dense) != m.rows {
		panic(fmt.Sprintf("dimension mismatch: rows %d, got %d", m.rows, len(dense)))
	}
	for i, row := range dense {
		if len(row) != m.cols {
			panic(fmt.Sprintf("dimension mismatch: row %d has %d cols, want %d", i, len(row), m.cols))
		}
		copy(m.DataPtr()[i*m.cols:], row)
	}
}

// Copy 复制自身数据到目标矩阵
func (m *denseMatrix) Copy(a Matrix) {
	if a.Rows() != m.rows || a.Cols() != m.cols {
		panic(fmt.Sprintf("dimension mismatch: source %dx%d, target %dx%d", m.rows, m.cols, a.Rows(), a.Cols()))
	}
	if target, ok := a.(*denseMatrix); ok {
		// 同类型直接复制（高效）
		m.DataManager.Copy(target.DataManager)
		return
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			a.Set(i, j, m.Get(i, j))
		}
	}
}

// SwapRows 交换两行
func (m *denseMatrix) SwapRows(row1, row2 int) {
	if row1 == row2 {
		return
	}
	raw := m.DataPtr()
	r1 := raw[m.index(row1, 0) : m.index(row1, 0)+m.cols]
	r2 := raw[m.index(row2, 0) : m.index(row2, 0)+m.cols]
	for j := range r1 {
		r1[j], r2[j] = r2[j], r1[j]
	}
}

// MatrixVectorMultiply 矩阵向量乘法（A*x，返回新向量）
func (m *denseMatrix) MatrixVectorMultiply(x Vector) Vector {
	if x.Length() != m.cols {
		panic(fmt.Sprintf("vector dimension mismatch: x length=%d, matrix cols=%d", x.Length(), m.cols))
	}
	result := NewDenseVector(m.rows)
	for i := 0; i < m.rows; i++ {
		sum := 0.0
		for j := 0; j < m.cols; j++ {
			sum += m.Get(i, j) * x.Get(j)
		}
		result.Set(i, sum)
	}
	return result
}

// IsSymmetric 判断是否在容差内对称
func (m *denseMatrix) IsSymmetric(tol float64) bool {
	if !m.IsSquare() {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := i + 1; j < m.cols; j++ {
			if math.Abs(m.Get(i, j)-m.Get(j, i)) > tol {
				return false
			}
		}
	}
	return true
}

// String 格式化输出矩阵
func (m *denseMatrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		sb.WriteString("[")
		for j := 0; j < m.cols; j++ {
			fmt.Fprintf(&sb, "%10.4g ", m.Get(i, j))
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}
