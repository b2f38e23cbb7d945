package maths

import (
	"errors"
	"math"
)

// NewLU 创建稠密矩阵LU分解器（输入矩阵维度n）
// 参数:
//
//	n - 矩阵维度（必须为正整数）
//
// 返回:
//
//	LU接口实例，错误信息
func NewLU(n int) (LU, error) {
	if n < 1 {
		return nil, errors.New("lu dimension must be positive")
	}
	return &luDense{
		n:        n,
		L:        NewDenseMatrix(n, n),
		U:        NewDenseMatrix(n, n),
		Y:        NewDenseVector(n),
		P:        make([]int, n),
		pinverse: make([]int, n),
	}, nil
}

// luDense 稠密矩阵LU分解实现（A=PLU，带部分主元）
//
//	P - 置换矩阵（用向量表示）
//	L - 单位下三角矩阵（对角线为1）
//	U - 上三角矩阵
type luDense struct {
	n        int    // 矩阵维度（方阵n×n）
	L        Matrix // 下三角矩阵L（L[i][i]=1，严格下三角存储消元因子）
	U        Matrix // 上三角矩阵U（存储消元后上三角元素）
	Y        Vector // 中间变量：存储前向替换结果Ly=Pb
	P        []int  // 置换向量：P[i] = 分解后第i行对应的原始矩阵行索引
	pinverse []int  // 逆置换向量：pinverse[i] = 原始第i行对应的分解后行索引
	scale    float64
}

// init 初始化置换向量和L矩阵的对角线
// 功能:
//  1. 清零L和U矩阵
//  2. 将输入矩阵A拷贝到U矩阵
//  3. 初始化置换向量P和pinverse为单位置换
//  4. 设置L矩阵对角线为1（单位下三角矩阵特性）
//  5. 记录输入矩阵的最大绝对值，作为相对主元阈值的尺度
func (lu *luDense) init(matrix Matrix) {
	lu.L.Zero()
	lu.U.Zero()
	matrix.Copy(lu.U) // 将A拷贝到U，后续在U上进行原位消元
	lu.scale = 0
	for i := 0; i < lu.n; i++ {
		lu.P[i] = i
		lu.pinverse[i] = i
		lu.L.Set(i, i, 1.0)
		for j := 0; j < lu.n; j++ {
			if v := math.Abs(lu.U.Get(i, j)); v > lu.scale {
				lu.scale = v
			}
		}
	}
}

// updatePermutation 更新置换向量（交换并同步更新逆置换）
func (lu *luDense) updatePermutation(k, maxRow int) {
	lu.P[k], lu.P[maxRow] = lu.P[maxRow], lu.P[k]
	lu.pinverse[lu.P[k]] = k
	lu.pinverse[lu.P[maxRow]] = maxRow
}

// Decompose 执行稠密矩阵LU分解（核心逻辑：高斯消元+部分主元）
// 参数:
//
//	matrix - 输入矩阵A（必须为方阵）
//
// 返回:
//
//	错误信息（如果矩阵奇异或维度不匹配）
//
// 算法步骤:
//  1. 初始化：拷贝A到U，初始化P、pinverse和L
//  2. 对每一列k（0到n-1）:
//     a. 部分主元选择：在U的当前列k中找[k, n-1]行的最大值
//     b. 行交换：交换U的行，交换L的前k-1列，更新置换向量
//     c. 高斯消元：计算消元因子存入L，更新U矩阵
//
// 主元相对于矩阵最大元素小于 Epsilon·n 时视为奇异。
func (lu *luDense) Decompose(matrix Matrix) error {
	if !matrix.IsSquare() {
		return errors.New("lu dense decompose: input must be square matrix")
	}
	if matrix.Rows() != lu.n {
		return errors.New("lu dense decompose: matrix dimension mismatch")
	}
	lu.init(matrix)
	if lu.scale == 0 || math.IsNaN(lu.scale) || math.IsInf(lu.scale, 0) {
		return errors.New("lu dense decompose: matrix is zero or not finite")
	}
	threshold := lu.scale * Epsilon * float64(lu.n)

	for k := 0; k < lu.n; k++ {
		// 步骤1：部分主元选择
		maxRow := k
		maxAbsVal := math.Abs(lu.U.Get(k, k))
		for i := k + 1; i < lu.n; i++ {
			if v := math.Abs(lu.U.Get(i, k)); v > maxAbsVal {
				maxAbsVal = v
				maxRow = i
			}
		}
		if maxAbsVal <= threshold {
			return errors.New("lu dense decompose: matrix is singular or nearly singular")
		}

		// 步骤2：行交换
		if maxRow != k {
			lu.U.SwapRows(k, maxRow)
			for j := 0; j < k; j++ {
				val1 := lu.L.Get(k, j)
				val2 := lu.L.Get(maxRow, j)
				lu.L.Set(k, j, val2)
				lu.L.Set(maxRow, j, val1)
			}
			lu.updatePermutation(k, maxRow)
		}

		// 步骤3：高斯消元
		pivotVal := lu.U.Get(k, k)
		for i := k + 1; i < lu.n; i++ {
			factor := lu.U.Get(i, k) / pivotVal
			if factor == 0 {
				continue
			}
			lu.L.Set(i, k, factor)
			lu.U.Set(i, k, 0.0)
			for j := k + 1; j < lu.n; j++ {
				lu.U.Increment(i, j, -factor*lu.U.Get(k, j))
			}
		}
	}
	return nil
}

// SolveReuse 利用分解结果求解Ax=b（重用预分配向量）
// 数学步骤:
//  1. 前向替换：求解Ly = Pb（Pb为b按置换向量P重新排序）
//  2. 后向替换：求解Ux = y
func (lu *luDense) SolveReuse(b, x Vector) error {
	if b.Length() != lu.n || x.Length() != lu.n {
		return errors.New("lu dense solve: vector dimension mismatch")
	}

	// 前向替换：求解Ly = Pb
	lu.Y.Zero()
	for i := 0; i < lu.n; i++ {
		sum := b.Get(lu.P[i])
		for j := 0; j < i; j++ {
			sum -= lu.L.Get(i, j) * lu.Y.Get(j)
		}
		lu.Y.Set(i, sum)
	}

	// 后向替换：求解Ux = y
	x.Zero()
	for i := lu.n - 1; i >= 0; i-- {
		sum := lu.Y.Get(i)
		for j := i + 1; j < lu.n; j++ {
			sum -= lu.U.Get(i, j) * x.Get(j)
		}
		diagVal := lu.U.Get(i, i)
		if math.Abs(diagVal) < Epsilon {
			return errors.New("lu dense solve: division by zero (U diagonal is zero)")
		}
		x.Set(i, sum/diagVal)
	}
	return nil
}
