package maths

// Epsilon 主元判零阈值
const Epsilon = 1e-16

// DataManager 一维数据管理器（底层存储核心）
type DataManager interface {
	// 基础属性方法
	Length() int    // 获取数据长度
	String() string // 返回数据的字符串表示

	// 数据访问方法
	Get(index int) float64              // 获取指定索引处的元素值
	Set(index int, value float64)       // 设置指定索引处的元素值
	Increment(index int, value float64) // 增量更新指定索引处的元素值

	// 数据操作和转换方法
	DataCopy() []float64 // 返回数据的切片副本
	DataPtr() []float64  // 返回数据的切片引用（直接操作底层数据）

	// 数据修改方法
	Zero() // 清空所有数据

	// 统计和复制方法
	NonZeroCount() int        // 统计非零元素数量
	Copy(target DataManager) // 复制数据到目标管理器
}

// Vector 向量接口定义
type Vector interface {
	// 基础属性方法
	Length() int    // 获取向量长度
	String() string // 格式化字符串输出

	// 数据访问方法
	Get(index int) float64              // 获取指定索引元素值
	Set(index int, value float64)       // 设置指定索引元素值
	Increment(index int, value float64) // 增量更新元素（value累加）

	// 数据操作和转换方法
	ToDense() []float64             // 转换为稠密切片
	BuildFromDense(dense []float64) // 从稠密切片构建向量

	// 数据修改方法
	Zero()         // 清空向量为零向量
	Copy(a Vector) // 复制自身数据到目标向量a

	// 数学运算方法
	DotProduct(other Vector) float64 // 计算与另一个向量的点积
	Scale(scalar float64)            // 向量缩放（所有元素乘scalar）
	Add(other Vector)                // 向量加法（自身 += 另一个向量）

	// 统计方法
	NonZeroCount() int // 统计非零元素数量
	MaxAbs() float64   // 获取向量中绝对值最大的元素
}

// UpdateVector 可更新向量接口（支持缓存与回溯）
type UpdateVector interface {
	Vector
	Update()      // 缓存数据刷到底层存储
	Rollback()    // 回溯操作（清空缓存，放弃修改）
	Pending() int // 缓存中尚未提交的元素数量
}

// Matrix 矩阵接口定义
type Matrix interface {
	// 基础属性方法
	Rows() int      // 获取矩阵行数
	Cols() int      // 获取矩阵列数
	String() string // 格式化字符串输出
	IsSquare() bool // 判断是否为方阵（行数=列数）

	// 数据访问方法
	Get(row, col int) float64              // 获取指定行列元素值
	Set(row, col int, value float64)       // 设置指定行列元素值
	Increment(row, col int, value float64) // 增量更新元素

	// 数据操作和转换方法
	ToDense() [][]float64             // 转换为稠密二维切片
	BuildFromDense(dense [][]float64) // 从稠密矩阵构建

	// 数据修改方法
	Zero()                   // 清空矩阵为零矩阵
	Copy(a Matrix)           // 复制自身数据到目标矩阵a
	SwapRows(row1, row2 int) // 交换两行

	// 数学运算方法
	MatrixVectorMultiply(x Vector) Vector // 矩阵向量乘法（返回A*x）
	IsSymmetric(tol float64) bool         // 判断是否在容差内对称

	// 统计方法
	NonZeroCount() int // 统计非零元素数量
}

// LU 接口定义了 LU 分解和求解线性方程组的操作。
type LU interface {
	Decompose(matrix Matrix) error // 对输入方阵执行LU分解（A=PLU）
	SolveReuse(b, x Vector) error  // 重用向量求解Ax=b（利用LU分解结果）
}

// LinearSolver 稠密线性方程组求解能力: 求解 A·x = b。
// 奇异或病态输入必须显式返回错误，不允许返回无意义的解。
type LinearSolver interface {
	Solve(a Matrix, b, x Vector) error
	Name() string
}
