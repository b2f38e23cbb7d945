package maths

import (
	"fmt"
	"math"
)

// denseVector 稠密向量实现
// 基于 DataManager 实现 Vector 接口
type denseVector struct {
	DataManager
}

// NewDenseVector 创建新的稠密向量
func NewDenseVector(length int) Vector {
	return &denseVector{
		DataManager: NewDataManager(length),
	}
}

// NewDenseVectorWithData 从现有数据创建稠密向量
func NewDenseVectorWithData(data []float64) Vector {
	return &denseVector{
		DataManager: NewDataManagerWithData(data),
	}
}

// BuildFromDense 从稠密向量构建向量
func (v *denseVector) BuildFromDense(dense []float64) {
	if len(dense) != v.Length() {
		panic("dimension mismatch")
	}
	for i := 0; i < v.Length(); i++ {
		v.Set(i, dense[i])
	}
}

// Copy 将自身值复制到 a 向量
func (v *denseVector) Copy(a Vector) {
	switch target := a.(type) {
	case *denseVector:
		// 直接复制数据管理器
		v.DataManager.Copy(target.DataManager)
	default:
		// 对于其他类型的向量实现，逐个元素复制
		for i := 0; i < v.Length(); i++ {
			a.Set(i, v.Get(i))
		}
	}
}

// ToDense 转换为稠密切片（副本）
func (v *denseVector) ToDense() []float64 {
	return v.DataManager.DataCopy()
}

// DotProduct 计算与另一个向量的点积
func (v *denseVector) DotProduct(other Vector) float64 {
	if other.Length() != v.Length() {
		panic("vector dimension mismatch")
	}
	result := 0.0
	for i := 0; i < v.Length(); i++ {
		result += v.Get(i) * other.Get(i)
	}
	return result
}

// Scale 向量缩放
func (v *denseVector) Scale(scalar float64) {
	for i := 0; i < v.Length(); i++ {
		v.Set(i, v.Get(i)*scalar)
	}
}

// Add 向量加法
func (v *denseVector) Add(other Vector) {
	if other.Length() != v.Length() {
		panic("vector dimension mismatch")
	}
	for i := 0; i < v.Length(); i++ {
		v.Increment(i, other.Get(i))
	}
}

// MaxAbs 获取绝对值最大的元素（返回绝对值）
func (v *denseVector) MaxAbs() float64 {
	m := 0.0
	for i := 0; i < v.Length(); i++ {
		if a := math.Abs(v.Get(i)); a > m {
			m = a
		}
	}
	return m
}

// String 返回向量的字符串表示
func (v *denseVector) String() string {
	result := "["
	for i := 0; i < v.Length(); i++ {
		result += fmt.Sprintf("%8.4f ", v.Get(i))
	}
	result += "]"
	return result
}
