package maths

import "fmt"

// updateVector 更新向量实现
// 基于 denseVector 实现 UpdateVector 接口，使用 uint16 分块位图标记缓存状态。
// 写入只落在缓存上，Update 提交到底层，Rollback 丢弃。
type updateVector struct {
	base      *denseVector // 底层已提交数据
	bitmap    []uint16     // 分块位图，每个uint16表示16个元素的缓存状态
	cache     []float64    // 缓存数据
	blockSize int          // 块大小（固定为16）
}

// NewUpdateVector 创建新的更新向量（拷贝 base 的当前值作为已提交数据）
func NewUpdateVector(base Vector) UpdateVector {
	length := base.Length()
	dv := NewDenseVector(length).(*denseVector)
	base.Copy(dv)
	return newUpdateVector(dv)
}

// NewUpdateVectorPtr 创建新的更新向量（直接以 base 作为底层存储）
func NewUpdateVectorPtr(base Vector) UpdateVector {
	if dv, ok := base.(*denseVector); ok {
		return newUpdateVector(dv)
	}
	return NewUpdateVector(base)
}

func newUpdateVector(base *denseVector) *updateVector {
	blockSize := 16
	length := base.Length()
	return &updateVector{
		base:      base,
		bitmap:    make([]uint16, (length+blockSize-1)/blockSize),
		cache:     make([]float64, length),
		blockSize: blockSize,
	}
}

// getBlockIndexAndPosition 计算给定索引对应的块索引和块内位置
func (uv *updateVector) getBlockIndexAndPosition(index int) (int, int) {
	return index / uv.blockSize, index % uv.blockSize
}

// isBitSet 检查位图中指定位置的bit是否为1
func (uv *updateVector) isBitSet(index int) bool {
	blockIndex, position := uv.getBlockIndexAndPosition(index)
	return (uv.bitmap[blockIndex] & (1 << position)) != 0
}

// setBit 设置位图中指定位置的bit为1
func (uv *updateVector) setBit(index int) {
	blockIndex, position := uv.getBlockIndexAndPosition(index)
	uv.bitmap[blockIndex] |= 1 << position
}

// clearAllBits 清除所有位图（设置为0）
func (uv *updateVector) clearAllBits() {
	clear(uv.bitmap)
}

func (uv *updateVector) checkIndex(index int) {
	if index < 0 || index >= uv.Length() {
		panic("index out of range")
	}
}

// Length 返回向量长度
func (uv *updateVector) Length() int { return uv.base.Length() }

// Get 获取向量元素
// 先检查位图，如果位图为1则从cache中获取值，如果为0则从底层数据里面获取值
func (uv *updateVector) Get(index int) float64 {
	uv.checkIndex(index)
	if uv.isBitSet(index) {
		return uv.cache[index]
	}
	return uv.base.Get(index)
}

// Set 设置向量元素值
// 设置缓存值并且将位图设置为1
func (uv *updateVector) Set(index int, value float64) {
	uv.checkIndex(index)
	uv.cache[index] = value
	uv.setBit(index)
}

// Increment 增量设置向量元素（累加值）
func (uv *updateVector) Increment(index int, value float64) {
	uv.checkIndex(index)
	if uv.isBitSet(index) {
		uv.cache[index] += value
		return
	}
	uv.cache[index] = uv.base.Get(index) + value
	uv.setBit(index)
}

// Update 更新操作
// 将位图为1的值写入底层以后将位图设置为0
func (uv *updateVector) Update() {
	for i := 0; i < uv.Length(); i++ {
		if uv.isBitSet(i) {
			uv.base.Set(i, uv.cache[i])
		}
	}
	uv.clearAllBits()
}

// Rollback 回溯操作
// 将位图标记置0，清空缓存
func (uv *updateVector) Rollback() {
	uv.clearAllBits()
	clear(uv.cache)
}

// Pending 缓存中尚未提交的元素数量
func (uv *updateVector) Pending() int {
	n := 0
	for _, block := range uv.bitmap {
		for ; block != 0; block &= block - 1 {
			n++
		}
	}
	return n
}

// ToDense 当前可见数据（底层+缓存）的副本
func (uv *updateVector) ToDense() []float64 {
	out := make([]float64, uv.Length())
	for i := range out {
		out[i] = uv.Get(i)
	}
	return out
}

// BuildFromDense 从稠密向量构建向量（直接写入底层并丢弃缓存）
func (uv *updateVector) BuildFromDense(dense []float64) {
	uv.base.BuildFromDense(dense)
	uv.Rollback()
}

// Zero 清空向量，重置为零向量
func (uv *updateVector) Zero() {
	uv.base.Zero()
	uv.Rollback()
}

// Copy 只复制当前可见的数据（底层+缓存）
func (uv *updateVector) Copy(a Vector) {
	for i := 0; i < uv.Length(); i++ {
		a.Set(i, uv.Get(i))
	}
}

// DotProduct 计算与另一个向量的点积
func (uv *updateVector) DotProduct(other Vector) float64 {
	if other.Length() != uv.Length() {
		panic("vector dimension mismatch")
	}
	result := 0.0
	for i := 0; i < uv.Length(); i++ {
		result += uv.Get(i) * other.Get(i)
	}
	return result
}

// Scale 向量缩放（写入缓存）
func (uv *updateVector) Scale(scalar float64) {
	for i := 0; i < uv.Length(); i++ {
		uv.Set(i, uv.Get(i)*scalar)
	}
}

// Add 向量加法（写入缓存）
func (uv *updateVector) Add(other Vector) {
	if other.Length() != uv.Length() {
		panic("vector dimension mismatch")
	}
	for i := 0; i < uv.Length(); i++ {
		uv.Increment(i, other.Get(i))
	}
}

// NonZeroCount 统计可见数据中的非零元素
func (uv *updateVector) NonZeroCount() int {
	n := 0
	for i := 0; i < uv.Length(); i++ {
		if uv.Get(i) != 0 {
			n++
		}
	}
	return n
}

// MaxAbs 可见数据中的最大绝对值
func (uv *updateVector) MaxAbs() float64 {
	return NewDenseVectorWithData(uv.ToDense()).MaxAbs()
}

// String 返回向量的字符串表示
func (uv *updateVector) String() string {
	result := "["
	for i := 0; i < uv.Length(); i++ {
		result += fmt.Sprintf("%8.4f ", uv.Get(i))
	}
	result += "]"
	return result
}
