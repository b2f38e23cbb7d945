package maths

import (
	"fmt"
)

// dataManager 提供了 DataManager 接口的通用实现。
type dataManager struct {
	data []float64
}

// NewDataManager 创建一个指定长度的新的 DataManager。
func NewDataManager(length int) DataManager {
	return &dataManager{
		data: make([]float64, length),
	}
}

// NewDataManagerWithData 使用给定的数据切片创建一个新的 DataManager。
// 注意：不复制切片，调用方放弃对 data 的所有权。
func NewDataManagerWithData(data []float64) DataManager {
	return &dataManager{
		data: data,
	}
}

// Length 返回数据的长度。
func (dm *dataManager) Length() int {
	return len(dm.data)
}

// String 返回数据的字符串表示形式。
func (dm *dataManager) String() string {
	return fmt.Sprintf("%v", dm.data)
}

// Get 返回指定索引处的值。
func (dm *dataManager) Get(index int) float64 {
	return dm.data[index]
}

// Set 设置指定索引处的值。
func (dm *dataManager) Set(index int, value float64) {
	dm.data[index] = value
}

// Increment 增加指定索引处的值。
func (dm *dataManager) Increment(index int, value float64) {
	dm.data[index] += value
}

// DataCopy 返回数据切片的副本。
func (dm *dataManager) DataCopy() []float64 {
	cpy := make([]float64, len(dm.data))
	copy(cpy, dm.data)
	return cpy
}

// DataPtr 返回数据切片本身。
// 注意：直接修改返回的切片会影响原始数据。
func (dm *dataManager) DataPtr() []float64 {
	return dm.data
}

// Zero 将所有元素设置为零。
func (dm *dataManager) Zero() {
	clear(dm.data)
}

// NonZeroCount 计算非零元素的数量。
func (dm *dataManager) NonZeroCount() int {
	count := 0
	for _, v := range dm.data {
		if v != 0 {
			count++
		}
	}
	return count
}

// Copy 将数据复制到另一个 DataManager。
// 如果目标是 `*dataManager` 类型，则使用高效的 `copy` 函数。
// 否则，逐个元素进行复制。
func (dm *dataManager) Copy(target DataManager) {
	if dm.Length() != target.Length() {
		panic("dataManager.Copy: length mismatch")
	}
	if targetDm, ok := target.(*dataManager); ok {
		copy(targetDm.data, dm.data)
	} else {
		for i := 0; i < dm.Length(); i++ {
			target.Set(i, dm.Get(i))
		}
	}
}
