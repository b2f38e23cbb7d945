package types

import "errors"

// 错误类型，统一以 "lensblur:" 前缀，调用方使用 errors.Is 匹配。
var (
	// ErrInvalidInput 空的相机/点集合、观测数量不一致、坐标非有限值
	ErrInvalidInput = errors.New("lensblur: invalid input")

	// ErrFewFeatures 存活特征点太少，约束数不足以确定参数
	ErrFewFeatures = errors.New("lensblur: too few features")

	// ErrBundleAdjustmentFailed 线性方程组奇异或求解发散
	ErrBundleAdjustmentFailed = errors.New("lensblur: bundle adjustment failed")

	// ErrAlreadyRunning 上一次估计尚未结束
	ErrAlreadyRunning = errors.New("lensblur: estimation already running")
)
