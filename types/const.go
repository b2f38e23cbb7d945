package types

// 默认参数常量定义
var (
	DefaultInitialDamping    = 1e-3 // 初始阻尼因子
	DampingScale             = 10.0 // 每步阻尼缩放倍数
	DefaultDepthMin          = 2.0  // 初始化深度下限
	DefaultDepthMax          = 4.0  // 初始化深度上限
	DefaultTranslationJitter = 0.05 // 初始化相机平移抖动幅度
	DefaultMinPoints         = 1    // 最少特征点数
	DefaultFiniteStep        = 1e-6 // 数值微分步长
	DefaultNormalizationSize = 512  // 默认归一化尺寸（像素）
	DefaultMaxSteps          = 20   // 默认最大迭代步数
	DefaultOutputScale       = 1.0  // 输出坐标缩放
)

// 单对观测的局部参数数量
const (
	CameraParams = 6 // 平移3 + 姿态3
	PointParams  = 3 // 逆深度参数 (a, b, ρ)
	LocalParams  = CameraParams + PointParams
	Channels     = 3 // 残差通道 x, y, z
)
