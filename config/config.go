// Package config 运行配置: YAML 文件覆盖默认值，validator 校验，命令行参数再覆盖。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"lensblur/ba"
	"lensblur/maths"
	"lensblur/synth"
	"lensblur/track"
	"lensblur/types"
)

// Solver 求解器参数
type Solver struct {
	Seed           int64   `yaml:"seed"`
	Scale          float64 `yaml:"scale" validate:"gt=0"`
	DepthMin       float64 `yaml:"depth_min" validate:"gt=0"`
	DepthMax       float64 `yaml:"depth_max" validate:"gtefield=DepthMin"`
	Jitter         float64 `yaml:"jitter" validate:"gte=0"`
	Damping        float64 `yaml:"damping" validate:"gt=0"`
	DampingMode    string  `yaml:"damping_mode" validate:"oneof=multiplicative marquardt"`
	Policy         string  `yaml:"policy" validate:"oneof=keep revert"`
	Differentiator string  `yaml:"differentiator" validate:"oneof=analytic numerical"`
	Formula        string  `yaml:"formula" validate:"oneof=central forward"`
	FiniteStep     float64 `yaml:"finite_step" validate:"gt=0"`
	LinearSolver   string  `yaml:"linear_solver" validate:"oneof=lu gonum"`
	MinPoints      int     `yaml:"min_points" validate:"gte=1"`
}

// Output 结果输出
type Output struct {
	Scale   float64 `yaml:"scale" validate:"gt=0"` // 输出坐标缩放
	Points  string  `yaml:"points"`                // 点云 CSV 路径，"-" 表示标准输出
	Cameras string  `yaml:"cameras"`
	Report  string  `yaml:"report"`
}

// Debug 调试与观测输出
type Debug struct {
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
	Charts   string `yaml:"charts"`  // go-echarts HTML 路径
	Plot     string `yaml:"plot"`    // gonum/plot 图片路径
	Record   string `yaml:"record"`  // 迭代记录 JSON 路径
	Metrics  string `yaml:"metrics"` // Prometheus 文本文件路径
}

// Config 全部配置
type Config struct {
	Solver        Solver              `yaml:"solver"`
	Stop          ba.Stop             `yaml:"stop"`
	Normalization track.Normalization `yaml:"normalization"`
	Output        Output              `yaml:"output"`
	Debug         Debug               `yaml:"debug"`
	Synth         synth.Options       `yaml:"synth"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Solver: Solver{
			Scale:          1,
			DepthMin:       types.DefaultDepthMin,
			DepthMax:       types.DefaultDepthMax,
			Jitter:         types.DefaultTranslationJitter,
			Damping:        types.DefaultInitialDamping,
			DampingMode:    ba.DampingMarquardt.String(),
			Policy:         ba.StepRevert.String(),
			Differentiator: ba.DiffAnalytic,
			Formula:        "central",
			FiniteStep:     types.DefaultFiniteStep,
			LinearSolver:   maths.SolverGonum,
			MinPoints:      types.DefaultMinPoints,
		},
		Stop: ba.Stop{
			MaxSteps:    types.DefaultMaxSteps,
			RelativeTol: 1e-10,
			MaxDamping:  1e12,
			MaxFailures: 3,
		},
		Normalization: track.DefaultNormalization(),
		Output:        Output{Scale: types.DefaultOutputScale},
		Debug:         Debug{LogLevel: "info"},
		Synth:         synth.DefaultOptions(),
	}
}

var validate = validator.New()

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load 读取 YAML 配置并覆盖默认值；path 为空时返回默认配置
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save 写出 YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Level 日志级别
func (d Debug) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(d.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Options 转换为求解器选项
func (s Solver) Options(logger *slog.Logger) ([]ba.Option, error) {
	mode := ba.DampingMultiplicative
	if s.DampingMode == ba.DampingMarquardt.String() {
		mode = ba.DampingMarquardt
	}
	policy := ba.StepKeep
	if s.Policy == ba.StepRevert.String() {
		policy = ba.StepRevert
	}
	var diff ba.Differentiator = ba.AnalyticDifferentiator{}
	if s.Differentiator == ba.DiffNumerical {
		diff = ba.NewNumericalDifferentiator(s.Formula != "forward", s.FiniteStep)
	}
	linear, err := maths.NewLinearSolver(s.LinearSolver)
	if err != nil {
		return nil, fmt.Errorf("solver options: %w: %w", types.ErrInvalidInput, err)
	}
	return []ba.Option{
		ba.WithSeed(s.Seed),
		ba.WithLogger(logger),
		ba.WithScale(s.Scale),
		ba.WithDepthRange(s.DepthMin, s.DepthMax),
		ba.WithJitter(s.Jitter),
		ba.WithDamping(s.Damping, mode),
		ba.WithPolicy(policy),
		ba.WithDifferentiator(diff),
		ba.WithLinearSolver(linear),
		ba.WithMinPoints(s.MinPoints),
	}, nil
}
