package debug

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Charts 曲线绘制
type Charts struct {
	Record
}

func newLogLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "iteration",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "log",
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(true),
	)
	return line
}

func lineData(values []float64) []opts.LineData {
	items := make([]opts.LineData, len(values))
	for i, v := range values {
		items[i] = opts.LineData{Value: v}
	}
	return items
}

// Render 格式化
func (c *Charts) Render(w io.Writer) error {
	lineE := newLogLine("误差曲线", "总重投影误差随迭代变化")
	lineE.SetXAxis(c.Iteration)
	lineE.AddSeries("error", lineData(c.Error),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))

	lineC := newLogLine("阻尼曲线", "阻尼因子随迭代变化")
	lineC.SetXAxis(c.Iteration)
	lineC.AddSeries("damping", lineData(c.Damping))

	// 退化步单独标注
	degenerate := make([]opts.ScatterData, 0)
	for i, d := range c.Degenerate {
		if d {
			degenerate = append(degenerate, opts.ScatterData{Value: []interface{}{c.Iteration[i], c.Error[i]}})
		}
	}
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "退化步", Subtitle: "被回溯的更新"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Scale: opts.Bool(true)}),
	)
	scatter.AddSeries("degenerate", degenerate)

	// 构建界面
	page := components.NewPage()
	page.AddCharts(
		lineE,
		lineC,
		scatter,
	)
	return page.Render(w)
}

// Handler 发布到网页面
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	if err := c.Render(w); err != nil {
		slog.Error("render charts", "err", err)
	}
}
