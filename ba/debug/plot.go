package debug

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// floor 对数坐标下的最小值，误差可能精确为 0
const floor = 1e-30

// Plot 误差与阻尼的静态图（gonum/plot）
type Plot struct {
	Record
	Width  vg.Length
	Height vg.Length
}

func (p *Plot) size() (vg.Length, vg.Length) {
	w, h := p.Width, p.Height
	if w <= 0 {
		w = 16 * vg.Centimeter
	}
	if h <= 0 {
		h = 10 * vg.Centimeter
	}
	return w, h
}

func xys(iter []int, values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(iter[i])
		pts[i].Y = math.Max(v, floor)
	}
	return pts
}

// Build 构建图表
func (p *Plot) Build() (*plot.Plot, error) {
	if p.Len() == 0 {
		return nil, fmt.Errorf("plot: empty record")
	}
	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("bundle adjustment %dx%d (%s, %s)", p.Cameras, p.Points, p.Mode, p.Policy)
	pl.X.Label.Text = "iteration"
	pl.Y.Label.Text = "value"
	pl.Y.Scale = plot.LogScale{}
	pl.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	pl.Add(plotter.NewGrid())

	errLine, err := plotter.NewLine(xys(p.Iteration, p.Error))
	if err != nil {
		return nil, err
	}
	errLine.Width = vg.Points(1.5)
	dampLine, err := plotter.NewLine(xys(p.Iteration, p.Damping))
	if err != nil {
		return nil, err
	}
	dampLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	pl.Add(errLine, dampLine)
	pl.Legend.Add("error", errLine)
	pl.Legend.Add("damping", dampLine)
	pl.Legend.Top = true
	return pl, nil
}

// Render 以 PNG 格式输出
func (p *Plot) Render(w io.Writer) error { return p.RenderFormat(w, "png") }

// RenderFormat 按格式（png, svg, pdf）输出
func (p *Plot) RenderFormat(w io.Writer, format string) error {
	pl, err := p.Build()
	if err != nil {
		return err
	}
	width, height := p.size()
	wt, err := pl.WriterTo(width, height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save 按文件扩展名保存
func (p *Plot) Save(path string) error {
	pl, err := p.Build()
	if err != nil {
		return err
	}
	width, height := p.size()
	return pl.Save(width, height, path)
}
