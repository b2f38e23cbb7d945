// Package export 输出重建结果: 点云与相机 CSV、JSON 运行报告。
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"lensblur/ba"
)

// Precision CSV 中浮点数的小数位数
var Precision = 6

func format(v float64) string { return strconv.FormatFloat(v, 'f', Precision, 64) }

// WritePoints 每行一个点 x,y,z（世界坐标乘以 scale）
func WritePoints(w io.Writer, points []r3.Vector, scale float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "y", "z"}); err != nil {
		return err
	}
	for _, p := range points {
		p = p.Mul(scale)
		if err := cw.Write([]string{format(p.X), format(p.Y), format(p.Z)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCameras 每行一台相机的平移与姿态（平移乘以 scale）
func WriteCameras(w io.Writer, cams []ba.Camera, scale float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"camera", "tx", "ty", "tz", "pose_x", "pose_y", "pose_z"}); err != nil {
		return err
	}
	for i, c := range cams {
		t := c.Translation.Mul(scale)
		row := []string{strconv.Itoa(i), format(t.X), format(t.Y), format(t.Z),
			format(c.Pose.X), format(c.Pose.Y), format(c.Pose.Z)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CameraRow 报告中的相机
type CameraRow struct {
	Camera      int        `json:"camera"`
	Translation [3]float64 `json:"translation"`
	Pose        [3]float64 `json:"pose"`
}

// PointRow 报告中的特征点
type PointRow struct {
	ID       int        `json:"id"` // 原始跟踪结果中的点索引
	Position [3]float64 `json:"position"`
}

// Report JSON 运行报告
type Report struct {
	RunID        uuid.UUID   `json:"run_id"`
	Cameras      int         `json:"cameras"`
	Points       int         `json:"points"`
	Survival     float64     `json:"survival"`
	Scale        float64     `json:"scale"`
	Steps        int         `json:"steps"`
	Failures     int         `json:"failures"`
	InitialError float64     `json:"initial_error"`
	FinalError   float64     `json:"final_error"`
	Damping      float64     `json:"damping"`
	Reason       ba.Reason   `json:"reason"`
	Errors       []float64   `json:"errors"`
	CameraPoses  []CameraRow `json:"camera_poses"`
	Structure    []PointRow  `json:"structure"`
}

// NewReport 汇总一次运行
// ids 为存活点在原始跟踪结果中的索引，长度必须与 points 一致。
func NewReport(runID uuid.UUID, rep ba.Report, cams []ba.Camera, points []r3.Vector, ids []int, survival, scale float64) (*Report, error) {
	if len(ids) != len(points) {
		return nil, fmt.Errorf("export: %d ids for %d points", len(ids), len(points))
	}
	r := &Report{
		RunID:        runID,
		Cameras:      len(cams),
		Points:       len(points),
		Survival:     survival,
		Scale:        scale,
		Steps:        rep.Steps,
		Failures:     rep.Failures,
		InitialError: rep.InitialError,
		FinalError:   rep.FinalError,
		Damping:      rep.Damping,
		Reason:       rep.Reason,
		Errors:       rep.Errors(),
		CameraPoses:  make([]CameraRow, len(cams)),
		Structure:    make([]PointRow, len(points)),
	}
	for i, c := range cams {
		t := c.Translation.Mul(scale)
		r.CameraPoses[i] = CameraRow{
			Camera:      i,
			Translation: [3]float64{t.X, t.Y, t.Z},
			Pose:        [3]float64{c.Pose.X, c.Pose.Y, c.Pose.Z},
		}
	}
	for j, p := range points {
		p = p.Mul(scale)
		r.Structure[j] = PointRow{ID: ids[j], Position: [3]float64{p.X, p.Y, p.Z}}
	}
	return r, nil
}

// WriteReport 缩进 JSON
func WriteReport(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
