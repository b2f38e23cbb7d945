package debug

import (
	"encoding/json"
	"io"

	"lensblur/ba"
)

// Record 记录迭代历史
type Record struct {
	Cameras    int       `json:"cameras"`
	Points     int       `json:"points"`
	Mode       string    `json:"mode"`
	Policy     string    `json:"policy"`
	Iteration  []int     `json:"iteration"`
	Error      []float64 `json:"error"`
	Damping    []float64 `json:"damping"`
	Improved   []bool    `json:"improved"`
	Degenerate []bool    `json:"degenerate"`

	pending bool    // 第 0 步待由第一步结果补齐
	damping float64 // 初始阻尼
}

// Init 初始化，记录第 0 步（初始误差与初始阻尼）
func (list *Record) Init(s *ba.Solver) {
	l := s.Layout()
	*list = Record{
		Cameras: l.Cameras,
		Points:  l.Points,
		Mode:    s.Mode().String(),
		Policy:  s.Policy().String(),
	}
	list.append(0, s.Error(), s.Damping(), false, false)
}

// Begin 不持有求解器时初始化，第 0 步的误差取第一步的 PreviousError
func (list *Record) Begin(mode, policy string, damping float64) {
	*list = Record{Mode: mode, Policy: policy, pending: true, damping: damping}
}

func (list *Record) append(i int, e, c float64, improved, degenerate bool) {
	list.Iteration = append(list.Iteration, i)
	list.Error = append(list.Error, e)
	list.Damping = append(list.Damping, c)
	list.Improved = append(list.Improved, improved)
	list.Degenerate = append(list.Degenerate, degenerate)
}

// Update 记录一步结果
func (list *Record) Update(res ba.StepResult) {
	if list.pending {
		list.pending = false
		list.append(0, res.PreviousError, list.damping, false, false)
	}
	list.append(res.Iteration, res.Error, res.Damping, res.Improved, res.Degenerate)
}

// Observe 作为 ba.Run 的观察者使用
func (list *Record) Observe(res ba.StepResult) bool {
	list.Update(res)
	return true
}

// Len 记录条数（含第 0 步）
func (list *Record) Len() int { return len(list.Iteration) }

// Render 格式和输出内容
func (list *Record) Render(w io.Writer) error { return json.NewEncoder(w).Encode(list) }
