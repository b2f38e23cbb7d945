package track

import "math/bits"

// Visibility 特征点可见性位图: 第 j 位为 1 表示点 j 在已合并的所有帧中都跟踪成功
type Visibility struct {
	words  []uint64
	length int
}

// NewVisibility 创建全部可见的位图
func NewVisibility(n int) *Visibility {
	v := &Visibility{words: make([]uint64, (n+63)/64), length: n}
	for i := range v.words {
		v.words[i] = ^uint64(0)
	}
	if r := n % 64; r != 0 {
		v.words[len(v.words)-1] = 1<<uint(r) - 1
	}
	return v
}

// Len 点数
func (v *Visibility) Len() int { return v.length }

// Get 点 j 是否可见，越界为 false
func (v *Visibility) Get(j int) bool {
	if j < 0 || j >= v.length {
		return false
	}
	return v.words[j/64]&(1<<uint(j%64)) != 0
}

// Clear 标记点 j 丢失
func (v *Visibility) Clear(j int) {
	if j < 0 || j >= v.length {
		return
	}
	v.words[j/64] &^= 1 << uint(j%64)
}

// And 合并一帧的跟踪状态（total &= status）
func (v *Visibility) And(status []bool) {
	for j, ok := range status {
		if !ok {
			v.Clear(j)
		}
	}
}

// Count 可见点数量
func (v *Visibility) Count() int {
	n := 0
	for _, w := range v.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Bools 转换为布尔切片
func (v *Visibility) Bools() []bool {
	out := make([]bool, v.length)
	for j := range out {
		out[j] = v.Get(j)
	}
	return out
}
