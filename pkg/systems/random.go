package systems

import (
	"math/rand"
	"time"
)

// RandomSource 可注入的随机数源
// *rand.Rand 直接满足该接口；测试中使用固定序列的桩
type RandomSource interface {
	Float64() float64
	Intn(n int) int
}

// NewRandomSource 创建随机数源
// seed 为 0 时使用当前时间
func NewRandomSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// clamp 将 v 限制在 [lo, hi]
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
