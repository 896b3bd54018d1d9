// 随机数引擎，包装了golang.org/x/exp/rand，用于轨迹回放噪声与路况扰动
package randengine

import (
	"flag"
	"sync"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供可复现的随机数序列，带Safe后缀的方法可并发调用
type Engine struct {
	*rand.Rand            // 底层随机数生成器
	mtx        sync.Mutex // 互斥锁，用于线程安全操作
}

// New 创建随机数引擎
// 参数：seed-随机数种子，实际种子为seed加上命令行的种子偏移量
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// PTrue 以概率p返回true（非线程安全）
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// PTrueSafe 以概率p返回true（线程安全）
func (e *Engine) PTrueSafe(p float64) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64() < p
}

// IntnSafe 生成[0, n)内的随机整数（线程安全）
func (e *Engine) IntnSafe(n int) int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Intn(n)
}

// Float64Safe 生成[0.0, 1.0)内的随机浮点数（线程安全）
func (e *Engine) Float64Safe() float64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64()
}

// UniformSafe 生成[lo, hi)内均匀分布的随机浮点数（线程安全）
func (e *Engine) UniformSafe(lo, hi float64) float64 {
	return lo + (hi-lo)*e.Float64Safe()
}

// NormSafe 生成均值为mean、标准差为std的正态分布随机数（线程安全）
// 说明：std<=0时直接返回mean
func (e *Engine) NormSafe(mean, std float64) float64 {
	if std <= 0 {
		return mean
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return mean + std*e.NormFloat64()
}
