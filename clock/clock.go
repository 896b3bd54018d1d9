package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/tsinghua-fib-lab/tripcore/utils/config"
	"github.com/tsinghua-fib-lab/tripcore/utils/container"
)

// Clock 时间源
// 功能：为定时刷新、请求时延等提供统一的时间与定时器接口
// 说明：生产环境使用Real，测试与回放使用Sim
type Clock interface {
	Now() time.Time
	// AfterFunc 在d之后调用f，返回可取消的定时器
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer 可取消的定时器
type Timer interface {
	// Stop 取消定时器，定时器已触发或已取消时返回false
	Stop() bool
}

type realClock struct{}

// Real 返回基于系统时间的时钟
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Sim 仿真时钟
// 功能：按固定步长推进的确定性时钟，定时器在推进时同步触发
// 说明：定时器按到期时间排序触发，到期时间相同的按注册顺序触发；
// 触发回调时时钟已推进到该定时器的到期时间，回调中新注册且在本次推进范围内到期的定时器同样会被触发
type Sim struct {
	DT         float64 // 每步时间间隔（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步，回放区间[START, END)

	mtx          sync.Mutex
	base         time.Time
	t            float64 // 当前时间（秒）
	internalStep int32   // 当前步数
	timers       *container.PriorityQueue[*simTimer]
}

type simTimer struct {
	clock    *Sim
	f        func()
	deadline float64
	stopped  bool
	fired    bool
}

func (t *simTimer) Stop() bool {
	t.clock.mtx.Lock()
	defer t.clock.mtx.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// New 根据回放控制配置创建仿真时钟
// 参数：stepConfig-控制步配置，包含起始步、总步数与步长
// 返回：初始化完成的时钟实例，起点为Unix零点加上起始步对应的时间
func New(stepConfig config.ControlStep) *Sim {
	c := &Sim{
		DT:         stepConfig.Interval,
		START_STEP: stepConfig.Start,
		END_STEP:   stepConfig.Start + stepConfig.Total,
		base:       time.Unix(0, 0).UTC(),
		timers:     container.NewPriorityQueue[*simTimer](),
	}
	c.Init()
	return c
}

// NewSim 创建以base为起点、步长为1秒的仿真时钟，用于测试
func NewSim(base time.Time) *Sim {
	return &Sim{
		DT:     1,
		base:   base,
		timers: container.NewPriorityQueue[*simTimer](),
	}
}

// Init 重置时钟到起始步，已注册的定时器保留
func (c *Sim) Init() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.internalStep = c.START_STEP
	c.t = float64(c.internalStep) * c.DT
}

// T 当前时间（秒）
func (c *Sim) T() float64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.t
}

// InternalStep 当前步数
func (c *Sim) InternalStep() int32 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.internalStep
}

func (c *Sim) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.base.Add(seconds(c.t))
}

func (c *Sim) AfterFunc(d time.Duration, f func()) Timer {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if d < 0 {
		d = 0
	}
	t := &simTimer{clock: c, f: f, deadline: c.t + d.Seconds()}
	c.timers.HeapPush(t, t.deadline)
	return t
}

// Pending 未触发且未取消的定时器数量
func (c *Sim) Pending() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	n := 0
	for _, t := range c.snapshotLocked() {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *Sim) snapshotLocked() []*simTimer {
	out := make([]*simTimer, 0, c.timers.Len())
	tmp := container.NewPriorityQueue[*simTimer]()
	for c.timers.Len() > 0 {
		t, p := c.timers.HeapPop()
		out = append(out, t)
		tmp.Push(t, p)
	}
	tmp.Heapify()
	c.timers = tmp
	return out
}

// Advance 推进时钟d，依次触发区间内到期的定时器
func (c *Sim) Advance(d time.Duration) {
	c.mtx.Lock()
	target := c.t + d.Seconds()
	c.mtx.Unlock()
	c.advanceTo(target)
}

func (c *Sim) advanceTo(target float64) {
	const eps = 1e-9
	for {
		c.mtx.Lock()
		if c.timers.Len() == 0 {
			break
		}
		t, deadline := c.timers.First()
		if deadline > target+eps {
			break
		}
		c.timers.HeapPop()
		if t.stopped {
			c.mtx.Unlock()
			continue
		}
		t.fired = true
		if deadline > c.t {
			c.t = deadline
		}
		c.mtx.Unlock()
		t.f()
	}
	if target > c.t {
		c.t = target
	}
	c.mtx.Unlock()
}

// Step 前进一步并触发到期定时器
// 返回：到达结束步后返回false且不再推进
func (c *Sim) Step() bool {
	c.mtx.Lock()
	if c.END_STEP > c.START_STEP && c.internalStep >= c.END_STEP {
		c.mtx.Unlock()
		return false
	}
	c.internalStep++
	target := float64(c.internalStep) * c.DT
	c.mtx.Unlock()
	c.advanceTo(target)
	return true
}

// String 获取时钟的字符串表示（HH:MM:SS）
func (c *Sim) String() string {
	h, m, s := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, int(s))
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Sim) GetHourMinuteSecond() (int, int, float64) {
	t := c.T()
	hour := int(t) / 3600
	minute := int(t) % 3600 / 60
	second := t - float64(hour*3600+minute*60)
	return hour, minute, second
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
