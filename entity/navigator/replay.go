package navigator

import (
	"math"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tripcore/clock"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/utils/container"
	"github.com/tsinghua-fib-lab/tripcore/utils/geometry"
	"github.com/tsinghua-fib-lab/tripcore/utils/randengine"
)

const replayProvider = "replay"

// ReplayOptions 轨迹回放参数
type ReplayOptions struct {
	Speed        float64       // 行驶速度（米/秒）
	NoiseMeters  float64       // GPS噪声标准差（米），0表示无噪声
	DetourAfter  time.Duration // 开始偏离路线的时间，0表示不偏离
	DetourMeters float64       // 偏离时的横向偏移（米）
	Seed         uint64
}

// ReplayEngine 轨迹回放定位源
// 功能：沿折线按固定速度前进，每次Tick产生一个定位并推送给监听者
// 说明：定位时间取自时钟；监听者在锁之外被调用
type ReplayEngine struct {
	clock clock.Clock
	opts  ReplayOptions
	rng   *randengine.Engine

	mtx         sync.Mutex
	line        orb.LineString
	length      float64
	s           float64
	elapsed     time.Duration
	monotonicNs int64

	listeners *container.ObserverSet[entity.LocationListener]
}

// NewReplayEngine 创建回放定位源
// 参数：clk-时钟，points-回放折线，opts-回放参数
func NewReplayEngine(clk clock.Clock, points []orb.Point, opts ReplayOptions) *ReplayEngine {
	e := &ReplayEngine{
		clock:     clk,
		opts:      opts,
		rng:       randengine.New(opts.Seed),
		listeners: container.NewObserverSet[entity.LocationListener](),
	}
	e.SetPath(points)
	return e
}

// SetPath 替换回放折线并回到起点
func (e *ReplayEngine) SetPath(points []orb.Point) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.line = orb.LineString(points)
	lengths := geometry.CumulativeLengths(e.line)
	e.length = 0
	if len(lengths) > 0 {
		e.length = lengths[len(lengths)-1]
	}
	e.s = 0
}

func (e *ReplayEngine) RequestLocationUpdates(l entity.LocationListener) bool {
	return e.listeners.Add(l)
}

func (e *ReplayEngine) RemoveLocationUpdates(l entity.LocationListener) bool {
	return e.listeners.Remove(l)
}

// Finished 是否已到达折线终点
func (e *ReplayEngine) Finished() bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.s >= e.length
}

// Tick 前进dt并推送一个定位
// 返回：本次推送后是否仍未到达终点
func (e *ReplayEngine) Tick(dt time.Duration) bool {
	e.mtx.Lock()
	if len(e.line) == 0 {
		e.mtx.Unlock()
		return false
	}
	e.elapsed += dt
	e.monotonicNs += dt.Nanoseconds()
	e.s = math.Min(e.s+e.opts.Speed*dt.Seconds(), e.length)
	p, bearing := geometry.PointAlong(e.line, e.s)
	if e.opts.DetourAfter > 0 && e.elapsed >= e.opts.DetourAfter {
		p = geo.PointAtBearingAndDistance(p, bearing+90, e.opts.DetourMeters)
	}
	accuracy := 0.
	if e.opts.NoiseMeters > 0 {
		d := math.Abs(e.rng.NormSafe(0, e.opts.NoiseMeters))
		p = geo.PointAtBearingAndDistance(p, e.rng.UniformSafe(0, 360), d)
		accuracy = e.opts.NoiseMeters
	}
	loc := entity.Location{
		Provider:             replayProvider,
		Longitude:            p.Lon(),
		Latitude:             p.Lat(),
		Time:                 e.clock.Now(),
		ElapsedRealtimeNanos: e.monotonicNs,
		Speed:                lo.ToPtr(e.opts.Speed),
		Bearing:              lo.ToPtr(bearing),
		HorizontalAccuracy:   lo.ToPtr(accuracy),
		Extras:               map[string]any{"replay_s": e.s},
	}
	loc.SetMock(true)
	more := e.s < e.length
	e.mtx.Unlock()

	e.listeners.Notify(func(l entity.LocationListener) {
		l.OnLocations([]entity.Location{loc})
	})
	return more
}
