package routerefresh

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/tripcore/clock"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/utils/config"
	"github.com/tsinghua-fib-lab/tripcore/utils/metrics"
)

// Option 刷新控制器选项
type Option func(*Controller)

// WithInterval 刷新间隔，非正数时忽略
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithDiffProvider 路线变化描述
func WithDiffProvider(p DiffProvider) Option {
	return func(c *Controller) { c.diff = p }
}

// WithLogger 日志记录器
func WithLogger(l *logrus.Entry) Option {
	return func(c *Controller) { c.log = l }
}

// Controller 路线定时刷新
// 功能：对可刷新的主路线按固定间隔请求最新路况，成功后以REFRESH原因写回路线会话
// 说明：每次刷新前取消上一次未完成的请求；Restart与Stop使之前的定时器与结果失效
type Controller struct {
	directions entity.IDirectionsSession
	trip       entity.ITripSession
	clock      clock.Clock
	interval   time.Duration
	diff       DiffProvider
	log        *logrus.Entry

	mtx     sync.Mutex
	route   *entity.Route
	timer   clock.Timer
	gen     uint64 // Restart/Stop时递增
	current *request
}

// 一次刷新请求
type request struct {
	id        int64
	hasID     bool // RequestRouteRefresh已返回
	done      bool // 回调已发生
	abandoned bool // 在得到ID之前被放弃，得到ID后立即取消
}

// New 创建路线刷新控制器
func New(directions entity.IDirectionsSession, trip entity.ITripSession, clk clock.Clock, opts ...Option) *Controller {
	c := &Controller{
		directions: directions,
		trip:       trip,
		clock:      clk,
		interval:   config.DefaultRefreshInterval,
		diff:       AnnotationDiff{},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Interval 刷新间隔
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// Restart 以新的主路线重新开始刷新
// 说明：取消进行中的请求与定时器；路线不可刷新时记录一次警告且不再调度
func (c *Controller) Restart(route *entity.Route) {
	c.mtx.Lock()
	cancelID, cancel := c.resetLocked()
	c.route = route
	gen := c.gen
	err := route.IsRefreshable()
	if err == nil {
		c.scheduleLocked(gen)
	}
	c.mtx.Unlock()

	if cancel {
		c.directions.CancelRouteRefreshRequest(cancelID)
	}
	if err != nil {
		c.log.Warnf("unable to refresh route %s: %v", route.ID(), err)
		metrics.RecordRefresh(context.Background(), "ineligible")
	}
}

// UpdateRoute 替换正在刷新的主路线，保持原有的刷新时刻
// 说明：用于接受刷新结果后的路线；路线ID不同或尚未调度时等同于Restart
func (c *Controller) UpdateRoute(route *entity.Route) {
	c.mtx.Lock()
	if c.timer == nil || c.route.ID() != route.ID() {
		c.mtx.Unlock()
		c.Restart(route)
		return
	}
	c.route = route
	c.mtx.Unlock()
}

// Stop 停止刷新并取消进行中的请求，未启动时无效果
func (c *Controller) Stop() {
	c.mtx.Lock()
	cancelID, cancel := c.resetLocked()
	c.route = nil
	c.mtx.Unlock()
	if cancel {
		c.directions.CancelRouteRefreshRequest(cancelID)
	}
}

// 停止定时器并使旧结果失效，返回需要取消的请求
func (c *Controller) resetLocked() (int64, bool) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	return c.takeCurrentLocked()
}

// 放弃当前请求，已得到ID时返回该ID
func (c *Controller) takeCurrentLocked() (int64, bool) {
	r := c.current
	c.current = nil
	if r == nil || r.done {
		return 0, false
	}
	if !r.hasID {
		r.abandoned = true
		return 0, false
	}
	return r.id, true
}

func (c *Controller) scheduleLocked(gen uint64) {
	c.timer = c.clock.AfterFunc(c.interval, func() { c.tick(gen) })
}

func (c *Controller) tick(gen uint64) {
	c.mtx.Lock()
	if gen != c.gen {
		c.mtx.Unlock()
		return
	}
	c.scheduleLocked(gen)
	cancelID, cancel := c.takeCurrentLocked()
	route := c.route
	req := &request{}
	c.current = req
	c.mtx.Unlock()

	if cancel {
		c.directions.CancelRouteRefreshRequest(cancelID)
	}
	legIndex := 0
	if p := c.trip.RouteProgress(); p != nil {
		legIndex = p.LegIndex
	}
	c.log.Debugf("refreshing route %s from leg %d", route.ID(), legIndex)
	id := c.directions.RequestRouteRefresh(context.Background(), route, legIndex, func(res entity.RouteRefreshResult) {
		c.onResult(gen, req, route, legIndex, res)
	})

	c.mtx.Lock()
	req.id, req.hasID = id, true
	cancel = req.abandoned && !req.done
	c.mtx.Unlock()
	if cancel {
		c.directions.CancelRouteRefreshRequest(id)
	}
}

func (c *Controller) onResult(gen uint64, req *request, old *entity.Route, legIndex int, res entity.RouteRefreshResult) {
	ctx := context.Background()
	c.mtx.Lock()
	req.done = true
	if c.current == req {
		c.current = nil
	}
	stale := gen != c.gen
	c.mtx.Unlock()

	switch {
	case errors.Is(res.Err, entity.ErrRequestCanceled):
		metrics.RecordRefresh(ctx, "canceled")
		return
	case stale:
		c.log.Debugf("discard stale refresh of route %s", old.ID())
		return
	case res.Err != nil:
		c.log.Warnf("route refresh failed: %v", res.Err)
		metrics.RecordRefresh(ctx, "failure")
		return
	}

	diffs := c.diff.Diff(old, res.Route, legIndex)
	if len(diffs) == 0 {
		c.log.Info("No changes to route annotations")
	}
	for _, d := range diffs {
		c.log.Info(d)
	}

	routes := c.directions.Routes()
	if len(routes) == 0 || routes[0].ID() != old.ID() {
		c.log.Debugf("primary route changed, drop refresh of %s", old.ID())
		return
	}
	routes = slices.Clone(routes)
	routes[0] = res.Route

	c.mtx.Lock()
	if gen != c.gen {
		c.mtx.Unlock()
		return
	}
	c.route = res.Route
	c.mtx.Unlock()

	metrics.RecordRefresh(ctx, "success")
	c.directions.SetRoutes(routes, legIndex, entity.RoutesUpdateReasonRefresh)
}
