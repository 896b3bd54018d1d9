package reroute

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/entity/routeoptions"
	"github.com/tsinghua-fib-lab/tripcore/utils/container"
	"github.com/tsinghua-fib-lab/tripcore/utils/metrics"
)

// RoutesCallback 重算成功后接收新路线
type RoutesCallback func(routes []*entity.Route)

// Option 重算控制器选项
type Option func(*Controller)

// WithLogger 日志记录器
func WithLogger(l *logrus.Entry) Option {
	return func(c *Controller) { c.log = l }
}

// 一次重算请求
type request struct {
	id        int64
	hasID     bool // RequestRoutes已返回
	done      bool // 已开始切换到终止状态
	abandoned bool // 已被中断，得到ID后立即取消，之后的结果按取消处理
}

// Controller 偏航重算
// 功能：以当前位置为起点重新请求路线，并通过状态机对外报告进度
// 说明：每次重算都以Idle结束；状态观察者回调中不得调用Reroute或Interrupt
type Controller struct {
	directions entity.IDirectionsSession
	trip       entity.ITripSession
	updater    *routeoptions.Updater
	log        *logrus.Entry

	transMtx sync.Mutex // 串行化状态变化及其通知
	mtx      sync.Mutex
	state    entity.RerouteState
	current  *request        // FetchingRoute期间的请求
	queued   *RoutesCallback // 等待当前请求结束后发起的重算

	observers *container.ObserverSet[entity.RerouteStateObserver]
}

// New 创建重算控制器
// 参数：directions-路线会话，trip-行程会话，updater-请求参数更新器
func New(directions entity.IDirectionsSession, trip entity.ITripSession, updater *routeoptions.Updater, opts ...Option) *Controller {
	c := &Controller{
		directions: directions,
		trip:       trip,
		updater:    updater,
		log:        log,
		state:      entity.RerouteStateIdle,
		observers:  container.NewObserverSet[entity.RerouteStateObserver](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State 当前重算状态
func (c *Controller) State() entity.RerouteState {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.state
}

// 切换状态并通知观察者，调用方持有transMtx
func (c *Controller) setStateLocked(s entity.RerouteState) {
	c.mtx.Lock()
	c.state = s
	c.mtx.Unlock()
	c.log.Debugf("reroute state -> %v", s)
	metrics.RecordRerouteState(context.Background(), s.Type.String())
	c.observers.Notify(func(o entity.RerouteStateObserver) {
		o.OnRerouteStateChanged(s)
	})
}

// complete 以states结束请求req
// 返回：req已结束过时ok为false；next发起排队的重算，由调用方在交付结果后调用
func (c *Controller) complete(req *request, states ...entity.RerouteState) (next func(), ok bool) {
	c.transMtx.Lock()
	defer c.transMtx.Unlock()
	c.mtx.Lock()
	if c.current != req || req.done {
		c.mtx.Unlock()
		return nil, false
	}
	req.done = true
	c.mtx.Unlock()

	for _, s := range states {
		c.setStateLocked(s)
	}

	c.mtx.Lock()
	c.current = nil
	queued := c.queued
	c.queued = nil
	c.mtx.Unlock()
	if queued == nil {
		return func() {}, true
	}
	return func() { c.Reroute(*queued) }, true
}

// abandonLocked 标记req被中断，返回需要取消的请求ID
func (c *Controller) abandonLocked(req *request) (int64, bool) {
	if req.done || req.abandoned {
		return 0, false
	}
	req.abandoned = true
	return req.id, req.hasID
}

func (c *Controller) cancel(id int64) {
	c.log.Debugf("interrupt reroute request %d", id)
	c.directions.CancelRouteRequest(id)
}

// Reroute 以当前位置重新请求路线
// 功能：正在重算时先中断，前一次请求回到Idle后再发起；参数计算失败时不发起请求；
// 成功时先切回Idle再调用callback
func (c *Controller) Reroute(callback RoutesCallback) {
	c.mtx.Lock()
	if prev := c.current; prev != nil {
		c.queued = &callback
		id, ok := c.abandonLocked(prev)
		c.mtx.Unlock()
		if ok {
			c.cancel(id)
		}
		return
	}
	req := &request{}
	c.current = req
	c.mtx.Unlock()

	c.transMtx.Lock()
	c.setStateLocked(entity.RerouteStateFetchingRoute)
	c.transMtx.Unlock()

	c.mtx.Lock()
	abandoned := req.abandoned
	c.mtx.Unlock()
	if abandoned {
		if next, ok := c.complete(req, entity.RerouteStateInterrupted, entity.RerouteStateIdle); ok {
			next()
		}
		return
	}

	res := c.updater.Update(
		c.directions.PrimaryRouteOptions(),
		c.trip.RouteProgress(),
		c.trip.LocationMatcherResult(),
	)
	if res.Err != nil {
		c.log.Warnf("cannot build reroute options: %v", res.Err)
		if next, ok := c.complete(req, entity.RerouteState{
			Type:    entity.RerouteFailed,
			Message: "Cannot combine route options",
			Err:     res.Err,
		}, entity.RerouteStateIdle); ok {
			next()
		}
		return
	}

	id := c.directions.RequestRoutes(context.Background(), res.Options, func(r entity.RouterResult) {
		c.onResult(req, r, callback)
	})
	c.mtx.Lock()
	req.id, req.hasID = id, true
	cancel := req.abandoned && !req.done
	c.mtx.Unlock()
	if cancel {
		c.cancel(id)
	}
}

func (c *Controller) onResult(req *request, r entity.RouterResult, callback RoutesCallback) {
	c.mtx.Lock()
	abandoned := req.abandoned
	c.mtx.Unlock()
	if abandoned && r.Outcome != entity.RouterOutcomeCanceled {
		c.log.Debugf("discard %v result of an interrupted reroute request", r.Outcome)
		r = entity.Canceled(r.Options, r.Origin)
	}

	switch r.Outcome {
	case entity.RouterOutcomeReady:
		fetched := entity.RerouteState{Type: entity.RerouteRouteFetched, Origin: r.Origin}
		next, ok := c.complete(req, fetched, entity.RerouteStateIdle)
		if !ok {
			return
		}
		if callback != nil {
			callback(r.Routes)
		}
		next()
	case entity.RouterOutcomeFailure:
		failed := entity.RerouteState{
			Type:     entity.RerouteFailed,
			Message:  "Route request failed",
			Failures: r.Failures,
		}
		if next, ok := c.complete(req, failed, entity.RerouteStateIdle); ok {
			c.log.Warnf("reroute failed: %v", failed)
			next()
		}
	case entity.RouterOutcomeCanceled:
		if next, ok := c.complete(req, entity.RerouteStateInterrupted, entity.RerouteStateIdle); ok {
			next()
		}
	}
}

// Interrupt 中断进行中的重算并放弃排队的重算
// 说明：只取消请求，状态经由取消回调变为Interrupted后回到Idle；
// 请求ID尚未返回时在返回后立即取消
func (c *Controller) Interrupt() {
	c.mtx.Lock()
	c.queued = nil
	req := c.current
	if req == nil {
		c.mtx.Unlock()
		return
	}
	id, ok := c.abandonLocked(req)
	c.mtx.Unlock()
	if ok {
		c.cancel(id)
	}
}

// RegisterRerouteStateObserver 注册状态观察者并立即回放当前状态
// 返回：重复注册时返回false
func (c *Controller) RegisterRerouteStateObserver(o entity.RerouteStateObserver) bool {
	c.transMtx.Lock()
	defer c.transMtx.Unlock()
	return c.observers.AddAndReplay(o, func(o entity.RerouteStateObserver) {
		o.OnRerouteStateChanged(c.State())
	})
}

// UnregisterRerouteStateObserver 注销状态观察者
func (c *Controller) UnregisterRerouteStateObserver(o entity.RerouteStateObserver) bool {
	return c.observers.Remove(o)
}

// UnregisterAll 注销全部状态观察者
func (c *Controller) UnregisterAll() {
	c.observers.Clear()
}
