package route

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/utils/metrics"
)

const redacted = "REDACTED"

// Fetcher 路线服务后端
type Fetcher interface {
	// 路径规划，返回的路线尚未标注请求UUID以外的元数据
	Fetch(ctx context.Context, options *entity.RouteOptions) (routes []*entity.Route, uuid string, origin entity.RouterOrigin, err error)
	// 路线刷新，返回与route.Legs等长的路段，legIndex之前的元素可以为nil
	FetchRefresh(ctx context.Context, route *entity.Route, legIndex int) ([]*entity.RouteLeg, error)
	// 路线来源，用于取消结果
	Origin() entity.RouterOrigin
}

type requestKind int

const (
	kindRoute requestKind = iota
	kindRefresh
)

func (k requestKind) String() string {
	if k == kindRefresh {
		return "refresh"
	}
	return "route"
}

// 进行中的请求
type request struct {
	kind     requestKind
	cancel   context.CancelFunc
	once     sync.Once
	onCancel func()
}

// RouterWrapper 路线服务包装
// 功能：为后端请求分配ID、支持取消，并把结果统一为Ready/Failure/Canceled三态
// 说明：每个请求的回调恰好调用一次；取消时在调用CancelRouteRequest的协程中同步回调，
// 其他结果在后台协程中回调
type RouterWrapper struct {
	fetcher     Fetcher
	accessToken string

	nextID   atomic.Int64
	mtx      sync.Mutex
	requests map[int64]*request
	closed   bool
	wg       sync.WaitGroup
}

// NewRouterWrapper 创建路线服务包装
// 参数：fetcher-后端，accessToken-访问令牌（失败信息中脱敏）
func NewRouterWrapper(fetcher Fetcher, accessToken string) *RouterWrapper {
	return &RouterWrapper{
		fetcher:     fetcher,
		accessToken: accessToken,
		requests:    make(map[int64]*request),
	}
}

// 登记请求，路由已关闭时返回false
func (w *RouterWrapper) register(id int64, req *request) bool {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if w.closed {
		return false
	}
	w.requests[id] = req
	w.wg.Add(1)
	return true
}

// 请求结束，返回false表示请求已被取消（回调已发出）
func (w *RouterWrapper) finish(id int64, req *request) bool {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if w.requests[id] != req {
		return false
	}
	delete(w.requests, id)
	return true
}

func (w *RouterWrapper) redact(s string) string {
	if w.accessToken == "" {
		return s
	}
	return strings.ReplaceAll(s, w.accessToken, redacted)
}

// 路径规划（回调版本）
func (w *RouterWrapper) GetRoute(ctx context.Context, options *entity.RouteOptions, callback entity.RouterCallback) int64 {
	start := time.Now()
	rctx, cancel := context.WithCancel(ctx)
	id := w.nextID.Add(1)
	req := &request{kind: kindRoute, cancel: cancel}
	deliver := func(res entity.RouterResult) {
		req.once.Do(func() {
			metrics.RecordRouteRequest(ctx, kindRoute.String(), res.Outcome.String(), time.Since(start))
			callback(res)
		})
	}
	req.onCancel = func() {
		deliver(entity.Canceled(options, w.fetcher.Origin()))
	}
	if !w.register(id, req) {
		cancel()
		go deliver(entity.Failed(options, entity.RouterFailure{Message: entity.ErrRouterShutdown.Error(), Err: entity.ErrRouterShutdown}))
		return id
	}
	go func() {
		defer w.wg.Done()
		defer cancel()
		if err := options.Validate(); err != nil {
			if w.finish(id, req) {
				deliver(w.failure(options, err))
			}
			return
		}
		routes, uuid, origin, err := w.fetcher.Fetch(rctx, options)
		if !w.finish(id, req) {
			return
		}
		switch {
		case errors.Is(err, context.Canceled):
			deliver(entity.Canceled(options, w.fetcher.Origin()))
		case err != nil:
			log.Warnf("route request %d failed: %v", id, w.redact(err.Error()))
			deliver(w.failure(options, err))
		case len(routes) == 0:
			deliver(w.failure(options, entity.ErrNoRoutesInResponse))
		default:
			deliver(entity.Ready(annotate(routes, uuid, options), origin))
		}
	}()
	return id
}

func (w *RouterWrapper) failure(options *entity.RouteOptions, err error) entity.RouterResult {
	u := ""
	if options != nil {
		u = w.redact(options.RequestURL())
	}
	return entity.Failed(options, entity.RouterFailure{
		URL:     u,
		Message: w.redact(err.Error()),
		Err:     err,
	})
}

// 为路线写入请求UUID、序号与请求参数
func annotate(routes []*entity.Route, uuid string, options *entity.RouteOptions) []*entity.Route {
	return lo.Map(routes, func(r *entity.Route, i int) *entity.Route {
		cp := *r
		cp.RequestUUID = uuid
		cp.RouteIndex = i
		cp.Options = options
		return &cp
	})
}

// 路线刷新
func (w *RouterWrapper) GetRouteRefresh(ctx context.Context, route *entity.Route, legIndex int, callback entity.RouteRefreshCallback) int64 {
	start := time.Now()
	rctx, cancel := context.WithCancel(ctx)
	id := w.nextID.Add(1)
	req := &request{kind: kindRefresh, cancel: cancel}
	deliver := func(res entity.RouteRefreshResult) {
		req.once.Do(func() {
			outcome := "ready"
			if errors.Is(res.Err, entity.ErrRequestCanceled) {
				outcome = "canceled"
			} else if res.Err != nil {
				outcome = "failure"
			}
			metrics.RecordRouteRequest(ctx, kindRefresh.String(), outcome, time.Since(start))
			callback(res)
		})
	}
	req.onCancel = func() {
		deliver(entity.RouteRefreshResult{Err: fmt.Errorf("refresh %d: %w", id, entity.ErrRequestCanceled)})
	}
	if !w.register(id, req) {
		cancel()
		go deliver(entity.RouteRefreshResult{Err: entity.ErrRouterShutdown})
		return id
	}
	go func() {
		defer w.wg.Done()
		defer cancel()
		if err := validateRefresh(route, legIndex); err != nil {
			if w.finish(id, req) {
				deliver(entity.RouteRefreshResult{Err: err})
			}
			return
		}
		legs, err := w.fetcher.FetchRefresh(rctx, route, legIndex)
		if !w.finish(id, req) {
			return
		}
		switch {
		case errors.Is(err, context.Canceled):
			deliver(entity.RouteRefreshResult{Err: fmt.Errorf("refresh %d: %w", id, entity.ErrRequestCanceled)})
		case err != nil:
			deliver(entity.RouteRefreshResult{Err: fmt.Errorf("refresh route %s: %s", route.ID(), w.redact(err.Error()))})
		default:
			deliver(entity.RouteRefreshResult{Route: route.WithRefreshedLegs(legIndex, legs)})
		}
	}()
	return id
}

func validateRefresh(route *entity.Route, legIndex int) error {
	if route == nil {
		return fmt.Errorf("%w: no route", entity.ErrRefreshIneligible)
	}
	if route.Options == nil {
		return fmt.Errorf("route %s: %w", route.ID(), entity.ErrNoRouteOptions)
	}
	if route.RequestUUID == "" || route.RequestUUID == entity.OfflineUUID {
		return fmt.Errorf("%w: request uuid %q", entity.ErrRefreshIneligible, route.RequestUUID)
	}
	if legIndex < 0 || legIndex >= len(route.Legs) {
		return fmt.Errorf("%w: leg index %d out of %d legs", entity.ErrRefreshIneligible, legIndex, len(route.Legs))
	}
	return nil
}

func (w *RouterWrapper) cancel(id int64, kind requestKind) {
	w.mtx.Lock()
	req, ok := w.requests[id]
	if ok && req.kind == kind {
		delete(w.requests, id)
	}
	w.mtx.Unlock()
	if !ok || req.kind != kind {
		return
	}
	req.cancel()
	req.onCancel()
}

// 取消路径规划
func (w *RouterWrapper) CancelRouteRequest(id int64) {
	w.cancel(id, kindRoute)
}

// 取消路线刷新
func (w *RouterWrapper) CancelRouteRefreshRequest(id int64) {
	w.cancel(id, kindRefresh)
}

// 取消全部请求
func (w *RouterWrapper) CancelAll() {
	w.mtx.Lock()
	reqs := w.requests
	w.requests = make(map[int64]*request)
	w.mtx.Unlock()
	for _, id := range lo.Keys(reqs) {
		reqs[id].cancel()
		reqs[id].onCancel()
	}
}

// 取消全部请求并等待后台协程退出，之后的请求立即失败
func (w *RouterWrapper) Shutdown() {
	w.mtx.Lock()
	w.closed = true
	w.mtx.Unlock()
	w.CancelAll()
	w.wg.Wait()
}
