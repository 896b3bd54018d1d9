package directions

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/utils/container"
	"github.com/tsinghua-fib-lab/tripcore/utils/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Session 路线会话
// 功能：持有权威路线列表，转发路线请求，并把路线变化按注册顺序通知观察者
// 说明：通知同步执行；观察者回调中不得注册观察者或再次调用SetRoutes
type Session struct {
	router entity.IRouter

	notifyMtx sync.Mutex // 串行化“更新+通知”与“注册+回放”
	mtx       sync.RWMutex
	routes    []*entity.Route
	legIndex  int
	reason    entity.RoutesUpdateReason

	observers *container.ObserverSet[entity.RoutesObserver]
}

// New 创建路线会话
// 参数：router-路线服务
func New(router entity.IRouter) *Session {
	return &Session{
		router:    router,
		reason:    entity.RoutesUpdateReasonCleanUp,
		observers: container.NewObserverSet[entity.RoutesObserver](),
	}
}

// Routes 当前路线列表，下标0为主路线
func (s *Session) Routes() []*entity.Route {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return slices.Clone(s.routes)
}

// InitialLegIndex 设置路线时的初始路段
func (s *Session) InitialLegIndex() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.legIndex
}

// LastReason 最近一次设置路线的原因
func (s *Session) LastReason() entity.RoutesUpdateReason {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.reason
}

// PrimaryRouteOptions 主路线的请求参数，无路线时为nil
func (s *Session) PrimaryRouteOptions() *entity.RouteOptions {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if len(s.routes) == 0 {
		return nil
	}
	return s.routes[0].Options
}

// SetRoutes 替换路线列表并通知观察者
// 说明：新旧列表都为空时不做任何事；否则总是记录原因并通知
func (s *Session) SetRoutes(routes []*entity.Route, initialLegIndex int, reason entity.RoutesUpdateReason) {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()

	s.mtx.Lock()
	if len(s.routes) == 0 && len(routes) == 0 {
		s.mtx.Unlock()
		return
	}
	s.routes = slices.Clone(routes)
	s.legIndex = initialLegIndex
	s.reason = reason
	snapshot := slices.Clone(s.routes)
	s.mtx.Unlock()

	log.Debugf("set %d routes, leg=%d reason=%v", len(snapshot), initialLegIndex, reason)
	metrics.RecordRoutesSet(context.Background(), reason.String(), len(snapshot))
	s.observers.Notify(func(o entity.RoutesObserver) {
		o.OnRoutesChanged(snapshot, reason)
	})
}

// RegisterRoutesObserver 注册路线观察者，当前有路线时立即回放
// 返回：重复注册时返回false
func (s *Session) RegisterRoutesObserver(o entity.RoutesObserver) bool {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()
	return s.observers.AddAndReplay(o, func(o entity.RoutesObserver) {
		s.mtx.RLock()
		routes, reason := slices.Clone(s.routes), s.reason
		s.mtx.RUnlock()
		if len(routes) != 0 {
			o.OnRoutesChanged(routes, reason)
		}
	})
}

// UnregisterRoutesObserver 注销路线观察者
func (s *Session) UnregisterRoutesObserver(o entity.RoutesObserver) bool {
	return s.observers.Remove(o)
}

// UnregisterAllRoutesObservers 注销全部路线观察者
func (s *Session) UnregisterAllRoutesObservers() {
	s.observers.Clear()
}

// RequestRoutes 请求路线，回调结果不经修改地转发
func (s *Session) RequestRoutes(ctx context.Context, options *entity.RouteOptions, callback entity.RouterCallback) int64 {
	ctx, span := metrics.Tracer.Start(ctx, "directions.request_routes", trace.WithAttributes(
		attribute.Int("route.coordinates", coordinateCount(options)),
		attribute.String("route.profile", optionsProfile(options)),
	))
	return s.router.GetRoute(ctx, options, func(res entity.RouterResult) {
		span.SetAttributes(
			attribute.String("request.outcome", res.Outcome.String()),
			attribute.Int("route.count", len(res.Routes)),
		)
		switch res.Outcome {
		case entity.RouterOutcomeFailure:
			metrics.RecordError(span, failureError(res.Failures), metrics.ErrorTypeRouter)
		case entity.RouterOutcomeCanceled:
			metrics.RecordError(span, entity.ErrRequestCanceled, metrics.ErrorTypeCanceled)
		default:
			metrics.SetSpanOk(span)
		}
		span.End()
		callback(res)
	})
}

// RequestRouteRefresh 请求刷新路线，与RequestRoutes共享请求ID空间
func (s *Session) RequestRouteRefresh(ctx context.Context, route *entity.Route, legIndex int, callback entity.RouteRefreshCallback) int64 {
	ctx, span := metrics.Tracer.Start(ctx, "directions.request_refresh", trace.WithAttributes(
		attribute.String("route.id", route.ID()),
		attribute.Int("route.leg_index", legIndex),
	))
	return s.router.GetRouteRefresh(ctx, route, legIndex, func(res entity.RouteRefreshResult) {
		switch {
		case errors.Is(res.Err, entity.ErrRequestCanceled):
			metrics.RecordError(span, res.Err, metrics.ErrorTypeCanceled)
		case errors.Is(res.Err, entity.ErrRefreshIneligible), errors.Is(res.Err, entity.ErrNoRouteOptions):
			metrics.RecordError(span, res.Err, metrics.ErrorTypeValidation)
		case res.Err != nil:
			metrics.RecordError(span, res.Err, metrics.ErrorTypeRouter)
		default:
			metrics.SetSpanOk(span)
		}
		span.End()
		callback(res)
	})
}

func (s *Session) CancelRouteRequest(id int64) {
	s.router.CancelRouteRequest(id)
}

func (s *Session) CancelRouteRefreshRequest(id int64) {
	s.router.CancelRouteRefreshRequest(id)
}

func (s *Session) CancelAll() {
	s.router.CancelAll()
}

// Shutdown 注销全部观察者并关闭路线服务
func (s *Session) Shutdown() {
	s.UnregisterAllRoutesObservers()
	s.router.Shutdown()
}

func coordinateCount(o *entity.RouteOptions) int {
	if o == nil {
		return 0
	}
	return len(o.Coordinates)
}

func optionsProfile(o *entity.RouteOptions) string {
	if o == nil {
		return ""
	}
	return o.Profile
}

func failureError(failures []entity.RouterFailure) error {
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		} else {
			errs = append(errs, errors.New(f.Message))
		}
	}
	if len(errs) == 0 {
		return errors.New("route request failed")
	}
	return errors.Join(errs...)
}
