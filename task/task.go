package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/tripcore/clock"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/entity/directions"
	"github.com/tsinghua-fib-lab/tripcore/entity/reroute"
	"github.com/tsinghua-fib-lab/tripcore/entity/routeoptions"
	"github.com/tsinghua-fib-lab/tripcore/entity/routerefresh"
	"github.com/tsinghua-fib-lab/tripcore/entity/trip"
	"github.com/tsinghua-fib-lab/tripcore/utils/config"
)

var ErrClosed = errors.New("navigation is closed")

// Deps 导航上下文的外部依赖
type Deps struct {
	Router         entity.IRouter         // 路线服务
	Navigator      entity.INavigator      // 导航引擎
	LocationEngine entity.ILocationEngine // 定位源
	Clock          clock.Clock            // 刷新定时使用的时钟，为nil时使用系统时钟
}

// Navigation 导航上下文
// 功能：持有一次导航的全部会话与控制器，并把它们连接起来，替代全局单例
// 说明：
//   - 路线会话的路线变化推送到行程会话
//   - 行程会话接受路线后重启路线刷新，路线清空时停止刷新
//   - NEW与CLEAN_UP原因的路线变化中断进行中的重算
//   - 偏航时发起重算，重算结果以REROUTE原因设置
type Navigation struct {
	// 上下文ID
	id string
	// 关闭指令
	closed atomic.Bool

	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 时钟
	clock clock.Clock
	// 偏航时是否自动重算
	rerouteEnabled atomic.Bool

	directions *directions.Session
	trip       *trip.Session
	refresh    *routerefresh.Controller
	reroute    *reroute.Controller

	// 内部连线使用的观察者
	directionsRoutes entity.RoutesObserver
	tripRoutes       entity.RoutesObserver
	offRoute         entity.OffRouteObserver

	log *logrus.Entry
	// 重算协程
	wg sync.WaitGroup
}

// New 创建导航上下文
// 参数：rc-运行时配置，deps-路线服务、导航引擎、定位源与时钟
// 返回：完成连线的导航上下文，行程会话处于停止状态
func New(rc *config.RuntimeConfig, deps Deps) *Navigation {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	n := &Navigation{
		id:            uuid.NewString(),
		runtimeConfig: rc,
		clock:         clk,
	}
	n.log = log.WithField("navigation", n.id)
	n.rerouteEnabled.Store(rc.RerouteEnabled)

	n.directions = directions.New(deps.Router)
	n.trip = trip.New(deps.LocationEngine, deps.Navigator, trip.WithLogger(n.log.WithField("component", "trip")))
	n.refresh = routerefresh.New(n.directions, n.trip, clk,
		routerefresh.WithInterval(rc.RefreshInterval),
		routerefresh.WithLogger(n.log.WithField("component", "refresh")),
	)
	n.reroute = reroute.New(n.directions, n.trip, routeoptions.New(rc.AvoidManeuverSeconds),
		reroute.WithLogger(n.log.WithField("component", "reroute")),
	)

	n.directionsRoutes = entity.NewRoutesObserver(n.onDirectionsRoutes)
	n.tripRoutes = entity.NewRoutesObserver(n.onTripRoutes)
	n.offRoute = entity.NewOffRouteObserver(n.onOffRoute)
	n.trip.RegisterRoutesObserver(n.tripRoutes)
	n.trip.RegisterOffRouteObserver(n.offRoute)
	n.directions.RegisterRoutesObserver(n.directionsRoutes)

	n.log.Infof("navigation created: refresh=%v reroute=%v", rc.RefreshInterval, rc.RerouteEnabled)
	return n
}

func (n *Navigation) onDirectionsRoutes(routes []*entity.Route, reason entity.RoutesUpdateReason) {
	if reason == entity.RoutesUpdateReasonNew || reason == entity.RoutesUpdateReasonCleanUp {
		n.reroute.Interrupt()
	}
	n.trip.SetRoutes(routes, n.directions.InitialLegIndex(), reason)
}

func (n *Navigation) onTripRoutes(routes []*entity.Route, reason entity.RoutesUpdateReason) {
	if n.closed.Load() {
		return
	}
	switch {
	case len(routes) == 0:
		n.refresh.Stop()
	case reason == entity.RoutesUpdateReasonRefresh:
		// 刷新结果不重新计时
		n.refresh.UpdateRoute(routes[0])
	default:
		n.refresh.Restart(routes[0])
	}
}

// 偏航通知在行程会话的通知锁内，重算在独立协程中发起
func (n *Navigation) onOffRoute(offRoute bool) {
	if !offRoute || !n.rerouteEnabled.Load() || n.closed.Load() {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.reroute.Reroute(n.onRerouted)
	}()
}

func (n *Navigation) onRerouted(routes []*entity.Route) {
	if !n.rerouteEnabled.Load() {
		n.log.Info("reroute disabled, drop rerouted routes")
		return
	}
	if n.closed.Load() {
		return
	}
	n.directions.SetRoutes(routes, 0, entity.RoutesUpdateReasonReroute)
}

// ID 上下文ID
func (n *Navigation) ID() string {
	return n.id
}

func (n *Navigation) Clock() clock.Clock {
	return n.clock
}

func (n *Navigation) RuntimeConfig() *config.RuntimeConfig {
	return n.runtimeConfig
}

func (n *Navigation) DirectionsSession() *directions.Session {
	return n.directions
}

func (n *Navigation) TripSession() *trip.Session {
	return n.trip
}

func (n *Navigation) RouteRefreshController() *routerefresh.Controller {
	return n.refresh
}

func (n *Navigation) RerouteController() *reroute.Controller {
	return n.reroute
}

// IsClosed 是否已关闭
func (n *Navigation) IsClosed() bool {
	return n.closed.Load()
}

// SetRerouteEnabled 开关偏航自动重算
func (n *Navigation) SetRerouteEnabled(enabled bool) {
	n.rerouteEnabled.Store(enabled)
}

// IsRerouteEnabled 偏航时是否自动重算
func (n *Navigation) IsRerouteEnabled() bool {
	return n.rerouteEnabled.Load()
}

// SetRoutes 设置新路线，routes为空时清除路线
// 参数：routes-路线列表（下标0为主路线），initialLegIndex-起始路段
func (n *Navigation) SetRoutes(routes []*entity.Route, initialLegIndex int) {
	if n.closed.Load() {
		n.log.Warn("set routes on a closed navigation")
		return
	}
	reason := entity.RoutesUpdateReasonNew
	if len(routes) == 0 {
		reason = entity.RoutesUpdateReasonCleanUp
	}
	n.directions.SetRoutes(routes, initialLegIndex, reason)
}

// SetAlternativeRoutes 保留主路线，替换备选路线
func (n *Navigation) SetAlternativeRoutes(alternatives []*entity.Route) {
	if n.closed.Load() {
		return
	}
	current := n.directions.Routes()
	if len(current) == 0 {
		return
	}
	routes := append([]*entity.Route{current[0]}, alternatives...)
	n.directions.SetRoutes(routes, n.directions.InitialLegIndex(), entity.RoutesUpdateReasonAlternative)
}

// RequestRoutes 请求路线，结果不会自动设置
// 返回：请求ID，可用于CancelRouteRequest
func (n *Navigation) RequestRoutes(ctx context.Context, options *entity.RouteOptions, callback entity.RouterCallback) int64 {
	if n.closed.Load() {
		callback(entity.Failed(options, entity.RouterFailure{Message: ErrClosed.Error(), Err: ErrClosed}))
		return 0
	}
	return n.directions.RequestRoutes(ctx, options, callback)
}

func (n *Navigation) CancelRouteRequest(id int64) {
	n.directions.CancelRouteRequest(id)
}

// Routes 导航引擎已接受的路线
func (n *Navigation) Routes() []*entity.Route {
	return n.trip.Routes()
}

func (n *Navigation) RouteProgress() *entity.RouteProgress {
	return n.trip.RouteProgress()
}

func (n *Navigation) TripSessionState() entity.TripSessionState {
	return n.trip.State()
}

func (n *Navigation) RerouteState() entity.RerouteState {
	return n.reroute.State()
}

// StartTripSession 开始行程会话
func (n *Navigation) StartTripSession(withForegroundService bool) {
	if n.closed.Load() {
		n.log.Warn("start trip session on a closed navigation")
		return
	}
	n.trip.Start(withForegroundService)
}

// StopTripSession 停止行程会话，路线保留
func (n *Navigation) StopTripSession() {
	n.trip.Stop()
}

// NavigateNextRouteLeg 切换到下一个路段
// 参数：callback-切换结果，被新的路线或切换取代时以false调用
func (n *Navigation) NavigateNextRouteLeg(callback func(ok bool)) {
	progress := n.trip.RouteProgress()
	if progress == nil || n.closed.Load() {
		if callback != nil {
			callback(false)
		}
		return
	}
	n.trip.UpdateLegIndex(progress.LegIndex+1, callback)
}

// Close 关闭导航上下文
// 说明：幂等；停止刷新与重算，关闭行程会话与路线服务并等待后台任务结束
func (n *Navigation) Close() {
	if !n.closed.CompareAndSwap(false, true) {
		return
	}
	n.directions.UnregisterRoutesObserver(n.directionsRoutes)
	n.trip.UnregisterRoutesObserver(n.tripRoutes)
	n.trip.UnregisterOffRouteObserver(n.offRoute)

	n.refresh.Stop()
	n.reroute.Interrupt()
	n.wg.Wait()
	n.trip.Shutdown()
	n.directions.Shutdown()
	n.reroute.UnregisterAll()
	n.log.Info("navigation closed")
}
