package entity

import "context"

// 会话依赖倒置

// entity/directions/session.go的依赖倒置
type IDirectionsSession interface {
	Routes() []*Route                  // 当前路线列表，下标0为主路线
	InitialLegIndex() int              // 设置路线时的初始路段
	PrimaryRouteOptions() *RouteOptions // 主路线的请求参数，无路线时为nil

	SetRoutes(routes []*Route, initialLegIndex int, reason RoutesUpdateReason)
	RequestRoutes(ctx context.Context, options *RouteOptions, callback RouterCallback) int64
	RequestRouteRefresh(ctx context.Context, route *Route, legIndex int, callback RouteRefreshCallback) int64
	CancelRouteRequest(id int64)
	CancelRouteRefreshRequest(id int64)
	CancelAll()

	RegisterRoutesObserver(o RoutesObserver) bool
	UnregisterRoutesObserver(o RoutesObserver) bool
}

// entity/trip/session.go的依赖倒置（刷新与重算只读取这些快照）
type ITripSession interface {
	RouteProgress() *RouteProgress                 // 最近一次发布的路线进度
	LocationMatcherResult() *LocationMatcherResult // 最近一次地图匹配结果
}
