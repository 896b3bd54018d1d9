package entity

import "context"

// 路线服务接口
// 请求与刷新共享同一个请求ID空间；每个请求的回调恰好调用一次
type IRouter interface {
	// 路径规划（回调版本），返回可用于取消的请求ID
	GetRoute(ctx context.Context, options *RouteOptions, callback RouterCallback) int64
	// 路线刷新，只更新legIndex及之后路段的标注与事件
	GetRouteRefresh(ctx context.Context, route *Route, legIndex int, callback RouteRefreshCallback) int64
	// 取消路径规划，进行中的请求以Canceled结果回调
	CancelRouteRequest(id int64)
	// 取消路线刷新，进行中的请求以ErrRequestCanceled回调
	CancelRouteRefreshRequest(id int64)
	// 取消全部请求
	CancelAll()
	// 取消全部请求并等待后台任务结束
	Shutdown()
}

// 导航引擎接口（定位匹配、路线跟踪）
type INavigator interface {
	// 输入一个定位，引擎处理后通过NavigatorObserver推送状态
	UpdateLocation(ctx context.Context, fix FixLocation) bool
	// 设置路线，routes为空时清除路线
	SetRoute(ctx context.Context, routes []*Route, legIndex int) (*RouteInfo, error)
	// 仅更新主路线的标注与事件，不重置路线跟踪，返回重新计算的道路对象
	UpdateAnnotations(ctx context.Context, route *Route) (*RouteInfo, error)
	// 切换当前路段
	UpdateLegIndex(ctx context.Context, legIndex int) bool
	// 查询当前横幅，状态tick中横幅为空时使用
	CurrentBannerInstruction(ctx context.Context) *BannerInstruction
	AddStatusObserver(o NavigatorObserver) bool
	RemoveStatusObserver(o NavigatorObserver) bool
}

// 定位源接口
type ILocationEngine interface {
	RequestLocationUpdates(l LocationListener) bool
	RemoveLocationUpdates(l LocationListener) bool
}
