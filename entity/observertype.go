package entity

// 观察者接口
// 实现应为可比较类型（通常为指针），以支持重复注册检测与注销

// 路线列表变化
type RoutesObserver interface {
	OnRoutesChanged(routes []*Route, reason RoutesUpdateReason)
}

// 路线进度变化
type RouteProgressObserver interface {
	OnRouteProgressChanged(progress *RouteProgress)
}

// 原始定位与地图匹配结果
type LocationObserver interface {
	OnNewRawLocation(location Location)
	OnNewLocationMatcherResult(result *LocationMatcherResult)
}

// 偏航状态变化（仅在变化时通知）
type OffRouteObserver interface {
	OnOffRouteStateChanged(offRoute bool)
}

// 引导横幅变化
type BannerInstructionsObserver interface {
	OnNewBannerInstructions(banner *BannerInstruction)
}

// 语音播报变化
type VoiceInstructionsObserver interface {
	OnNewVoiceInstructions(voice *VoiceInstruction)
}

// 行程会话状态变化
type TripSessionStateObserver interface {
	OnSessionStateChanged(state TripSessionState)
}

// 路线上的道路对象变化
type RoadObjectsOnRouteObserver interface {
	OnNewRoadObjectsOnTheRoute(objects []*UpcomingRoadObject)
}

// 重算状态变化
type RerouteStateObserver interface {
	OnRerouteStateChanged(state RerouteState)
}

// 导航引擎开始处理新路线
type NativeRouteProcessingListener interface {
	OnNativeRouteProcessingStarted()
}

// 导航引擎状态tick
type NavigatorObserver interface {
	OnStatus(status *NavigationStatus)
}

// 定位源推送，一次可能包含多个定位
type LocationListener interface {
	OnLocations(locations []Location)
}

// 函数适配器，每次调用返回新的指针，可独立注册与注销

type routesObserverFunc struct {
	f func([]*Route, RoutesUpdateReason)
}

func (o *routesObserverFunc) OnRoutesChanged(routes []*Route, reason RoutesUpdateReason) {
	o.f(routes, reason)
}

// NewRoutesObserver 由函数构造RoutesObserver
func NewRoutesObserver(f func(routes []*Route, reason RoutesUpdateReason)) RoutesObserver {
	return &routesObserverFunc{f: f}
}

type routeProgressObserverFunc struct {
	f func(*RouteProgress)
}

func (o *routeProgressObserverFunc) OnRouteProgressChanged(p *RouteProgress) { o.f(p) }

// NewRouteProgressObserver 由函数构造RouteProgressObserver
func NewRouteProgressObserver(f func(progress *RouteProgress)) RouteProgressObserver {
	return &routeProgressObserverFunc{f: f}
}

type offRouteObserverFunc struct {
	f func(bool)
}

func (o *offRouteObserverFunc) OnOffRouteStateChanged(offRoute bool) { o.f(offRoute) }

// NewOffRouteObserver 由函数构造OffRouteObserver
func NewOffRouteObserver(f func(offRoute bool)) OffRouteObserver {
	return &offRouteObserverFunc{f: f}
}

type bannerObserverFunc struct {
	f func(*BannerInstruction)
}

func (o *bannerObserverFunc) OnNewBannerInstructions(b *BannerInstruction) { o.f(b) }

// NewBannerInstructionsObserver 由函数构造BannerInstructionsObserver
func NewBannerInstructionsObserver(f func(banner *BannerInstruction)) BannerInstructionsObserver {
	return &bannerObserverFunc{f: f}
}

type voiceObserverFunc struct {
	f func(*VoiceInstruction)
}

func (o *voiceObserverFunc) OnNewVoiceInstructions(v *VoiceInstruction) { o.f(v) }

// NewVoiceInstructionsObserver 由函数构造VoiceInstructionsObserver
func NewVoiceInstructionsObserver(f func(voice *VoiceInstruction)) VoiceInstructionsObserver {
	return &voiceObserverFunc{f: f}
}

type tripStateObserverFunc struct {
	f func(TripSessionState)
}

func (o *tripStateObserverFunc) OnSessionStateChanged(s TripSessionState) { o.f(s) }

// NewTripSessionStateObserver 由函数构造TripSessionStateObserver
func NewTripSessionStateObserver(f func(state TripSessionState)) TripSessionStateObserver {
	return &tripStateObserverFunc{f: f}
}

type roadObjectsObserverFunc struct {
	f func([]*UpcomingRoadObject)
}

func (o *roadObjectsObserverFunc) OnNewRoadObjectsOnTheRoute(objs []*UpcomingRoadObject) { o.f(objs) }

// NewRoadObjectsOnRouteObserver 由函数构造RoadObjectsOnRouteObserver
func NewRoadObjectsOnRouteObserver(f func(objects []*UpcomingRoadObject)) RoadObjectsOnRouteObserver {
	return &roadObjectsObserverFunc{f: f}
}

type rerouteStateObserverFunc struct {
	f func(RerouteState)
}

func (o *rerouteStateObserverFunc) OnRerouteStateChanged(s RerouteState) { o.f(s) }

// NewRerouteStateObserver 由函数构造RerouteStateObserver
func NewRerouteStateObserver(f func(state RerouteState)) RerouteStateObserver {
	return &rerouteStateObserverFunc{f: f}
}

type nativeRouteProcessingFunc struct {
	f func()
}

func (o *nativeRouteProcessingFunc) OnNativeRouteProcessingStarted() { o.f() }

// NewNativeRouteProcessingListener 由函数构造NativeRouteProcessingListener
func NewNativeRouteProcessingListener(f func()) NativeRouteProcessingListener {
	return &nativeRouteProcessingFunc{f: f}
}

type locationObserverFuncs struct {
	raw     func(Location)
	matched func(*LocationMatcherResult)
}

func (o *locationObserverFuncs) OnNewRawLocation(l Location) {
	if o.raw != nil {
		o.raw(l)
	}
}

func (o *locationObserverFuncs) OnNewLocationMatcherResult(r *LocationMatcherResult) {
	if o.matched != nil {
		o.matched(r)
	}
}

// NewLocationObserver 由函数构造LocationObserver，任一函数可为nil
func NewLocationObserver(raw func(location Location), matched func(result *LocationMatcherResult)) LocationObserver {
	return &locationObserverFuncs{raw: raw, matched: matched}
}
