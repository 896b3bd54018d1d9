package trip

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/utils/container"
	"github.com/tsinghua-fib-lab/tripcore/utils/metrics"
)

// Option 行程会话选项
type Option func(*Session)

// WithLogger 指定日志输出
func WithLogger(l *logrus.Entry) Option {
	return func(s *Session) { s.log = l }
}

// 切换路段的后台任务，回调恰好调用一次
type legJob struct {
	cancel context.CancelFunc
	once   sync.Once
	cb     func(bool)
}

func (j *legJob) finish(ok bool) {
	j.once.Do(func() {
		if j.cb != nil {
			j.cb(ok)
		}
	})
}

// Session 行程会话
// 功能：订阅定位源与导航引擎状态，维护路线进度、地图匹配、偏航、横幅、语音、道路对象等派生状态并通知观察者
// 说明：状态变更与通知都在notifyMtx内串行执行，getter只读取已发布的快照；
// 观察者回调中可以调用getter与SetRoutes之外的其它组件，但不得再注册本会话的观察者
type Session struct {
	locationEngine entity.ILocationEngine
	navigator      entity.INavigator
	log            *logrus.Entry

	statusObserver   *statusObserver
	locationListener *locationListener

	notifyMtx sync.Mutex
	mtx       sync.RWMutex

	state      entity.TripSessionState
	foreground bool

	routes       []*entity.Route // 引擎已接受的路线
	route        *entity.Route   // routes[0]
	routesReason entity.RoutesUpdateReason
	pushGen      uint64
	pending      bool
	pushCancel   context.CancelFunc

	progressGen    uint64
	progressCancel context.CancelFunc
	legJob         *legJob

	progress    *entity.RouteProgress
	matcher     *entity.LocationMatcherResult
	raw         *entity.Location
	zLevel      *int
	offRoute    bool
	roadObjects []*entity.UpcomingRoadObject
	banner      *entity.BannerInstruction
	voice       *entity.VoiceInstruction

	wg sync.WaitGroup

	routesObservers      *container.ObserverSet[entity.RoutesObserver]
	stateObservers       *container.ObserverSet[entity.TripSessionStateObserver]
	progressObservers    *container.ObserverSet[entity.RouteProgressObserver]
	locationObservers    *container.ObserverSet[entity.LocationObserver]
	offRouteObservers    *container.ObserverSet[entity.OffRouteObserver]
	bannerObservers      *container.ObserverSet[entity.BannerInstructionsObserver]
	voiceObservers       *container.ObserverSet[entity.VoiceInstructionsObserver]
	roadObjectsObservers *container.ObserverSet[entity.RoadObjectsOnRouteObserver]
	processingListeners  *container.ObserverSet[entity.NativeRouteProcessingListener]
}

type statusObserver struct{ s *Session }

func (o *statusObserver) OnStatus(status *entity.NavigationStatus) { o.s.onStatus(status) }

type locationListener struct{ s *Session }

func (l *locationListener) OnLocations(locations []entity.Location) { l.s.onLocations(locations) }

// New 创建行程会话，初始状态为STOPPED
// 参数：locationEngine-定位源，navigator-导航引擎
func New(locationEngine entity.ILocationEngine, navigator entity.INavigator, opts ...Option) *Session {
	s := &Session{
		locationEngine:       locationEngine,
		navigator:            navigator,
		log:                  log,
		state:                entity.TripSessionStopped,
		routesObservers:      container.NewObserverSet[entity.RoutesObserver](),
		stateObservers:       container.NewObserverSet[entity.TripSessionStateObserver](),
		progressObservers:    container.NewObserverSet[entity.RouteProgressObserver](),
		locationObservers:    container.NewObserverSet[entity.LocationObserver](),
		offRouteObservers:    container.NewObserverSet[entity.OffRouteObserver](),
		bannerObservers:      container.NewObserverSet[entity.BannerInstructionsObserver](),
		voiceObservers:       container.NewObserverSet[entity.VoiceInstructionsObserver](),
		roadObjectsObservers: container.NewObserverSet[entity.RoadObjectsOnRouteObserver](),
		processingListeners:  container.NewObserverSet[entity.NativeRouteProcessingListener](),
	}
	s.statusObserver = &statusObserver{s}
	s.locationListener = &locationListener{s}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 启动会话
// 说明：已启动时只更新前台服务标记
func (s *Session) Start(withForegroundService bool) {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()

	s.mtx.Lock()
	s.foreground = withForegroundService
	if s.state == entity.TripSessionStarted {
		s.mtx.Unlock()
		return
	}
	s.state = entity.TripSessionStarted
	s.mtx.Unlock()

	s.navigator.AddStatusObserver(s.statusObserver)
	s.locationEngine.RequestLocationUpdates(s.locationListener)
	s.log.Infof("trip session started, foreground=%v", withForegroundService)
	s.stateObservers.Notify(func(o entity.TripSessionStateObserver) {
		o.OnSessionStateChanged(entity.TripSessionStarted)
	})
}

// Stop 停止会话，取消订阅并清空z-level、进度、偏航与道路对象
func (s *Session) Stop() {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()

	s.mtx.Lock()
	if s.state == entity.TripSessionStopped {
		s.mtx.Unlock()
		return
	}
	s.state = entity.TripSessionStopped
	s.foreground = false
	s.cancelProgressLocked()
	s.zLevel = nil
	s.progress = nil
	offChanged, objectsChanged := s.resetRouteStateLocked()
	s.mtx.Unlock()

	s.locationEngine.RemoveLocationUpdates(s.locationListener)
	s.navigator.RemoveStatusObserver(s.statusObserver)
	s.log.Info("trip session stopped")
	s.notifyResetLocked(offChanged, objectsChanged)
	s.stateObservers.Notify(func(o entity.TripSessionStateObserver) {
		o.OnSessionStateChanged(entity.TripSessionStopped)
	})
}

// Shutdown 停止会话，取消全部后台任务并等待其结束
func (s *Session) Shutdown() {
	s.Stop()
	s.mtx.Lock()
	s.pushGen++
	if s.pushCancel != nil {
		s.pushCancel()
		s.pushCancel = nil
	}
	s.pending = false
	job := s.legJob
	s.legJob = nil
	s.mtx.Unlock()
	if job != nil {
		job.cancel()
		job.finish(false)
	}
	s.wg.Wait()
}

// Wait 等待已启动的后台任务（路线下发、进度计算、切换路段）结束
func (s *Session) Wait() {
	s.wg.Wait()
}

// State 会话状态
func (s *Session) State() entity.TripSessionState {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.state
}

// IsRunningWithForegroundService 是否以前台服务方式运行
func (s *Session) IsRunningWithForegroundService() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.state == entity.TripSessionStarted && s.foreground
}

// SetRoutes 设置路线
// 功能：先同步清空进度、偏航与道路对象，再异步把路线下发给导航引擎；
// REFRESH且引擎已有主路线时只更新标注，不清空进度、偏航与道路对象
// 返回：下发完成（或被更新的调用取代）时关闭的channel
// 说明：路线在引擎接受后才通过Routes()与路线观察者可见；后一次调用总是取代前一次
func (s *Session) SetRoutes(routes []*entity.Route, legIndex int, reason entity.RoutesUpdateReason) <-chan struct{} {
	done := make(chan struct{})
	routes = slices.Clone(routes)

	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()

	s.mtx.Lock()
	annotationsOnly := reason == entity.RoutesUpdateReasonRefresh && !s.pending && s.route != nil && len(routes) != 0
	s.pushGen++
	gen := s.pushGen
	if s.pushCancel != nil {
		s.pushCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.pushCancel = cancel
	s.pending = true
	// 只更新标注时保留进度、偏航与道路对象
	var job *legJob
	offChanged, objectsChanged := false, false
	if !annotationsOnly {
		s.cancelProgressLocked()
		job = s.legJob
		s.legJob = nil
		s.progress = nil
		offChanged, objectsChanged = s.resetRouteStateLocked()
	}
	s.mtx.Unlock()

	if job != nil {
		job.cancel()
		job.finish(false)
	}
	s.notifyResetLocked(offChanged, objectsChanged)
	s.log.Debugf("set %d routes, leg=%d reason=%v annotationsOnly=%v", len(routes), legIndex, reason, annotationsOnly)
	if !annotationsOnly {
		s.processingListeners.Notify(func(l entity.NativeRouteProcessingListener) {
			l.OnNativeRouteProcessingStarted()
		})
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		var info *entity.RouteInfo
		var err error
		if annotationsOnly {
			info, err = s.navigator.UpdateAnnotations(ctx, routes[0])
		} else {
			info, err = s.navigator.SetRoute(ctx, routes, legIndex)
		}
		s.completePush(gen, routes, reason, annotationsOnly, info, err)
	}()
	return done
}

// completePush 发布引擎已接受的路线；过期的结果直接丢弃
func (s *Session) completePush(gen uint64, routes []*entity.Route, reason entity.RoutesUpdateReason, annotationsOnly bool, info *entity.RouteInfo, err error) {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()

	s.mtx.Lock()
	if gen != s.pushGen {
		s.mtx.Unlock()
		s.log.Debugf("drop superseded route push %d", gen)
		return
	}
	s.pending = false
	if s.pushCancel != nil {
		s.pushCancel()
		s.pushCancel = nil
	}
	if err != nil {
		if annotationsOnly {
			s.mtx.Unlock()
			s.log.Warnf("navigator rejected annotation update: %v", err)
			return
		}
		s.log.Warnf("navigator rejected routes: %v", err)
		routes = nil
	}
	s.routes = routes
	s.route = lo.FirstOrEmpty(routes)
	s.routesReason = reason
	prev := s.roadObjects
	if info != nil && len(routes) != 0 {
		s.roadObjects = slices.Clone(info.RoadObjects)
	}
	objects := slices.Clone(s.roadObjects)
	s.mtx.Unlock()

	if (annotationsOnly && !sameRoadObjects(prev, objects)) || (!annotationsOnly && len(objects) != 0) {
		s.roadObjectsObservers.Notify(func(o entity.RoadObjectsOnRouteObserver) {
			o.OnNewRoadObjectsOnTheRoute(objects)
		})
	}
	s.routesObservers.Notify(func(o entity.RoutesObserver) {
		o.OnRoutesChanged(slices.Clone(routes), reason)
	})
}

func sameRoadObjects(a, b []*entity.UpcomingRoadObject) bool {
	return slices.EqualFunc(a, b, func(x, y *entity.UpcomingRoadObject) bool {
		return x.RoadObject.ID == y.RoadObject.ID
	})
}

// resetRouteStateLocked 清空偏航与道路对象，返回二者是否变化
func (s *Session) resetRouteStateLocked() (offChanged, objectsChanged bool) {
	offChanged = s.offRoute
	objectsChanged = len(s.roadObjects) != 0
	s.offRoute = false
	s.roadObjects = nil
	return
}

func (s *Session) notifyResetLocked(offChanged, objectsChanged bool) {
	if offChanged {
		metrics.RecordOffRoute(context.Background(), false)
		s.offRouteObservers.Notify(func(o entity.OffRouteObserver) {
			o.OnOffRouteStateChanged(false)
		})
	}
	if objectsChanged {
		s.roadObjectsObservers.Notify(func(o entity.RoadObjectsOnRouteObserver) {
			o.OnNewRoadObjectsOnTheRoute([]*entity.UpcomingRoadObject{})
		})
	}
}

func (s *Session) cancelProgressLocked() {
	s.progressGen++
	if s.progressCancel != nil {
		s.progressCancel()
		s.progressCancel = nil
	}
}

// UpdateLegIndex 切换当前路段
// 参数：legIndex-目标路段，callback-引擎处理结果（可为nil）
// 说明：被之后的UpdateLegIndex或SetRoutes取代时以false回调
func (s *Session) UpdateLegIndex(legIndex int, callback func(ok bool)) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &legJob{cancel: cancel, cb: callback}

	s.mtx.Lock()
	prev := s.legJob
	s.legJob = job
	s.mtx.Unlock()
	if prev != nil {
		prev.cancel()
		prev.finish(false)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		ok := s.navigator.UpdateLegIndex(ctx, legIndex)
		s.mtx.Lock()
		if s.legJob == job {
			s.legJob = nil
		}
		s.mtx.Unlock()
		job.finish(ok && ctx.Err() == nil)
	}()
}

func (s *Session) onLocations(locations []entity.Location) {
	for _, l := range locations {
		s.notifyMtx.Lock()
		s.mtx.Lock()
		if s.state != entity.TripSessionStarted {
			s.mtx.Unlock()
			s.notifyMtx.Unlock()
			return
		}
		raw := l
		s.raw = &raw
		s.mtx.Unlock()
		s.locationObservers.Notify(func(o entity.LocationObserver) {
			o.OnNewRawLocation(l)
		})
		s.notifyMtx.Unlock()

		// 引擎可能在UpdateLocation中同步推送状态
		if !s.navigator.UpdateLocation(context.Background(), entity.ToFixLocation(l)) {
			s.log.Debugf("navigator ignored location %v", l.Point())
		}
	}
}

// onStatus 处理一次引擎状态tick
func (s *Session) onStatus(status *entity.NavigationStatus) {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()

	s.mtx.Lock()
	if s.state != entity.TripSessionStarted {
		s.mtx.Unlock()
		return
	}
	matcher := buildMatcherResult(status, s.raw)
	s.matcher = matcher
	s.zLevel = copyInt(status.Layer)
	s.cancelProgressLocked()
	route := s.route
	// 下发中的路线或引擎为已被替换的路线计算的状态只用于地图匹配
	pending := s.pending || status.PrimaryRouteID != "" && status.PrimaryRouteID != route.ID()
	offChanged := false
	offRoute := status.RouteState == entity.RouteStateOffRoute
	if !pending {
		offChanged = offRoute != s.offRoute
		s.offRoute = offRoute
		if route == nil || status.RouteState == entity.RouteStateInvalid {
			s.progress = nil
		}
	}
	gen := s.progressGen
	var ctx context.Context
	if !pending && route != nil && status.BannerInstruction == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())
		s.progressCancel = cancel
	}
	s.mtx.Unlock()

	metrics.RecordStatus(context.Background(), status.RouteState.String())
	s.locationObservers.Notify(func(o entity.LocationObserver) {
		o.OnNewLocationMatcherResult(matcher)
	})
	if pending {
		return
	}
	if offChanged {
		s.log.Infof("off-route state changed to %v", offRoute)
		metrics.RecordOffRoute(context.Background(), offRoute)
		s.offRouteObservers.Notify(func(o entity.OffRouteObserver) {
			o.OnOffRouteStateChanged(offRoute)
		})
	}
	if route == nil || status.RouteState == entity.RouteStateInvalid {
		return
	}
	if ctx == nil {
		s.publishProgressLocked(gen, route, status, status.BannerInstruction)
		return
	}

	// 状态中没有横幅时向引擎查询，下一次tick会取消本次查询
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		banner := s.navigator.CurrentBannerInstruction(ctx)
		if ctx.Err() != nil {
			return
		}
		s.notifyMtx.Lock()
		defer s.notifyMtx.Unlock()
		s.publishProgressLocked(gen, route, status, banner)
	}()
}

// publishProgressLocked 发布进度、横幅与语音，调用方持有notifyMtx
func (s *Session) publishProgressLocked(gen uint64, route *entity.Route, status *entity.NavigationStatus, banner *entity.BannerInstruction) {
	s.mtx.Lock()
	if gen != s.progressGen || route != s.route || s.pending || s.state != entity.TripSessionStarted {
		s.mtx.Unlock()
		return
	}
	s.progressCancel = nil
	progress := buildProgress(route, status, banner)
	s.progress = progress
	bannerChanged := banner != nil && !sameBanner(s.banner, banner)
	if bannerChanged {
		s.banner = banner
	}
	voice := status.VoiceInstruction
	voiceChanged := voice != nil && !sameVoice(s.voice, voice)
	if voiceChanged {
		s.voice = voice
	}
	s.mtx.Unlock()

	s.progressObservers.Notify(func(o entity.RouteProgressObserver) {
		o.OnRouteProgressChanged(progress)
	})
	if bannerChanged {
		s.bannerObservers.Notify(func(o entity.BannerInstructionsObserver) {
			o.OnNewBannerInstructions(banner)
		})
	}
	if voiceChanged {
		s.voiceObservers.Notify(func(o entity.VoiceInstructionsObserver) {
			o.OnNewVoiceInstructions(voice)
		})
	}
}

// Routes 引擎已接受的路线列表
func (s *Session) Routes() []*entity.Route {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return slices.Clone(s.routes)
}

// PrimaryRoute 引擎已接受的主路线，无路线时为nil
func (s *Session) PrimaryRoute() *entity.Route {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.route
}

// RouteProgress 最近一次发布的路线进度
func (s *Session) RouteProgress() *entity.RouteProgress {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.progress
}

// LocationMatcherResult 最近一次地图匹配结果
func (s *Session) LocationMatcherResult() *entity.LocationMatcherResult {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.matcher
}

// RawLocation 最近一次原始定位
func (s *Session) RawLocation() *entity.Location {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.raw == nil {
		return nil
	}
	l := *s.raw
	return &l
}

// ZLevel 当前道路层级，未启动或尚未收到状态时为nil
func (s *Session) ZLevel() *int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return copyInt(s.zLevel)
}

func (s *Session) IsOffRoute() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.offRoute
}

func (s *Session) RoadObjects() []*entity.UpcomingRoadObject {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return slices.Clone(s.roadObjects)
}

func (s *Session) BannerInstruction() *entity.BannerInstruction {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.banner
}

func (s *Session) VoiceInstruction() *entity.VoiceInstruction {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.voice
}
