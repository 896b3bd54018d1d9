package trip

import (
	"slices"

	"github.com/tsinghua-fib-lab/tripcore/entity"
)

// 观察者注册
// 注册成功时在通知锁内回放已有状态，回放先于之后的实时通知；重复注册返回false

// RegisterRoutesObserver 注册路线观察者，引擎接受新路线后通知；已有路线时立即回放
func (s *Session) RegisterRoutesObserver(o entity.RoutesObserver) bool {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()
	return s.routesObservers.AddAndReplay(o, func(o entity.RoutesObserver) {
		s.mtx.RLock()
		routes, reason := slices.Clone(s.routes), s.routesReason
		s.mtx.RUnlock()
		if len(routes) != 0 {
			o.OnRoutesChanged(routes, reason)
		}
	})
}

func (s *Session) UnregisterRoutesObserver(o entity.RoutesObserver) bool {
	return s.routesObservers.Remove(o)
}

func (s *Session) UnregisterAllRoutesObservers() {
	s.routesObservers.Clear()
}

// RegisterTripSessionStateObserver 注册会话状态观察者，立即回放当前状态
func (s *Session) RegisterTripSessionStateObserver(o entity.TripSessionStateObserver) bool {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()
	return s.stateObservers.AddAndReplay(o, func(o entity.TripSessionStateObserver) {
		o.OnSessionStateChanged(s.State())
	})
}

func (s *Session) UnregisterTripSessionStateObserver(o entity.TripSessionStateObserver) bool {
	return s.stateObservers.Remove(o)
}

func (s *Session) UnregisterAllTripSessionStateObservers() {
	s.stateObservers.Clear()
}

// RegisterRouteProgressObserver 注册进度观察者，已有进度时立即回放
func (s *Session) RegisterRouteProgressObserver(o entity.RouteProgressObserver) bool {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()
	return s.progressObservers.AddAndReplay(o, func(o entity.RouteProgressObserver) {
		if p := s.RouteProgress(); p != nil {
			o.OnRouteProgressChanged(p)
		}
	})
}

func (s *Session) UnregisterRouteProgressObserver(o entity.RouteProgressObserver) bool {
	return s.progressObservers.Remove(o)
}

func (s *Session) UnregisterAllRouteProgressObservers() {
	s.progressObservers.Clear()
}

// RegisterLocationObserver 注册定位观察者，回放最近的原始定位与地图匹配结果
func (s *Session) RegisterLocationObserver(o entity.LocationObserver) bool {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()
	return s.locationObservers.AddAndReplay(o, func(o entity.LocationObserver) {
		if raw := s.RawLocation(); raw != nil {
			o.OnNewRawLocation(*raw)
		}
		if m := s.LocationMatcherResult(); m != nil {
			o.OnNewLocationMatcherResult(m)
		}
	})
}

func (s *Session) UnregisterLocationObserver(o entity.LocationObserver) bool {
	return s.locationObservers.Remove(o)
}

func (s *Session) UnregisterAllLocationObservers() {
	s.locationObservers.Clear()
}

// RegisterOffRouteObserver 注册偏航观察者，立即回放当前偏航状态
func (s *Session) RegisterOffRouteObserver(o entity.OffRouteObserver) bool {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()
	return s.offRouteObservers.AddAndReplay(o, func(o entity.OffRouteObserver) {
		o.OnOffRouteStateChanged(s.IsOffRoute())
	})
}

func (s *Session) UnregisterOffRouteObserver(o entity.OffRouteObserver) bool {
	return s.offRouteObservers.Remove(o)
}

func (s *Session) UnregisterAllOffRouteObservers() {
	s.offRouteObservers.Clear()
}

// RegisterBannerInstructionsObserver 注册横幅观察者，已有横幅时立即回放
func (s *Session) RegisterBannerInstructionsObserver(o entity.BannerInstructionsObserver) bool {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()
	return s.bannerObservers.AddAndReplay(o, func(o entity.BannerInstructionsObserver) {
		if b := s.BannerInstruction(); b != nil {
			o.OnNewBannerInstructions(b)
		}
	})
}

func (s *Session) UnregisterBannerInstructionsObserver(o entity.BannerInstructionsObserver) bool {
	return s.bannerObservers.Remove(o)
}

func (s *Session) UnregisterAllBannerInstructionsObservers() {
	s.bannerObservers.Clear()
}

// RegisterVoiceInstructionsObserver 注册语音观察者，不回放已播报的语音
func (s *Session) RegisterVoiceInstructionsObserver(o entity.VoiceInstructionsObserver) bool {
	return s.voiceObservers.Add(o)
}

func (s *Session) UnregisterVoiceInstructionsObserver(o entity.VoiceInstructionsObserver) bool {
	return s.voiceObservers.Remove(o)
}

func (s *Session) UnregisterAllVoiceInstructionsObservers() {
	s.voiceObservers.Clear()
}

// RegisterRoadObjectsOnRouteObserver 注册道路对象观察者，立即回放当前列表（无路线时为空列表）
func (s *Session) RegisterRoadObjectsOnRouteObserver(o entity.RoadObjectsOnRouteObserver) bool {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()
	return s.roadObjectsObservers.AddAndReplay(o, func(o entity.RoadObjectsOnRouteObserver) {
		objects := s.RoadObjects()
		if objects == nil {
			objects = []*entity.UpcomingRoadObject{}
		}
		o.OnNewRoadObjectsOnTheRoute(objects)
	})
}

func (s *Session) UnregisterRoadObjectsOnRouteObserver(o entity.RoadObjectsOnRouteObserver) bool {
	return s.roadObjectsObservers.Remove(o)
}

func (s *Session) UnregisterAllRoadObjectsOnRouteObservers() {
	s.roadObjectsObservers.Clear()
}

// RegisterNativeRouteProcessingListener 注册路线下发监听
func (s *Session) RegisterNativeRouteProcessingListener(l entity.NativeRouteProcessingListener) bool {
	return s.processingListeners.Add(l)
}

func (s *Session) UnregisterNativeRouteProcessingListener(l entity.NativeRouteProcessingListener) bool {
	return s.processingListeners.Remove(l)
}

func (s *Session) UnregisterAllNativeRouteProcessingListeners() {
	s.processingListeners.Clear()
}
