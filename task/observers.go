package task

import "github.com/tsinghua-fib-lab/tripcore/entity"

// 以下注册方法均转发给对应会话，注册时的回放规则与会话一致

// RegisterRoutesObserver 注册路线观察者，导航引擎接受路线后通知
func (n *Navigation) RegisterRoutesObserver(o entity.RoutesObserver) bool {
	return n.trip.RegisterRoutesObserver(o)
}

func (n *Navigation) UnregisterRoutesObserver(o entity.RoutesObserver) bool {
	return n.trip.UnregisterRoutesObserver(o)
}

func (n *Navigation) RegisterRouteProgressObserver(o entity.RouteProgressObserver) bool {
	return n.trip.RegisterRouteProgressObserver(o)
}

func (n *Navigation) UnregisterRouteProgressObserver(o entity.RouteProgressObserver) bool {
	return n.trip.UnregisterRouteProgressObserver(o)
}

func (n *Navigation) RegisterLocationObserver(o entity.LocationObserver) bool {
	return n.trip.RegisterLocationObserver(o)
}

func (n *Navigation) UnregisterLocationObserver(o entity.LocationObserver) bool {
	return n.trip.UnregisterLocationObserver(o)
}

func (n *Navigation) RegisterOffRouteObserver(o entity.OffRouteObserver) bool {
	return n.trip.RegisterOffRouteObserver(o)
}

func (n *Navigation) UnregisterOffRouteObserver(o entity.OffRouteObserver) bool {
	return n.trip.UnregisterOffRouteObserver(o)
}

func (n *Navigation) RegisterBannerInstructionsObserver(o entity.BannerInstructionsObserver) bool {
	return n.trip.RegisterBannerInstructionsObserver(o)
}

func (n *Navigation) UnregisterBannerInstructionsObserver(o entity.BannerInstructionsObserver) bool {
	return n.trip.UnregisterBannerInstructionsObserver(o)
}

func (n *Navigation) RegisterVoiceInstructionsObserver(o entity.VoiceInstructionsObserver) bool {
	return n.trip.RegisterVoiceInstructionsObserver(o)
}

func (n *Navigation) UnregisterVoiceInstructionsObserver(o entity.VoiceInstructionsObserver) bool {
	return n.trip.UnregisterVoiceInstructionsObserver(o)
}

func (n *Navigation) RegisterTripSessionStateObserver(o entity.TripSessionStateObserver) bool {
	return n.trip.RegisterTripSessionStateObserver(o)
}

func (n *Navigation) UnregisterTripSessionStateObserver(o entity.TripSessionStateObserver) bool {
	return n.trip.UnregisterTripSessionStateObserver(o)
}

func (n *Navigation) RegisterRoadObjectsOnRouteObserver(o entity.RoadObjectsOnRouteObserver) bool {
	return n.trip.RegisterRoadObjectsOnRouteObserver(o)
}

func (n *Navigation) UnregisterRoadObjectsOnRouteObserver(o entity.RoadObjectsOnRouteObserver) bool {
	return n.trip.UnregisterRoadObjectsOnRouteObserver(o)
}

func (n *Navigation) RegisterNativeRouteProcessingListener(l entity.NativeRouteProcessingListener) bool {
	return n.trip.RegisterNativeRouteProcessingListener(l)
}

func (n *Navigation) UnregisterNativeRouteProcessingListener(l entity.NativeRouteProcessingListener) bool {
	return n.trip.UnregisterNativeRouteProcessingListener(l)
}

func (n *Navigation) RegisterRerouteStateObserver(o entity.RerouteStateObserver) bool {
	return n.reroute.RegisterRerouteStateObserver(o)
}

func (n *Navigation) UnregisterRerouteStateObserver(o entity.RerouteStateObserver) bool {
	return n.reroute.UnregisterRerouteStateObserver(o)
}
