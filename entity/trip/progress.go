package trip

import (
	"slices"

	"github.com/tsinghua-fib-lab/tripcore/entity"
)

// progressState 引擎路线状态到进度状态的映射，INVALID没有对应的进度
func progressState(s entity.RouteState) (entity.RouteProgressState, bool) {
	switch s {
	case entity.RouteStateInitialized:
		return entity.RouteProgressInitialized, true
	case entity.RouteStateTracking:
		return entity.RouteProgressTracking, true
	case entity.RouteStateComplete:
		return entity.RouteProgressComplete, true
	case entity.RouteStateOffRoute:
		return entity.RouteProgressOffRoute, true
	case entity.RouteStateUncertain:
		return entity.RouteProgressUncertain, true
	}
	return 0, false
}

// buildProgress 由状态tick与当前主路线推导路线进度
// 参数：route-当前主路线，status-状态tick，banner-状态中或向引擎查询到的当前横幅
// 说明：路线缺少路段或步骤时相应字段保持零值
func buildProgress(route *entity.Route, status *entity.NavigationStatus, banner *entity.BannerInstruction) *entity.RouteProgress {
	state, ok := progressState(status.RouteState)
	if !ok {
		return nil
	}
	p := &entity.RouteProgress{
		Route:               route,
		State:               state,
		LegIndex:            status.LegIndex,
		DistanceRemaining:   status.RouteDistanceRemaining,
		DurationRemaining:   status.RouteDurationRemaining,
		BannerInstruction:   banner,
		VoiceInstruction:    status.VoiceInstruction,
		UpcomingRoadObjects: slices.Clone(status.UpcomingRoadObjects),
		InTunnel:            status.InTunnel,
		Stale:               status.Stale,
		ZLevel:              copyInt(status.Layer),
	}
	p.DistanceTraveled, p.FractionTraveled = traveled(route.Distance, status.RouteDistanceRemaining)
	p.RemainingWaypoints = max(len(route.Legs)-status.LegIndex, 0)

	lp := &p.CurrentLegProgress
	lp.LegIndex = status.LegIndex
	lp.DistanceRemaining = status.LegDistanceRemaining
	lp.DurationRemaining = status.LegDurationRemaining
	lp.DestinationName = status.CurrentLegDestinationName
	lp.GeometryIndexInLeg = status.GeometryIndex
	lp.CurrentStep.StepIndex = status.StepIndex
	lp.CurrentStep.DistanceRemaining = status.StepDistanceRemaining
	lp.CurrentStep.DurationRemaining = status.StepDurationRemaining
	if status.LegIndex < 0 || status.LegIndex >= len(route.Legs) {
		return p
	}
	leg := route.Legs[status.LegIndex]
	lp.Leg = leg
	lp.DistanceTraveled, lp.FractionTraveled = traveled(leg.Distance, status.LegDistanceRemaining)
	if status.StepIndex < 0 || status.StepIndex >= len(leg.Steps) {
		return p
	}
	step := leg.Steps[status.StepIndex]
	lp.CurrentStep.Step = step
	lp.CurrentStep.DistanceTraveled, lp.CurrentStep.FractionTraveled = traveled(step.Distance, status.StepDistanceRemaining)
	if status.StepIndex+1 < len(leg.Steps) {
		lp.UpcomingStep = leg.Steps[status.StepIndex+1]
	}
	return p
}

func traveled(total, remaining float64) (float64, float64) {
	if total <= 0 {
		return 0, 0
	}
	d := min(max(total-remaining, 0), total)
	return d, d / total
}

// buildMatcherResult 由状态tick构造地图匹配结果
func buildMatcherResult(status *entity.NavigationStatus, raw *entity.Location) *entity.LocationMatcherResult {
	res := &entity.LocationMatcherResult{
		Enhanced:                 status.Location,
		KeyPoints:                slices.Clone(status.KeyPoints),
		IsTeleport:               status.IsTeleport,
		IsOffRoad:                status.IsOffRoad,
		ZLevel:                   copyInt(status.Layer),
		RoadEdgeMatchProbability: status.RoadEdgeMatchProbability,
	}
	if raw != nil {
		r := *raw
		res.Raw = &r
	}
	return res
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sameBanner(a, b *entity.BannerInstruction) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameVoice(a, b *entity.VoiceInstruction) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
