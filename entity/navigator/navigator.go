package navigator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb/geo"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/utils/container"
	"github.com/tsinghua-fib-lab/tripcore/utils/geometry"
)

const (
	arriveTolerance  = 5.    // 距终点小于该距离视为到达（米）
	teleportDistance = 1000. // 相邻定位超过该距离视为瞬移（米）
)

var ErrNoRoute = errors.New("navigator has no route")

// SimNavigator 仿真导航引擎
// 功能：把定位匹配到主路线几何上，推导路段、步、剩余距离、横幅、语音与道路对象，
// 每次UpdateLocation后同步推送一次NavigationStatus
// 说明：状态观察者在引擎锁之外被调用，可以在回调中调用引擎的其它方法
type SimNavigator struct {
	offRouteThreshold float64
	log               *logrus.Entry

	mtx          sync.Mutex
	track        *track
	alternatives []string
	objects      []*entity.RoadObject
	legIndex     int
	s            float64 // 最近一次匹配的s坐标
	initialized  bool    // 设置路线后是否已匹配过定位
	last         *entity.Location
	banner       *entity.BannerInstruction

	observers *container.ObserverSet[entity.NavigatorObserver]
}

// New 创建仿真导航引擎
// 参数：offRouteThreshold-偏航判定距离（米）
func New(offRouteThreshold float64) *SimNavigator {
	return &SimNavigator{
		offRouteThreshold: offRouteThreshold,
		log:               log,
		observers:         container.NewObserverSet[entity.NavigatorObserver](),
	}
}

func (n *SimNavigator) AddStatusObserver(o entity.NavigatorObserver) bool {
	return n.observers.Add(o)
}

func (n *SimNavigator) RemoveStatusObserver(o entity.NavigatorObserver) bool {
	return n.observers.Remove(o)
}

// SetRoute 设置路线，routes为空时清除路线
// 返回：主路线上的全部道路对象
func (n *SimNavigator) SetRoute(ctx context.Context, routes []*entity.Route, legIndex int) (*entity.RouteInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		n.mtx.Lock()
		defer n.mtx.Unlock()
		n.reset(nil)
		n.log.Debug("route cleared")
		return &entity.RouteInfo{}, nil
	}
	t, err := newTrack(routes[0])
	if err != nil {
		return nil, err
	}
	if legIndex < 0 || legIndex >= max(len(t.legs), 1) {
		return nil, fmt.Errorf("leg index %d out of range [0, %d)", legIndex, len(t.legs))
	}

	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.reset(t)
	n.alternatives = lo.Map(routes[1:], func(r *entity.Route, _ int) string { return r.ID() })
	n.objects = t.roadObjects()
	n.legIndex = legIndex
	if legIndex < len(t.legs) {
		n.s = t.legs[legIndex].start
	}
	n.log.Debugf("route %s set with %d legs, %d road objects", t.route.ID(), len(t.legs), len(n.objects))
	return &entity.RouteInfo{RoadObjects: upcoming(n.objects, n.s), AlertsCount: len(n.objects)}, nil
}

func (n *SimNavigator) reset(t *track) {
	n.track = t
	n.alternatives = nil
	n.objects = nil
	n.legIndex = 0
	n.s = 0
	n.initialized = false
	n.banner = nil
}

// UpdateAnnotations 替换主路线的标注与事件，保留当前匹配进度
func (n *SimNavigator) UpdateAnnotations(ctx context.Context, route *entity.Route) (*entity.RouteInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.track == nil {
		return nil, ErrNoRoute
	}
	if route.Geometry != n.track.route.Geometry {
		return nil, fmt.Errorf("route %s geometry differs from the current route", route.ID())
	}
	t, err := newTrack(route)
	if err != nil {
		return nil, err
	}
	n.track = t
	n.objects = t.roadObjects()
	return &entity.RouteInfo{RoadObjects: upcoming(n.objects, n.s), AlertsCount: len(n.objects)}, nil
}

// UpdateLegIndex 切换到指定路段起点
func (n *SimNavigator) UpdateLegIndex(ctx context.Context, legIndex int) bool {
	if ctx.Err() != nil {
		return false
	}
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.track == nil || legIndex < 0 || legIndex >= len(n.track.legs) {
		return false
	}
	n.legIndex = legIndex
	n.s = n.track.legs[legIndex].start
	return true
}

// CurrentBannerInstruction 最近一次状态对应的横幅
func (n *SimNavigator) CurrentBannerInstruction(ctx context.Context) *entity.BannerInstruction {
	if ctx.Err() != nil {
		return nil
	}
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.banner
}

// UpdateLocation 匹配一个定位并推送状态
func (n *SimNavigator) UpdateLocation(ctx context.Context, fix entity.FixLocation) bool {
	if ctx.Err() != nil {
		return false
	}
	n.mtx.Lock()
	status := n.match(fix)
	n.mtx.Unlock()

	n.observers.Notify(func(o entity.NavigatorObserver) {
		o.OnStatus(status)
	})
	return true
}

// match 计算一次状态，调用方持有锁
func (n *SimNavigator) match(fix entity.FixLocation) *entity.NavigationStatus {
	raw := entity.ToLocation(fix)
	status := &entity.NavigationStatus{
		Location:   raw,
		RouteState: entity.RouteStateInvalid,
		Layer:      lo.ToPtr(0),
	}
	if n.last != nil && geo.Distance(n.last.Point(), raw.Point()) > teleportDistance {
		status.IsTeleport = true
	}
	n.last = &raw

	t := n.track
	if t == nil || len(t.legs) == 0 {
		status.KeyPoints = []entity.Location{raw}
		return status
	}
	proj, _ := geometry.Project(t.line, fix.Coordinate)
	status.PrimaryRouteID = t.route.ID()
	status.AlternativeRouteIDs = n.alternatives
	status.GeometryIndex = proj.Segment
	status.RoadEdgeMatchProbability = math.Max(0, 1-proj.Distance/n.offRouteThreshold)

	offRoute := proj.Distance > n.offRouteThreshold
	if !offRoute {
		n.s = math.Max(proj.Along, t.legs[n.legIndex].start)
		n.legIndex = t.legAt(n.s, n.legIndex)
		enhanced := raw
		enhanced.Longitude, enhanced.Latitude = proj.Point.Lon(), proj.Point.Lat()
		enhanced.Bearing = lo.ToPtr(proj.Bearing)
		status.Location = enhanced
	} else {
		status.IsOffRoad = true
	}
	status.KeyPoints = []entity.Location{status.Location}

	leg := t.route.Legs[n.legIndex]
	legSpan := t.legs[n.legIndex]
	stepIndex := t.stepAt(n.legIndex, n.s)
	status.LegIndex = n.legIndex
	status.StepIndex = stepIndex
	status.DistanceTraveled = n.s
	status.LegDistanceRemaining = math.Max(legSpan.end-n.s, 0)
	status.LegDurationRemaining = scaled(leg.Duration, status.LegDistanceRemaining, legSpan.length())
	status.RouteDistanceRemaining = math.Max(t.length-n.s, 0)
	status.RouteDurationRemaining = status.LegDurationRemaining
	for _, later := range t.route.Legs[n.legIndex+1:] {
		status.RouteDurationRemaining += later.Duration
	}
	if len(leg.Steps) > 0 {
		step := leg.Steps[stepIndex]
		stepSpan := t.steps[n.legIndex][stepIndex]
		status.StepDistanceRemaining = math.Max(stepSpan.end-n.s, 0)
		status.StepDurationRemaining = scaled(step.Duration, status.StepDistanceRemaining, stepSpan.length())
		status.VoiceInstruction = pickVoice(step.VoiceInstructions, status.StepDistanceRemaining)
		status.CurrentLegDestinationName = leg.Steps[len(leg.Steps)-1].Name
		// 没有覆盖当前位置的横幅时状态中留空，由调用方查询当前横幅
		if b := pickBanner(step.BannerInstructions, status.StepDistanceRemaining); b != nil {
			status.BannerInstruction = b
			n.banner = b
		} else if len(step.BannerInstructions) > 0 {
			n.banner = step.BannerInstructions[0]
		}
	}
	status.UpcomingRoadObjects = upcoming(n.objects, n.s)

	switch {
	case offRoute:
		status.RouteState = entity.RouteStateOffRoute
	case n.legIndex == len(t.legs)-1 && status.RouteDistanceRemaining <= arriveTolerance:
		status.RouteState = entity.RouteStateComplete
	case !n.initialized:
		status.RouteState = entity.RouteStateInitialized
	default:
		status.RouteState = entity.RouteStateTracking
	}
	n.initialized = true
	return status
}

func scaled(total, remaining, length float64) float64 {
	if length <= 0 {
		return 0
	}
	return total * remaining / length
}

// pickBanner 距步终点remaining米时应展示的横幅
// 说明：横幅按DistanceAlongGeometry降序，取仍覆盖当前位置的最后一条
func pickBanner(banners []*entity.BannerInstruction, remaining float64) *entity.BannerInstruction {
	var out *entity.BannerInstruction
	for _, b := range banners {
		if b.DistanceAlongGeometry >= remaining {
			out = b
		}
	}
	return out
}

func pickVoice(voices []*entity.VoiceInstruction, remaining float64) *entity.VoiceInstruction {
	var out *entity.VoiceInstruction
	for _, v := range voices {
		if v.DistanceAlongGeometry >= remaining {
			out = v
		}
	}
	return out
}
