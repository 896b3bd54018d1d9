package route

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tripcore/clock"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/utils/geometry"
	"github.com/tsinghua-fib-lab/tripcore/utils/randengine"
)

const (
	segmentLength       = 100.  // 几何加密间隔（米）
	bannerPrepareLength = 200.  // 第二条横幅的提前距离（米）
	voiceNearLength     = 100.  // 临近播报的提前距离（米）
	alternativeOffset   = 0.15  // 备选路线中点的横向偏移比例
	incidentProbability = 0.1   // 刷新时每个路段出现事件的概率
	speedNoiseStd       = 0.15  // 刷新时速度扰动的相对标准差
	defaultCountry      = "CN"  // 行政区代码
	turnThreshold       = 20.   // 小于该转角视为直行（度）
	sharpTurnThreshold  = 120.  // 大于该转角视为急转（度）
	minFactor           = 0.3   // 速度扰动下限
	maxFactor           = 1.5   // 速度扰动上限
	severeFactor        = 0.5   // 严重拥堵阈值
	heavyFactor         = 0.75  // 拥堵阈值
	moderateFactor      = 0.9   // 缓行阈值
)

// 各出行方式的自由流速度（米/秒）
var profileSpeed = map[string]float64{
	entity.ProfileDriving:        13.9,
	entity.ProfileDrivingTraffic: 11.1,
	entity.ProfileWalking:        1.4,
	entity.ProfileCycling:        4.2,
}

// LocalRouter 本地路线服务
// 功能：在途经点之间生成直线路段，用于回放与测试
type LocalRouter struct {
	clock   clock.Clock
	latency time.Duration
	offline bool
	rng     *randengine.Engine
}

// NewLocalRouter 创建本地路线服务
// 参数：clk-时钟（用于模拟时延），latency-模拟时延，offline-离线模式，seed-路况扰动的随机种子
func NewLocalRouter(clk clock.Clock, latency time.Duration, offline bool, seed uint64) *LocalRouter {
	return &LocalRouter{
		clock:   clk,
		latency: latency,
		offline: offline,
		rng:     randengine.New(seed),
	}
}

func (l *LocalRouter) Origin() entity.RouterOrigin {
	if l.offline {
		return entity.RouterOriginOffline
	}
	return entity.RouterOriginOnline
}

// 等待模拟时延，ctx取消时提前返回
func (l *LocalRouter) wait(ctx context.Context) error {
	if l.latency <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	t := l.clock.AfterFunc(l.latency, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}

// Fetch 路径规划
func (l *LocalRouter) Fetch(ctx context.Context, options *entity.RouteOptions) ([]*entity.Route, string, entity.RouterOrigin, error) {
	if err := l.wait(ctx); err != nil {
		return nil, "", "", err
	}
	id := uuid.NewString()
	if l.offline {
		id = entity.OfflineUUID
	}
	routes := []*entity.Route{buildRoute(options, options.Coordinates, options.WaypointIndices)}
	if options.Alternatives {
		coords, indices := detour(options)
		routes = append(routes, buildRoute(options, coords, indices))
	}
	return routes, id, l.Origin(), nil
}

// FetchRefresh 路线刷新，对legIndex及之后路段的速度做随机扰动
func (l *LocalRouter) FetchRefresh(ctx context.Context, route *entity.Route, legIndex int) ([]*entity.RouteLeg, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	speed := freeFlowSpeed(route.Options.Profile)
	out := make([]*entity.RouteLeg, len(route.Legs))
	for i := legIndex; i < len(route.Legs); i++ {
		leg := route.Legs[i]
		if !complete(leg.Annotation) {
			return nil, fmt.Errorf("route %s leg %d has incomplete annotation", route.ID(), i)
		}
		a := leg.Annotation.Clone()
		fresh := &entity.RouteLeg{Annotation: a}
		for j := range a.Distance {
			factor := lo.Clamp(l.rng.NormSafe(1, speedNoiseStd), minFactor, maxFactor)
			a.Speed[j] = math.Min(speed*factor, a.MaxSpeed[j])
			a.Duration[j] = a.Distance[j] / a.Speed[j]
			a.Congestion[j] = congestion(a.Speed[j] / speed)
			fresh.Duration += a.Duration[j]
		}
		if n := len(a.Distance); n > 0 && l.rng.PTrueSafe(incidentProbability) {
			start := l.rng.IntnSafe(n)
			fresh.Incidents = append(fresh.Incidents, &entity.Incident{
				ID:            uuid.NewString(),
				Type:          "congestion",
				Description:   fmt.Sprintf("slow traffic on leg %d", i),
				GeometryStart: start,
				GeometryEnd:   min(start+1, n),
			})
		}
		out[i] = fresh
	}
	return out, nil
}

func complete(a *entity.LegAnnotation) bool {
	if a == nil {
		return false
	}
	n := len(a.Distance)
	return len(a.Duration) == n && len(a.Speed) == n && len(a.MaxSpeed) == n && len(a.Congestion) == n
}

func freeFlowSpeed(profile string) float64 {
	if v, ok := profileSpeed[profile]; ok {
		return v
	}
	return profileSpeed[entity.ProfileDriving]
}

func congestion(factor float64) string {
	switch {
	case factor < severeFactor:
		return "severe"
	case factor < heavyFactor:
		return "heavy"
	case factor < moderateFactor:
		return "moderate"
	}
	return "low"
}

// 备选路线：在每个路段中点插入一个横向偏移的坐标
func detour(options *entity.RouteOptions) ([]orb.Point, []int) {
	src := options.Coordinates
	indices := options.WaypointIndices
	if len(indices) == 0 {
		indices = lo.Range(len(src))
	}
	var coords []orb.Point
	var outIndices []int
	for k := 0; k+1 < len(indices); k++ {
		outIndices = append(outIndices, len(coords))
		a, b := src[indices[k]], src[indices[k+1]]
		coords = append(coords, src[indices[k]:indices[k+1]]...)
		mid := geo.Midpoint(a, b)
		coords = append(coords, geo.PointAtBearingAndDistance(mid, geo.Bearing(a, b)+90, geo.Distance(a, b)*alternativeOffset))
	}
	outIndices = append(outIndices, len(coords))
	coords = append(coords, src[len(src)-1])
	return coords, outIndices
}

// 生成路线，coords为全部坐标，indices为途经点下标（为空表示全部坐标）
func buildRoute(options *entity.RouteOptions, coords []orb.Point, indices []int) *entity.Route {
	if len(indices) == 0 {
		indices = lo.Range(len(coords))
	}
	speed := freeFlowSpeed(options.Profile)
	r := &entity.Route{}
	var line []orb.Point
	for k := 0; k+1 < len(indices); k++ {
		leg := buildLeg(coords[indices[k]:indices[k+1]+1], speed, k == 0, waypointName(options, k+1))
		r.Legs = append(r.Legs, leg)
		r.Distance += leg.Distance
		r.Duration += leg.Duration
		for _, s := range leg.Steps {
			pts, _ := geometry.DecodePolyline6(s.Geometry)
			for _, p := range pts {
				if len(line) == 0 || line[len(line)-1] != p {
					line = append(line, p)
				}
			}
		}
	}
	r.Geometry = geometry.EncodePolyline6(line)
	return r
}

func waypointName(options *entity.RouteOptions, i int) string {
	if i < len(options.WaypointNames) {
		return options.WaypointNames[i]
	}
	return ""
}

// 加密线段，相邻点距离不超过segmentLength
func densify(a, b orb.Point) []orb.Point {
	d := geo.Distance(a, b)
	n := max(int(math.Ceil(d/segmentLength)), 1)
	pts := make([]orb.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		pts = append(pts, orb.Point{a.Lon() + t*(b.Lon()-a.Lon()), a.Lat() + t*(b.Lat()-a.Lat())})
	}
	return pts
}

// 生成单个路段：每两个相邻坐标之间一步，末尾为到达步
func buildLeg(pts []orb.Point, speed float64, depart bool, destination string) *entity.RouteLeg {
	leg := &entity.RouteLeg{
		Annotation: &entity.LegAnnotation{},
		Admins:     []string{defaultCountry},
	}
	var names []string
	for j := 0; j+1 < len(pts); j++ {
		geom := densify(pts[j], pts[j+1])
		step := &entity.LegStep{
			Geometry: geometry.EncodePolyline6(geom),
			Name:     fmt.Sprintf("Road %d", j+1),
			Maneuver: maneuverAt(pts, j, depart),
		}
		for i := 0; i+1 < len(geom); i++ {
			d := geo.Distance(geom[i], geom[i+1])
			a := leg.Annotation
			a.Distance = append(a.Distance, d)
			a.Duration = append(a.Duration, d/speed)
			a.Speed = append(a.Speed, speed)
			a.MaxSpeed = append(a.MaxSpeed, speed*maxFactor)
			a.Congestion = append(a.Congestion, "low")
			step.Distance += d
			step.Duration += d / speed
		}
		leg.Steps = append(leg.Steps, step)
		leg.Distance += step.Distance
		leg.Duration += step.Duration
		names = append(names, step.Name)
	}
	end := pts[len(pts)-1]
	arrive := &entity.LegStep{
		Geometry: geometry.EncodePolyline6([]orb.Point{end, end}),
		Name:     destination,
		Maneuver: entity.Maneuver{Type: "arrive", Location: end, Instruction: arriveText(destination)},
	}
	leg.Steps = append(leg.Steps, arrive)
	for j, s := range leg.Steps[:len(leg.Steps)-1] {
		next := leg.Steps[j+1].Maneuver
		s.BannerInstructions = bannersFor(s.Distance, next)
		s.VoiceInstructions = voicesFor(s.Distance, next)
	}
	arrive.BannerInstructions = []*entity.BannerInstruction{{
		Primary:      arrive.Maneuver.Instruction,
		ManeuverType: "arrive",
	}}
	leg.Summary = strings.Join(names, ", ")
	return leg
}

func arriveText(destination string) string {
	if destination == "" {
		return "You have arrived at your destination"
	}
	return "You have arrived at " + destination
}

// 坐标j处的机动
func maneuverAt(pts []orb.Point, j int, depart bool) entity.Maneuver {
	m := entity.Maneuver{Location: pts[j]}
	if j == 0 {
		if depart {
			m.Type = "depart"
			m.Instruction = "Head towards the next waypoint"
		} else {
			m.Type = "continue"
			m.Modifier = "straight"
			m.Instruction = "Continue to the next waypoint"
		}
		return m
	}
	turn := math.Mod(geo.Bearing(pts[j], pts[j+1])-geo.Bearing(pts[j-1], pts[j])+540, 360) - 180
	abs := math.Abs(turn)
	side := "right"
	if turn < 0 {
		side = "left"
	}
	switch {
	case abs < turnThreshold:
		m.Type, m.Modifier = "continue", "straight"
		m.Instruction = fmt.Sprintf("Continue onto Road %d", j+1)
	case abs > sharpTurnThreshold:
		m.Type, m.Modifier = "turn", "sharp "+side
		m.Instruction = fmt.Sprintf("Make a sharp %s onto Road %d", side, j+1)
	default:
		m.Type, m.Modifier = "turn", side
		m.Instruction = fmt.Sprintf("Turn %s onto Road %d", side, j+1)
	}
	return m
}

// 横幅按DistanceAlongGeometry降序
func bannersFor(distance float64, next entity.Maneuver) []*entity.BannerInstruction {
	out := []*entity.BannerInstruction{{
		DistanceAlongGeometry: distance,
		Primary:               next.Instruction,
		ManeuverType:          next.Type,
		ManeuverModifier:      next.Modifier,
	}}
	if distance > bannerPrepareLength {
		out = append(out, &entity.BannerInstruction{
			DistanceAlongGeometry: bannerPrepareLength,
			Primary:               next.Instruction,
			Secondary:             fmt.Sprintf("in %d m", int(bannerPrepareLength)),
			ManeuverType:          next.Type,
			ManeuverModifier:      next.Modifier,
		})
	}
	return out
}

// 语音按DistanceAlongGeometry降序
func voicesFor(distance float64, next entity.Maneuver) []*entity.VoiceInstruction {
	first := fmt.Sprintf("Continue for %d meters", int(math.Round(distance)))
	out := []*entity.VoiceInstruction{{
		DistanceAlongGeometry: distance,
		Announcement:          first,
		SSML:                  "<speak>" + first + "</speak>",
	}}
	if distance > voiceNearLength {
		near := fmt.Sprintf("In %d meters, %s", int(voiceNearLength), next.Instruction)
		out = append(out, &entity.VoiceInstruction{
			DistanceAlongGeometry: voiceNearLength,
			Announcement:          near,
			SSML:                  "<speak>" + near + "</speak>",
		})
	}
	return out
}
