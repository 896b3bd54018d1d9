package entity

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tripcore/utils/geometry"
)

// 离线路线的请求UUID，离线路线不可刷新
const OfflineUUID = "offline"

// 出行方式
const (
	ProfileDriving        = "driving"
	ProfileDrivingTraffic = "driving-traffic"
	ProfileWalking        = "walking"
	ProfileCycling        = "cycling"
)

// 路线标注类型
const (
	AnnotationDistance   = "distance"
	AnnotationDuration   = "duration"
	AnnotationSpeed      = "speed"
	AnnotationMaxSpeed   = "maxspeed"
	AnnotationCongestion = "congestion"
)

// 路线列表更新原因
type RoutesUpdateReason int

const (
	RoutesUpdateReasonNew RoutesUpdateReason = iota
	RoutesUpdateReasonReroute
	RoutesUpdateReasonAlternative
	RoutesUpdateReasonRefresh
	RoutesUpdateReasonCleanUp
)

func (r RoutesUpdateReason) String() string {
	switch r {
	case RoutesUpdateReasonNew:
		return "NEW"
	case RoutesUpdateReasonReroute:
		return "REROUTE"
	case RoutesUpdateReasonAlternative:
		return "ALTERNATIVE"
	case RoutesUpdateReasonRefresh:
		return "REFRESH"
	case RoutesUpdateReasonCleanUp:
		return "CLEAN_UP"
	}
	return fmt.Sprintf("RoutesUpdateReason(%d)", int(r))
}

// 方位约束，Angle为0~360度，Tolerance为允许偏差
type Bearing struct {
	Angle     float64
	Tolerance float64
}

// 路线请求参数，构造后视为不可变，修改前先Clone
type RouteOptions struct {
	BaseURL             string
	Profile             string
	Coordinates         []orb.Point // [经度, 纬度]
	Bearings            []*Bearing  // 与Coordinates一一对应，nil表示不约束
	Annotations         []string
	EnableRefresh       bool
	Alternatives        bool
	AvoidManeuverRadius *float64 // 起点附近避让机动的半径（米）
	WaypointIndices     []int    // 作为途经点（分段点）的坐标下标，为空表示全部坐标都是途经点
	WaypointNames       []string // 与途经点一一对应
	Language            string
	VoiceUnits          string
	AccessToken         string
}

// DefaultNavigationOptions 默认导航请求参数
// 功能：驾车（实时路况）、开启刷新、请求全部标注
func DefaultNavigationOptions(coordinates ...orb.Point) *RouteOptions {
	return &RouteOptions{
		BaseURL:       "https://api.navigation.local",
		Profile:       ProfileDrivingTraffic,
		Coordinates:   coordinates,
		Annotations:   []string{AnnotationCongestion, AnnotationDistance, AnnotationDuration, AnnotationSpeed, AnnotationMaxSpeed},
		EnableRefresh: true,
		Language:      "zh-CN",
		VoiceUnits:    "metric",
	}
}

// Clone 深拷贝
func (o *RouteOptions) Clone() *RouteOptions {
	if o == nil {
		return nil
	}
	c := *o
	c.Coordinates = slices.Clone(o.Coordinates)
	c.Bearings = lo.Map(o.Bearings, func(b *Bearing, _ int) *Bearing {
		if b == nil {
			return nil
		}
		cp := *b
		return &cp
	})
	c.Annotations = slices.Clone(o.Annotations)
	c.WaypointIndices = slices.Clone(o.WaypointIndices)
	c.WaypointNames = slices.Clone(o.WaypointNames)
	if o.AvoidManeuverRadius != nil {
		r := *o.AvoidManeuverRadius
		c.AvoidManeuverRadius = &r
	}
	return &c
}

// IsDrivingProfile 是否为驾车类出行方式
func (o *RouteOptions) IsDrivingProfile() bool {
	return o != nil && (o.Profile == ProfileDriving || o.Profile == ProfileDrivingTraffic)
}

// Validate 检查请求参数
func (o *RouteOptions) Validate() error {
	if o == nil {
		return ErrNoRouteOptions
	}
	if len(o.Coordinates) < 2 {
		return fmt.Errorf("%w: need at least 2 coordinates, got %d", ErrInvalidRouteOptions, len(o.Coordinates))
	}
	if len(o.Bearings) != 0 && len(o.Bearings) != len(o.Coordinates) {
		return fmt.Errorf("%w: %d bearings for %d coordinates", ErrInvalidRouteOptions, len(o.Bearings), len(o.Coordinates))
	}
	if n := len(o.WaypointIndices); n != 0 {
		if o.WaypointIndices[0] != 0 || o.WaypointIndices[n-1] != len(o.Coordinates)-1 {
			return fmt.Errorf("%w: waypoint indices must start at 0 and end at %d", ErrInvalidRouteOptions, len(o.Coordinates)-1)
		}
	}
	return nil
}

// LegCount 路段数量
func (o *RouteOptions) LegCount() int {
	if n := len(o.WaypointIndices); n != 0 {
		return n - 1
	}
	return max(len(o.Coordinates)-1, 0)
}

// RequestURL 生成请求地址
func (o *RouteOptions) RequestURL() string {
	coords := lo.Map(o.Coordinates, func(p orb.Point, _ int) string {
		return fmt.Sprintf("%.6f,%.6f", p.Lon(), p.Lat())
	})
	q := url.Values{}
	q.Set("access_token", o.AccessToken)
	q.Set("geometries", "polyline6")
	q.Set("steps", "true")
	if len(o.Annotations) > 0 {
		q.Set("annotations", strings.Join(o.Annotations, ","))
	}
	if o.EnableRefresh {
		q.Set("enable_refresh", "true")
	}
	if o.AvoidManeuverRadius != nil {
		q.Set("avoid_maneuver_radius", fmt.Sprintf("%g", *o.AvoidManeuverRadius))
	}
	return fmt.Sprintf("%s/directions/v5/%s/%s?%s", o.BaseURL, o.Profile, strings.Join(coords, ";"), q.Encode())
}

// 路段标注，各数组长度为几何线段数
type LegAnnotation struct {
	Distance   []float64
	Duration   []float64
	Speed      []float64
	MaxSpeed   []float64
	Congestion []string
}

// Clone 深拷贝
func (a *LegAnnotation) Clone() *LegAnnotation {
	if a == nil {
		return nil
	}
	return &LegAnnotation{
		Distance:   slices.Clone(a.Distance),
		Duration:   slices.Clone(a.Duration),
		Speed:      slices.Clone(a.Speed),
		MaxSpeed:   slices.Clone(a.MaxSpeed),
		Congestion: slices.Clone(a.Congestion),
	}
}

// 交通事件
type Incident struct {
	ID            string
	Type          string
	Description   string
	GeometryStart int // 在路段几何中的起止下标
	GeometryEnd   int
}

// 道路封闭
type Closure struct {
	GeometryStart int
	GeometryEnd   int
}

// 机动点
type Maneuver struct {
	Type        string
	Modifier    string
	Location    orb.Point
	Instruction string
}

// 引导横幅
// DistanceAlongGeometry：距离本步结束多少米时开始展示
type BannerInstruction struct {
	DistanceAlongGeometry float64
	Primary               string
	Secondary             string
	ManeuverType          string
	ManeuverModifier      string
}

// 语音播报
type VoiceInstruction struct {
	DistanceAlongGeometry float64
	Announcement          string
	SSML                  string
}

// 路段中的一步（一个机动）
type LegStep struct {
	Distance           float64
	Duration           float64
	Geometry           string // polyline6
	Name               string
	Maneuver           Maneuver
	BannerInstructions []*BannerInstruction // 按DistanceAlongGeometry降序
	VoiceInstructions  []*VoiceInstruction  // 按DistanceAlongGeometry降序
	AdminIndex         int                  // 所在行政区在RouteLeg.Admins中的下标
	Restricted         bool                 // 是否经过限行区域
}

// 两个途经点之间的路段
type RouteLeg struct {
	Distance   float64
	Duration   float64
	Summary    string
	Steps      []*LegStep
	Annotation *LegAnnotation
	Incidents  []*Incident
	Closures   []*Closure
	Admins     []string // 途经行政区的国家代码
}

// 路线，构造后视为不可变
type Route struct {
	RequestUUID string
	RouteIndex  int
	Options     *RouteOptions
	Distance    float64 // 米
	Duration    float64 // 秒
	Geometry    string  // polyline6
	Legs        []*RouteLeg
}

// ID 路线标识：请求UUID#序号
func (r *Route) ID() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%s#%d", r.RequestUUID, r.RouteIndex)
}

// Points 解码路线几何
func (r *Route) Points() (orb.LineString, error) {
	return geometry.DecodePolyline6(r.Geometry)
}

// IsRefreshable 是否满足刷新条件
func (r *Route) IsRefreshable() error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: no route", ErrRefreshIneligible)
	case r.Options == nil:
		return fmt.Errorf("%w: route options are missing", ErrRefreshIneligible)
	case r.RequestUUID == "":
		return fmt.Errorf("%w: request uuid is empty", ErrRefreshIneligible)
	case r.RequestUUID == OfflineUUID:
		return fmt.Errorf("%w: route is offline", ErrRefreshIneligible)
	case !r.Options.EnableRefresh:
		return fmt.Errorf("%w: refresh is disabled in route options", ErrRefreshIneligible)
	}
	return nil
}

// WithRefreshedLegs 以新的标注和事件替换从legIndex开始的路段，返回新路线
// 说明：原路线不变；几何与步骤保持原样
func (r *Route) WithRefreshedLegs(legIndex int, fresh []*RouteLeg) *Route {
	out := *r
	out.Legs = slices.Clone(r.Legs)
	out.Duration = 0
	for i, leg := range out.Legs {
		if i >= legIndex && i < len(fresh) && fresh[i] != nil {
			cp := *leg
			cp.Annotation = fresh[i].Annotation.Clone()
			cp.Incidents = slices.Clone(fresh[i].Incidents)
			cp.Closures = slices.Clone(fresh[i].Closures)
			if fresh[i].Duration > 0 {
				cp.Duration = fresh[i].Duration
			}
			out.Legs[i] = &cp
		}
		out.Duration += out.Legs[i].Duration
	}
	return &out
}
