package entity

import (
	"fmt"

	"github.com/paulmach/orb"
)

// 导航引擎对当前路线的跟踪状态
type RouteState int

const (
	RouteStateInvalid RouteState = iota
	RouteStateInitialized
	RouteStateTracking
	RouteStateComplete
	RouteStateOffRoute
	RouteStateUncertain
)

func (s RouteState) String() string {
	switch s {
	case RouteStateInvalid:
		return "INVALID"
	case RouteStateInitialized:
		return "INITIALIZED"
	case RouteStateTracking:
		return "TRACKING"
	case RouteStateComplete:
		return "COMPLETE"
	case RouteStateOffRoute:
		return "OFF_ROUTE"
	case RouteStateUncertain:
		return "UNCERTAIN"
	}
	return fmt.Sprintf("RouteState(%d)", int(s))
}

// 导航引擎每个tick产生的状态
type NavigationStatus struct {
	Location   Location   // 匹配后的位置
	KeyPoints  []Location // 本tick内的关键轨迹点
	RouteState RouteState
	IsTeleport bool
	IsOffRoad  bool

	LegIndex      int
	StepIndex     int
	GeometryIndex int

	DistanceTraveled          float64
	RouteDistanceRemaining    float64
	RouteDurationRemaining    float64
	LegDistanceRemaining      float64
	LegDurationRemaining      float64
	StepDistanceRemaining     float64
	StepDurationRemaining     float64
	RoadEdgeMatchProbability  float64
	UpcomingRoadObjects       []*UpcomingRoadObject
	BannerInstruction         *BannerInstruction // 为空时需向引擎查询当前横幅
	VoiceInstruction          *VoiceInstruction
	Layer                     *int // 道路层级（z-level）
	InTunnel                  bool
	Stale                     bool
	PrimaryRouteID            string
	AlternativeRouteIDs       []string
	CurrentLegDestinationName string
}

// 道路对象类型
type RoadObjectType int

const (
	RoadObjectIncident RoadObjectType = iota
	RoadObjectRestrictedArea
	RoadObjectCountryBorderCrossing
	RoadObjectTunnel
)

func (t RoadObjectType) String() string {
	switch t {
	case RoadObjectIncident:
		return "INCIDENT"
	case RoadObjectRestrictedArea:
		return "RESTRICTED_AREA"
	case RoadObjectCountryBorderCrossing:
		return "COUNTRY_BORDER_CROSSING"
	case RoadObjectTunnel:
		return "TUNNEL"
	}
	return fmt.Sprintf("RoadObjectType(%d)", int(t))
}

// 跨境信息
type CountryBorderCrossingInfo struct {
	From string
	To   string
}

// 路线上的道路对象
type RoadObject struct {
	ID             string
	Type           RoadObjectType
	Length         *float64  // 线状对象长度（米），点状对象为nil
	Location       orb.Point // 起点
	StartAlong     float64   // 起点沿路线距离（米）
	Incident       *Incident
	BorderCrossing *CountryBorderCrossingInfo
}

// 前方道路对象
type UpcomingRoadObject struct {
	RoadObject      *RoadObject
	DistanceToStart *float64 // 距对象起点的距离，已驶过起点时为nil
}

// NewUpcomingRoadObject 构造前方道路对象，负距离视为已驶过
func NewUpcomingRoadObject(obj *RoadObject, distanceToStart float64) *UpcomingRoadObject {
	u := &UpcomingRoadObject{RoadObject: obj}
	if distanceToStart >= 0 {
		d := distanceToStart
		u.DistanceToStart = &d
	}
	return u
}

// 导航引擎接受路线后返回的信息
type RouteInfo struct {
	RoadObjects []*UpcomingRoadObject
	AlertsCount int
}

// 路线进度状态
type RouteProgressState int

const (
	RouteProgressInitialized RouteProgressState = iota
	RouteProgressTracking
	RouteProgressComplete
	RouteProgressOffRoute
	RouteProgressUncertain
)

func (s RouteProgressState) String() string {
	switch s {
	case RouteProgressInitialized:
		return "INITIALIZED"
	case RouteProgressTracking:
		return "TRACKING"
	case RouteProgressComplete:
		return "COMPLETE"
	case RouteProgressOffRoute:
		return "OFF_ROUTE"
	case RouteProgressUncertain:
		return "UNCERTAIN"
	}
	return fmt.Sprintf("RouteProgressState(%d)", int(s))
}

// 当前步进度
type StepProgress struct {
	StepIndex         int
	Step              *LegStep
	DistanceTraveled  float64
	DistanceRemaining float64
	DurationRemaining float64
	FractionTraveled  float64
}

// 当前路段进度
type LegProgress struct {
	LegIndex           int
	Leg                *RouteLeg
	DistanceTraveled   float64
	DistanceRemaining  float64
	DurationRemaining  float64
	FractionTraveled   float64
	CurrentStep        StepProgress
	UpcomingStep       *LegStep
	DestinationName    string
	GeometryIndexInLeg int
}

// 路线进度快照，由状态tick与当前路线推导
type RouteProgress struct {
	Route               *Route
	State               RouteProgressState
	LegIndex            int
	DistanceTraveled    float64
	DistanceRemaining   float64
	DurationRemaining   float64
	FractionTraveled    float64
	CurrentLegProgress  LegProgress
	BannerInstruction   *BannerInstruction
	VoiceInstruction    *VoiceInstruction
	UpcomingRoadObjects []*UpcomingRoadObject
	RemainingWaypoints  int
	InTunnel            bool
	Stale               bool
	ZLevel              *int
}

// 地图匹配结果
type LocationMatcherResult struct {
	Raw                      *Location
	Enhanced                 Location
	KeyPoints                []Location
	IsTeleport               bool
	IsOffRoad                bool
	ZLevel                   *int
	RoadEdgeMatchProbability float64
}
