package routeoptions

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tripcore/entity"
)

const (
	// 起点方位的允许偏差（度）
	OriginBearingTolerance = 90.
	// 避让机动半径上限（米）
	MaxAvoidManeuverRadius = 1000.
)

// Result 重算参数计算结果，Err非空时Options为nil
type Result struct {
	Options *entity.RouteOptions
	Err     error
}

// Updater 根据当前进度与位置生成重算请求参数
type Updater struct {
	AvoidManeuverSeconds float64 // 避让机动时间窗口（秒）
}

// New 创建参数更新器
func New(avoidManeuverSeconds float64) *Updater {
	return &Updater{AvoidManeuverSeconds: avoidManeuverSeconds}
}

// Update 生成重算请求参数
// 功能：以匹配后的位置为新起点，保留当前路段之后尚未到达的途经点
// 参数：options-主路线的请求参数，progress-当前路线进度，matcher-当前地图匹配结果
// 返回：新的请求参数；任一输入缺失或没有剩余途经点时返回错误
func (u *Updater) Update(
	options *entity.RouteOptions,
	progress *entity.RouteProgress,
	matcher *entity.LocationMatcherResult,
) Result {
	switch {
	case options == nil:
		return Result{Err: entity.ErrNoRouteOptions}
	case progress == nil:
		return Result{Err: entity.ErrNoRouteProgress}
	case matcher == nil:
		return Result{Err: entity.ErrNoLocation}
	}
	legIndex := progress.LegIndex
	legStart := legIndex
	if len(options.WaypointIndices) != 0 {
		if legIndex >= len(options.WaypointIndices)-1 {
			return Result{Err: fmt.Errorf("%w: leg %d of %d", entity.ErrNoWaypointsLeft, legIndex, len(options.WaypointIndices)-1)}
		}
		legStart = options.WaypointIndices[legIndex]
	}
	if legStart+1 >= len(options.Coordinates) {
		return Result{Err: fmt.Errorf("%w: leg %d of %d", entity.ErrNoWaypointsLeft, legIndex, options.LegCount())}
	}

	enhanced := matcher.Enhanced
	out := options.Clone()
	out.Coordinates = append([]orb.Point{enhanced.Point()}, options.Coordinates[legStart+1:]...)

	var originBearing *entity.Bearing
	if enhanced.Bearing != nil {
		originBearing = &entity.Bearing{Angle: *enhanced.Bearing, Tolerance: OriginBearingTolerance}
	}
	if len(options.Bearings) == len(options.Coordinates) {
		out.Bearings = append([]*entity.Bearing{originBearing}, out.Bearings[legStart+1:]...)
	} else if originBearing != nil {
		out.Bearings = make([]*entity.Bearing, len(out.Coordinates))
		out.Bearings[0] = originBearing
	} else {
		out.Bearings = nil
	}

	if len(options.WaypointIndices) != 0 {
		out.WaypointIndices = append([]int{0}, lo.FilterMap(options.WaypointIndices, func(i int, _ int) (int, bool) {
			return i - legStart, i > legStart
		})...)
	}
	if len(options.WaypointNames) > legIndex+1 {
		out.WaypointNames = append([]string{""}, options.WaypointNames[legIndex+1:]...)
	} else {
		out.WaypointNames = nil
	}

	speed := 0.
	if enhanced.Speed != nil {
		speed = *enhanced.Speed
	}
	out.AvoidManeuverRadius = AvoidManeuverRadius(options.Profile, speed, u.AvoidManeuverSeconds)
	return Result{Options: out}
}

// AvoidManeuverRadius 起点附近避让机动的半径
// 功能：半径=速度*秒数，截断到[0, 1000]米
// 返回：非驾车类出行方式或半径为0时返回nil
func AvoidManeuverRadius(profile string, speed, seconds float64) *float64 {
	if profile != entity.ProfileDriving && profile != entity.ProfileDrivingTraffic {
		return nil
	}
	r := lo.Clamp(speed*seconds, 0, MaxAvoidManeuverRadius)
	if r <= 0 {
		return nil
	}
	return &r
}
