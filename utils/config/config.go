package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultRefreshInterval     = 5 * time.Minute
	DefaultAvoidManeuverSecond = 8.
	DefaultOffRouteThreshold   = 50.
	DefaultReplaySpeed         = 13.9
)

var ErrInvalidConfig = errors.New("invalid config")

// Parse 严格解析YAML配置，未知字段视为错误
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}
	return c, nil
}

// RuntimeConfig 运行时配置
// 功能：在YAML配置基础上补全默认值并转换为运行时使用的类型
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 回放控制配置

	RefreshInterval      time.Duration // 路线刷新间隔
	RerouteEnabled       bool          // 偏航时自动重算
	AvoidManeuverSeconds float64       // 避让机动时间窗口
	OffRouteThreshold    float64       // 偏航阈值（米）
	RouterLatency        time.Duration // 模拟请求时延
	ReplaySpeed          float64       // 回放速度（米/秒）
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：补全默认值并校验取值范围
// 参数：config-原始配置对象
// 返回：运行时配置，取值非法时返回ErrInvalidConfig
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	rc := &RuntimeConfig{
		All:                  config,
		C:                    config.Control,
		RefreshInterval:      DefaultRefreshInterval,
		RerouteEnabled:       true,
		AvoidManeuverSeconds: DefaultAvoidManeuverSecond,
		OffRouteThreshold:    DefaultOffRouteThreshold,
		ReplaySpeed:          DefaultReplaySpeed,
	}
	nav := config.Navigation
	if ms := nav.RouteRefresh.IntervalMillis; ms != 0 {
		if ms < 0 {
			return nil, fmt.Errorf("%w: route_refresh.interval_millis=%d", ErrInvalidConfig, ms)
		}
		rc.RefreshInterval = time.Duration(ms) * time.Millisecond
	}
	if nav.Reroute.Enabled != nil {
		rc.RerouteEnabled = *nav.Reroute.Enabled
	}
	if s := nav.Reroute.AvoidManeuverSeconds; s != 0 {
		if s < 0 {
			return nil, fmt.Errorf("%w: reroute.avoid_maneuver_seconds=%v", ErrInvalidConfig, s)
		}
		rc.AvoidManeuverSeconds = s
	}
	if d := nav.OffRouteThresholdMeters; d != 0 {
		if d < 0 {
			return nil, fmt.Errorf("%w: off_route_threshold_meters=%v", ErrInvalidConfig, d)
		}
		rc.OffRouteThreshold = d
	}
	if ms := config.Router.LatencyMillis; ms < 0 {
		return nil, fmt.Errorf("%w: router.latency_millis=%d", ErrInvalidConfig, ms)
	}
	rc.RouterLatency = time.Duration(config.Router.LatencyMillis) * time.Millisecond
	if v := config.Replay.Speed; v != 0 {
		if v < 0 {
			return nil, fmt.Errorf("%w: replay.speed=%v", ErrInvalidConfig, v)
		}
		rc.ReplaySpeed = v
	}
	if rc.C.Step.Interval <= 0 {
		rc.C.Step.Interval = 1
	}
	return rc, nil
}
