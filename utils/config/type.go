package config

// ControlStep 回放时钟的时间范围和间隔
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 回放过程控制
type Control struct {
	Step ControlStep `yaml:"step"`
}

// RouteRefresh 路线刷新配置
type RouteRefresh struct {
	IntervalMillis int64 `yaml:"interval_millis,omitempty"` // 刷新间隔（毫秒），默认300000
}

// Reroute 偏航重算配置
type Reroute struct {
	Enabled              *bool   `yaml:"enabled,omitempty"`                // 是否在偏航时自动重算，默认开启
	AvoidManeuverSeconds float64 `yaml:"avoid_maneuver_seconds,omitempty"` // 避让机动的时间窗口（秒），半径=速度*秒数
}

// Navigation 导航核心配置
type Navigation struct {
	RouteRefresh            RouteRefresh `yaml:"route_refresh"`
	Reroute                 Reroute      `yaml:"reroute"`
	OffRouteThresholdMeters float64      `yaml:"off_route_threshold_meters,omitempty"` // 偏航判定距离阈值（米）
}

// Router 路线服务配置
type Router struct {
	Offline       bool   `yaml:"offline,omitempty"`        // 离线模式，生成的路线不可刷新
	LatencyMillis int64  `yaml:"latency_millis,omitempty"` // 模拟请求时延（毫秒）
	AccessToken   string `yaml:"access_token,omitempty"`   // 访问令牌，日志中脱敏
	Alternatives  bool   `yaml:"alternatives,omitempty"`   // 是否请求备选路线
}

// Replay 轨迹回放配置
type Replay struct {
	Speed              float64     `yaml:"speed,omitempty"`                // 回放速度（米/秒）
	Seed               uint64      `yaml:"seed,omitempty"`                 // 随机种子
	NoiseMeters        float64     `yaml:"noise_meters,omitempty"`         // GPS噪声标准差（米）
	DetourAfterSeconds float64     `yaml:"detour_after_seconds,omitempty"` // 偏离路线的时间点（秒），0表示不偏离
	Waypoints          [][]float64 `yaml:"waypoints"`                      // 途经点[经度, 纬度]
}

// Config YAML配置文件的根结构
type Config struct {
	Control    Control    `yaml:"control"`    // 回放过程控制
	Navigation Navigation `yaml:"navigation"` // 导航核心
	Router     Router     `yaml:"router"`     // 路线服务
	Replay     Replay     `yaml:"replay"`     // 轨迹回放
}
