package route

import (
	"github.com/tsinghua-fib-lab/tripcore/clock"
	"github.com/tsinghua-fib-lab/tripcore/utils/config"
)

// New 初始化路线服务
// 功能：以本地路线后端创建路线服务，时延、离线模式与访问令牌来自配置
func New(rc *config.RuntimeConfig, clk clock.Clock) *RouterWrapper {
	local := NewLocalRouter(clk, rc.RouterLatency, rc.All.Router.Offline, rc.All.Replay.Seed)
	return NewRouterWrapper(local, rc.All.Router.AccessToken)
}
