package task

import (
	"flag"
	"time"

	"github.com/tsinghua-fib-lab/tripcore/clock"
	"github.com/tsinghua-fib-lab/tripcore/entity/navigator"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// Run 回放主循环
// 功能：每步推进仿真时钟（触发刷新与请求时延等定时器），再由回放定位源产生一个定位
// 说明：回放结束、到达结束步或上下文关闭时退出；退出时不关闭上下文
// 返回：退出时的步数
func (n *Navigation) Run(clk *clock.Sim, replay *navigator.ReplayEngine) int32 {
	dt := time.Duration(clk.DT * float64(time.Second))
	for !n.closed.Load() && clk.Step() {
		more := replay.Tick(dt)
		if step := clk.InternalStep(); *heartBeatInterval > 0 && step%int32(*heartBeatInterval) == 0 {
			n.heartbeat(clk)
		}
		if !more {
			break
		}
	}
	n.trip.Wait()
	n.heartbeat(clk)
	log.Infof("replay complete")
	return clk.InternalStep()
}

func (n *Navigation) heartbeat(clk *clock.Sim) {
	hour, minute, second := clk.GetHourMinuteSecond()
	progress := n.trip.RouteProgress()
	if progress == nil {
		n.log.Infof("STEP: %d(%d:%d:%.2f) state=%v no progress",
			clk.InternalStep(), hour, minute, second, n.trip.State())
		return
	}
	n.log.Infof("STEP: %d(%d:%d:%.2f) state=%v leg=%d remaining=%.0fm reroute=%v",
		clk.InternalStep(), hour, minute, second,
		progress.State, progress.LegIndex, progress.DistanceRemaining, n.reroute.State(),
	)
}
