package main

import (
	"context"
	"encoding/base64"
	"flag"
	"os"
	"sync"
	"time"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/tripcore/clock"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/entity/navigator"
	"github.com/tsinghua-fib-lab/tripcore/entity/route"
	"github.com/tsinghua-fib-lab/tripcore/task"
	"github.com/tsinghua-fib-lab/tripcore/utils/config"
)

// 偏离路线时的横向偏移为偏航阈值的倍数
const detourFactor = 3

var (
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "tripcore")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	c, err := config.Parse(file)
	if err != nil {
		log.Panicf("config file load err: %v", err)
	}
	log.Infof("%+v", c)
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		log.Panicf("config check err: %v", err)
	}
	if len(c.Replay.Waypoints) < 2 {
		log.Panicf("replay.waypoints needs at least 2 points, got %d", len(c.Replay.Waypoints))
	}
	waypoints := lo.Map(c.Replay.Waypoints, func(p []float64, i int) orb.Point {
		if len(p) != 2 {
			log.Panicf("replay.waypoints[%d] must be [lng, lat]", i)
		}
		return orb.Point{p[0], p[1]}
	})

	clk := clock.New(rc.C.Step)
	replay := navigator.NewReplayEngine(clk, nil, navigator.ReplayOptions{
		Speed:        rc.ReplaySpeed,
		NoiseMeters:  c.Replay.NoiseMeters,
		DetourAfter:  time.Duration(c.Replay.DetourAfterSeconds * float64(time.Second)),
		DetourMeters: rc.OffRouteThreshold * detourFactor,
		Seed:         c.Replay.Seed,
	})
	owner := task.NewOwner(func(rc *config.RuntimeConfig) (task.Deps, error) {
		return task.Deps{
			Router:         route.New(rc, clk),
			Navigator:      navigator.New(rc.OffRouteThreshold),
			LocationEngine: replay,
			Clock:          clk,
		}, nil
	})
	nav, err := owner.Setup(rc)
	if err != nil {
		log.Panicf("navigation setup err: %v", err)
	}
	defer owner.Destroy()
	watch(nav)

	primary := requestRoute(nav, clk, waypoints)
	line, err := primary.Points()
	if err != nil {
		log.Panicf("route geometry err: %v", err)
	}
	replay.SetPath(line)
	nav.StartTripSession(false)

	steps := nav.Run(clk, replay)
	if progress := nav.RouteProgress(); progress != nil {
		log.Infof("finished at step %d: state=%v traveled=%.0fm remaining=%.0fm",
			steps, progress.State, progress.DistanceTraveled, progress.DistanceRemaining)
	} else {
		log.Infof("finished at step %d without progress", steps)
	}
}

// requestRoute 请求并设置路线，推进仿真时钟直到导航引擎接受路线
func requestRoute(nav *task.Navigation, clk *clock.Sim, waypoints []orb.Point) *entity.Route {
	options := entity.DefaultNavigationOptions(waypoints...)
	options.AccessToken = nav.RuntimeConfig().All.Router.AccessToken
	options.Alternatives = nav.RuntimeConfig().All.Router.Alternatives

	accepted := make(chan *entity.Route, 1)
	var once sync.Once
	nav.RegisterRoutesObserver(entity.NewRoutesObserver(func(routes []*entity.Route, _ entity.RoutesUpdateReason) {
		if len(routes) > 0 {
			once.Do(func() { accepted <- routes[0] })
		}
	}))
	nav.RequestRoutes(context.Background(), options, func(res entity.RouterResult) {
		switch res.Outcome {
		case entity.RouterOutcomeReady:
			log.Infof("got %d routes from %s", len(res.Routes), res.Origin)
			nav.SetRoutes(res.Routes, 0)
		default:
			log.Panicf("route request %v: %+v", res.Outcome, res.Failures)
		}
	})
	for {
		select {
		case r := <-accepted:
			log.Infof("route %s accepted: %.0fm %.0fs", r.ID(), r.Distance, r.Duration)
			return r
		default:
		}
		if !clk.Step() {
			log.Panic("clock reached the end step before the route was set")
		}
		time.Sleep(time.Millisecond)
	}
}

// watch 把导航事件写入日志
func watch(nav *task.Navigation) {
	nav.RegisterOffRouteObserver(entity.NewOffRouteObserver(func(offRoute bool) {
		log.Infof("off route: %v", offRoute)
	}))
	nav.RegisterBannerInstructionsObserver(entity.NewBannerInstructionsObserver(func(b *entity.BannerInstruction) {
		log.Infof("banner: %s %s", b.Primary, b.Secondary)
	}))
	nav.RegisterVoiceInstructionsObserver(entity.NewVoiceInstructionsObserver(func(v *entity.VoiceInstruction) {
		log.Debugf("voice: %s", v.Announcement)
	}))
	nav.RegisterRerouteStateObserver(entity.NewRerouteStateObserver(func(s entity.RerouteState) {
		log.Infof("reroute: %v", s)
	}))
	nav.RegisterRoadObjectsOnRouteObserver(entity.NewRoadObjectsOnRouteObserver(func(objects []*entity.UpcomingRoadObject) {
		log.Infof("%d road objects on route", len(objects))
	}))
}
