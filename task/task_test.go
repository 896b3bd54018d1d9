package task_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tripcore/clock"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/entity/navigator"
	"github.com/tsinghua-fib-lab/tripcore/entity/route"
	"github.com/tsinghua-fib-lab/tripcore/task"
	"github.com/tsinghua-fib-lab/tripcore/utils/config"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var (
	pA = orb.Point{116.300, 39.980}
	pB = orb.Point{116.310, 39.980}
)

type env struct {
	clk    *clock.Sim
	replay *navigator.ReplayEngine
	nav    *task.Navigation
}

func newEnv(t *testing.T, opts navigator.ReplayOptions) *env {
	t.Helper()
	rc, err := config.NewRuntimeConfig(config.Config{})
	require.NoError(t, err)
	clk := clock.NewSim(time.Unix(0, 0))
	replay := navigator.NewReplayEngine(clk, []orb.Point{pA, pB}, opts)
	nav := task.New(rc, task.Deps{
		Router:         route.NewRouterWrapper(route.NewLocalRouter(clk, 0, false, 1), ""),
		Navigator:      navigator.New(rc.OffRouteThreshold),
		LocationEngine: replay,
		Clock:          clk,
	})
	t.Cleanup(nav.Close)
	return &env{clk: clk, replay: replay, nav: nav}
}

// 请求A到B的路线并设置，等待导航引擎接受
func (e *env) setRoute(t *testing.T) []*entity.Route {
	t.Helper()
	ch := make(chan entity.RouterResult, 1)
	e.nav.RequestRoutes(context.Background(), entity.DefaultNavigationOptions(pA, pB), func(r entity.RouterResult) {
		ch <- r
	})
	var res entity.RouterResult
	select {
	case res = <-ch:
	case <-time.After(waitFor):
		t.Fatal("route request timed out")
	}
	require.Equal(t, entity.RouterOutcomeReady, res.Outcome)
	e.nav.SetRoutes(res.Routes, 0)
	require.Eventually(t, func() bool { return len(e.nav.Routes()) > 0 }, waitFor, tick)
	return res.Routes
}

type reasons struct {
	mtx  sync.Mutex
	list []entity.RoutesUpdateReason
}

func (r *reasons) add(_ []*entity.Route, reason entity.RoutesUpdateReason) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.list = append(r.list, reason)
}

func (r *reasons) has(reason entity.RoutesUpdateReason) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return slices.Contains(r.list, reason)
}

func TestRoutesFlowToTripAndRefresh(t *testing.T) {
	e := newEnv(t, navigator.ReplayOptions{Speed: 10})
	routes := e.setRoute(t)
	assert.Equal(t, routes[0].ID(), e.nav.Routes()[0].ID())
	assert.Equal(t, routes, e.nav.DirectionsSession().Routes())

	// 路线可刷新，刷新定时器已调度
	require.Eventually(t, func() bool { return e.clk.Pending() == 1 }, waitFor, tick)

	e.nav.SetRoutes(nil, 0)
	require.Eventually(t, func() bool { return len(e.nav.Routes()) == 0 }, waitFor, tick)
	assert.Eventually(t, func() bool { return e.clk.Pending() == 0 }, waitFor, tick)
	assert.Equal(t, entity.RoutesUpdateReasonCleanUp, e.nav.DirectionsSession().LastReason())
}

func TestOffRouteTriggersReroute(t *testing.T) {
	e := newEnv(t, navigator.ReplayOptions{Speed: 20, DetourAfter: 3 * time.Second, DetourMeters: 200})
	rec := &reasons{}
	e.nav.RegisterRoutesObserver(entity.NewRoutesObserver(rec.add))
	e.setRoute(t)
	e.nav.StartTripSession(false)

	for iter := 0; iter < 2; iter++ {
		e.clk.Advance(time.Second)
		e.replay.Tick(time.Second)
	}
	require.Eventually(t, func() bool { return e.nav.RouteProgress() != nil }, waitFor, tick)

	e.clk.Advance(time.Second)
	e.replay.Tick(time.Second)
	assert.Eventually(t, func() bool { return rec.has(entity.RoutesUpdateReasonReroute) }, waitFor, tick)
	assert.Eventually(t, func() bool { return e.nav.RerouteState().Type == entity.RerouteIdle }, waitFor, tick)
	assert.Equal(t, entity.RoutesUpdateReasonReroute, e.nav.DirectionsSession().LastReason())
}

func TestRerouteDisabled(t *testing.T) {
	e := newEnv(t, navigator.ReplayOptions{Speed: 20, DetourAfter: time.Second, DetourMeters: 200})
	e.nav.SetRerouteEnabled(false)
	assert.False(t, e.nav.IsRerouteEnabled())
	rec := &reasons{}
	e.nav.RegisterRoutesObserver(entity.NewRoutesObserver(rec.add))
	e.setRoute(t)
	e.nav.StartTripSession(false)

	var offRoute []bool
	var mtx sync.Mutex
	e.nav.RegisterOffRouteObserver(entity.NewOffRouteObserver(func(v bool) {
		mtx.Lock()
		defer mtx.Unlock()
		offRoute = append(offRoute, v)
	}))
	for iter := 0; iter < 3; iter++ {
		e.replay.Tick(time.Second)
	}
	e.nav.TripSession().Wait()
	mtx.Lock()
	assert.Equal(t, []bool{false, true}, offRoute)
	mtx.Unlock()
	assert.Never(t, func() bool { return rec.has(entity.RoutesUpdateReasonReroute) }, 100*time.Millisecond, tick)
}

func TestStopTripSessionKeepsRoutes(t *testing.T) {
	e := newEnv(t, navigator.ReplayOptions{Speed: 10})
	var states []entity.TripSessionState
	e.nav.RegisterTripSessionStateObserver(entity.NewTripSessionStateObserver(func(s entity.TripSessionState) {
		states = append(states, s)
	}))
	e.setRoute(t)
	e.nav.StartTripSession(true)
	assert.True(t, e.nav.TripSession().IsRunningWithForegroundService())
	e.nav.StopTripSession()
	assert.Equal(t, entity.TripSessionStopped, e.nav.TripSessionState())
	assert.Equal(t, []entity.TripSessionState{entity.TripSessionStopped, entity.TripSessionStarted, entity.TripSessionStopped}, states)
	assert.NotEmpty(t, e.nav.Routes())
}

func TestNavigateNextRouteLegWithoutProgress(t *testing.T) {
	e := newEnv(t, navigator.ReplayOptions{Speed: 10})
	var got []bool
	e.nav.NavigateNextRouteLeg(func(ok bool) { got = append(got, ok) })
	assert.Equal(t, []bool{false}, got)
}

func TestCloseIsIdempotent(t *testing.T) {
	e := newEnv(t, navigator.ReplayOptions{Speed: 10})
	e.setRoute(t)
	e.nav.StartTripSession(false)
	assert.NotEmpty(t, e.nav.ID())
	require.Eventually(t, func() bool { return e.clk.Pending() == 1 }, waitFor, tick)

	e.nav.Close()
	e.nav.Close()
	assert.True(t, e.nav.IsClosed())
	assert.Equal(t, entity.TripSessionStopped, e.nav.TripSessionState())
	assert.Equal(t, 0, e.clk.Pending())

	var res entity.RouterResult
	e.nav.RequestRoutes(context.Background(), entity.DefaultNavigationOptions(pA, pB), func(r entity.RouterResult) {
		res = r
	})
	assert.Equal(t, entity.RouterOutcomeFailure, res.Outcome)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, task.ErrClosed)
}

func TestRunReplaysToArrival(t *testing.T) {
	e := newEnv(t, navigator.ReplayOptions{Speed: 50})
	e.setRoute(t)
	e.nav.StartTripSession(false)

	steps := e.nav.Run(e.clk, e.replay)
	assert.Greater(t, steps, int32(0))
	assert.True(t, e.replay.Finished())
	progress := e.nav.RouteProgress()
	require.NotNil(t, progress)
	assert.Equal(t, entity.RouteProgressComplete, progress.State)
	assert.InDelta(t, 0, progress.DistanceRemaining, 1)
}

// 统计刷新请求的路线服务
type countingRouter struct {
	entity.IRouter
	mtx       sync.Mutex
	refreshes int
	inflight  int
}

func (r *countingRouter) GetRouteRefresh(ctx context.Context, rt *entity.Route, legIndex int, cb entity.RouteRefreshCallback) int64 {
	r.mtx.Lock()
	r.refreshes++
	r.inflight++
	r.mtx.Unlock()
	return r.IRouter.GetRouteRefresh(ctx, rt, legIndex, func(res entity.RouteRefreshResult) {
		cb(res)
		r.mtx.Lock()
		r.inflight--
		r.mtx.Unlock()
	})
}

func (r *countingRouter) counts() (refreshes, inflight int) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.refreshes, r.inflight
}

// 忙等直到cond成立，避免逐步推进时钟时的轮询间隔
func settle(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for !cond() {
		if time.Now().After(deadline) {
			require.FailNow(t, "condition not reached")
		}
		time.Sleep(50 * time.Microsecond)
	}
}

func TestRefreshCadenceWithRouterLatency(t *testing.T) {
	c := config.Config{}
	c.Navigation.RouteRefresh.IntervalMillis = 60000
	rc, err := config.NewRuntimeConfig(c)
	require.NoError(t, err)
	clk := clock.NewSim(time.Unix(0, 0))
	router := &countingRouter{IRouter: route.NewRouterWrapper(route.NewLocalRouter(clk, 200*time.Millisecond, false, 1), "")}
	nav := task.New(rc, task.Deps{
		Router:         router,
		Navigator:      navigator.New(rc.OffRouteThreshold),
		LocationEngine: navigator.NewReplayEngine(clk, nil, navigator.ReplayOptions{}),
		Clock:          clk,
	})
	t.Cleanup(nav.Close)

	ch := make(chan entity.RouterResult, 1)
	nav.RequestRoutes(context.Background(), entity.DefaultNavigationOptions(pA, pB), func(r entity.RouterResult) {
		ch <- r
	})
	var res entity.RouterResult
	settle(t, func() bool {
		select {
		case res = <-ch:
			return true
		default:
			clk.Advance(10 * time.Millisecond)
			return false
		}
	})
	require.Equal(t, entity.RouterOutcomeReady, res.Outcome)
	nav.SetRoutes(res.Routes, 0)
	settle(t, func() bool { return len(nav.Routes()) > 0 && clk.Pending() == 1 })

	// 每个刷新请求在200ms时延后完成，完成时间不影响下一次刷新时刻
	end := clk.Now().Add(900 * time.Second)
	for clk.Now().Before(end) {
		clk.Advance(100 * time.Millisecond)
		settle(t, func() bool {
			_, inflight := router.counts()
			return inflight == 0 || clk.Pending() >= 2
		})
		nav.TripSession().Wait()
	}
	refreshes, _ := router.counts()
	assert.Equal(t, 15, refreshes)
}
