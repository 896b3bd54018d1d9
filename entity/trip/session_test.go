package trip_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/entity/trip"
)

// 导航引擎替身：主路线UUID在gates中时SetRoute/UpdateAnnotations阻塞到gate关闭（忽略ctx）
type fakeNavigator struct {
	mtx             sync.Mutex
	observer        entity.NavigatorObserver
	gates           map[string]chan struct{}
	pushes          int
	setCalls        [][]*entity.Route
	annotationCalls []*entity.Route
	info            *entity.RouteInfo
	fixes           []entity.FixLocation

	bannerHold chan struct{}
	banner     *entity.BannerInstruction
	legHold    chan struct{}
}

func newFakeNavigator() *fakeNavigator {
	return &fakeNavigator{gates: map[string]chan struct{}{}}
}

func (n *fakeNavigator) gate(uuid string) chan struct{} {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	ch := make(chan struct{})
	n.gates[uuid] = ch
	return ch
}

func (n *fakeNavigator) wait(routes []*entity.Route) {
	n.mtx.Lock()
	n.pushes++
	var ch chan struct{}
	if len(routes) != 0 {
		ch = n.gates[routes[0].RequestUUID]
	}
	n.mtx.Unlock()
	if ch != nil {
		<-ch
	}
}

func (n *fakeNavigator) UpdateLocation(_ context.Context, fix entity.FixLocation) bool {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.fixes = append(n.fixes, fix)
	return true
}

func (n *fakeNavigator) SetRoute(_ context.Context, routes []*entity.Route, _ int) (*entity.RouteInfo, error) {
	n.mtx.Lock()
	n.setCalls = append(n.setCalls, routes)
	info := n.info
	n.mtx.Unlock()
	n.wait(routes)
	return info, nil
}

func (n *fakeNavigator) UpdateAnnotations(_ context.Context, route *entity.Route) (*entity.RouteInfo, error) {
	n.mtx.Lock()
	n.annotationCalls = append(n.annotationCalls, route)
	info := n.info
	n.mtx.Unlock()
	n.wait([]*entity.Route{route})
	return info, nil
}

func (n *fakeNavigator) UpdateLegIndex(ctx context.Context, _ int) bool {
	if n.legHold == nil {
		return true
	}
	select {
	case <-n.legHold:
		return true
	case <-ctx.Done():
		return false
	}
}

func (n *fakeNavigator) CurrentBannerInstruction(ctx context.Context) *entity.BannerInstruction {
	if n.bannerHold != nil {
		select {
		case <-n.bannerHold:
		case <-ctx.Done():
			return nil
		}
	}
	return n.banner
}

func (n *fakeNavigator) AddStatusObserver(o entity.NavigatorObserver) bool {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.observer = o
	return true
}

func (n *fakeNavigator) RemoveStatusObserver(entity.NavigatorObserver) bool {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.observer = nil
	return true
}

func (n *fakeNavigator) tick(status *entity.NavigationStatus) {
	n.mtx.Lock()
	o := n.observer
	n.mtx.Unlock()
	if o != nil {
		o.OnStatus(status)
	}
}

type fakeLocationEngine struct {
	listener entity.LocationListener
}

func (e *fakeLocationEngine) RequestLocationUpdates(l entity.LocationListener) bool {
	e.listener = l
	return true
}

func (e *fakeLocationEngine) RemoveLocationUpdates(entity.LocationListener) bool {
	e.listener = nil
	return true
}

func testRoute(uuid string) *entity.Route {
	return &entity.Route{
		RequestUUID: uuid,
		Distance:    100,
		Duration:    10,
		Legs: []*entity.RouteLeg{{
			Distance: 100,
			Duration: 10,
			Steps: []*entity.LegStep{
				{Distance: 60, Duration: 6, Maneuver: entity.Maneuver{Type: "depart"}},
				{Distance: 40, Duration: 4, Maneuver: entity.Maneuver{Type: "arrive"}},
			},
		}},
	}
}

func status(state entity.RouteState) *entity.NavigationStatus {
	return &entity.NavigationStatus{
		Location:               entity.Location{Longitude: 116.3, Latitude: 39.98},
		RouteState:             state,
		RouteDistanceRemaining: 75,
		LegDistanceRemaining:   75,
		StepDistanceRemaining:  35,
		BannerInstruction:      &entity.BannerInstruction{Primary: "Turn left"},
	}
}

func layer(v int) *int { return &v }

type env struct {
	nav     *fakeNavigator
	engine  *fakeLocationEngine
	session *trip.Session
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{nav: newFakeNavigator(), engine: &fakeLocationEngine{}}
	e.session = trip.New(e.engine, e.nav)
	t.Cleanup(e.session.Shutdown)
	return e
}

// 线程安全的记录器
type recorder[T any] struct {
	mtx sync.Mutex
	got []T
}

func (r *recorder[T]) add(v T) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.got = append(r.got, v)
}

func (r *recorder[T]) all() []T {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]T(nil), r.got...)
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "route push did not finish")
	}
}

func TestStartStopNotifiesState(t *testing.T) {
	e := newEnv(t)
	states := &recorder[entity.TripSessionState]{}
	require.True(t, e.session.RegisterTripSessionStateObserver(entity.NewTripSessionStateObserver(states.add)))

	e.session.Start(false)
	assert.NotNil(t, e.nav.observer)
	assert.NotNil(t, e.engine.listener)
	assert.False(t, e.session.IsRunningWithForegroundService())

	// 已启动时只更新前台服务标记
	e.session.Start(true)
	assert.True(t, e.session.IsRunningWithForegroundService())

	e.session.Stop()
	e.session.Stop()
	assert.Nil(t, e.nav.observer)
	assert.Nil(t, e.engine.listener)
	assert.Equal(t, []entity.TripSessionState{
		entity.TripSessionStopped, entity.TripSessionStarted, entity.TripSessionStopped,
	}, states.all())
}

func TestZLevelFollowsStatus(t *testing.T) {
	e := newEnv(t)
	assert.Nil(t, e.session.ZLevel())
	e.session.Start(true)
	assert.Nil(t, e.session.ZLevel())

	st := status(entity.RouteStateInvalid)
	st.Layer = layer(3)
	e.nav.tick(st)
	require.NotNil(t, e.session.ZLevel())
	assert.Equal(t, 3, *e.session.ZLevel())

	e.session.Stop()
	assert.Nil(t, e.session.ZLevel())
}

func TestRoutesVisibleAfterPush(t *testing.T) {
	e := newEnv(t)
	published := &recorder[[]*entity.Route]{}
	e.session.RegisterRoutesObserver(entity.NewRoutesObserver(func(routes []*entity.Route, _ entity.RoutesUpdateReason) {
		published.add(routes)
	}))
	gate := e.nav.gate("a")
	routes := []*entity.Route{testRoute("a")}

	done := e.session.SetRoutes(routes, 0, entity.RoutesUpdateReasonNew)
	assert.Empty(t, e.session.Routes())
	assert.Nil(t, e.session.PrimaryRoute())

	close(gate)
	waitClosed(t, done)
	assert.Equal(t, routes, e.session.Routes())
	assert.Same(t, routes[0], e.session.PrimaryRoute())
	assert.Equal(t, [][]*entity.Route{routes}, published.all())
}

func TestOffRouteIsEdgeTriggered(t *testing.T) {
	e := newEnv(t)
	e.session.Start(true)
	waitClosed(t, e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew))

	changes := &recorder[bool]{}
	require.True(t, e.session.RegisterOffRouteObserver(entity.NewOffRouteObserver(changes.add)))
	for _, s := range []entity.RouteState{
		entity.RouteStateTracking, entity.RouteStateTracking,
		entity.RouteStateOffRoute, entity.RouteStateOffRoute,
		entity.RouteStateTracking,
	} {
		e.nav.tick(status(s))
	}
	// 注册时回放一次，之后只在变化时通知
	assert.Equal(t, []bool{false, true, false}, changes.all())
}

func TestSetRoutesResetsEphemeralStateSynchronously(t *testing.T) {
	e := newEnv(t)
	obj := &entity.RoadObject{ID: "incident-1", Type: entity.RoadObjectIncident}
	e.nav.info = &entity.RouteInfo{RoadObjects: []*entity.UpcomingRoadObject{entity.NewUpcomingRoadObject(obj, 50)}}
	e.session.Start(true)

	offRoute := &recorder[bool]{}
	objects := &recorder[int]{}
	e.session.RegisterOffRouteObserver(entity.NewOffRouteObserver(offRoute.add))
	e.session.RegisterRoadObjectsOnRouteObserver(entity.NewRoadObjectsOnRouteObserver(func(objs []*entity.UpcomingRoadObject) {
		objects.add(len(objs))
	}))

	waitClosed(t, e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew))
	e.nav.tick(status(entity.RouteStateOffRoute))
	require.NotNil(t, e.session.RouteProgress())
	require.True(t, e.session.IsOffRoute())
	require.Len(t, e.session.RoadObjects(), 1)

	gate := e.nav.gate("b")
	done := e.session.SetRoutes([]*entity.Route{testRoute("b")}, 0, entity.RoutesUpdateReasonReroute)
	assert.Nil(t, e.session.RouteProgress())
	assert.False(t, e.session.IsOffRoute())
	assert.Empty(t, e.session.RoadObjects())
	assert.Equal(t, []bool{false, true, false}, offRoute.all())
	assert.Equal(t, []int{0, 1, 0}, objects.all())

	close(gate)
	waitClosed(t, done)
	assert.Equal(t, []int{0, 1, 0, 1}, objects.all())
}

func TestLastSetRoutesWins(t *testing.T) {
	e := newEnv(t)
	published := &recorder[string]{}
	e.session.RegisterRoutesObserver(entity.NewRoutesObserver(func(routes []*entity.Route, _ entity.RoutesUpdateReason) {
		published.add(routes[0].RequestUUID)
	}))
	first, second := e.nav.gate("a"), e.nav.gate("b")

	doneA := e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew)
	doneB := e.session.SetRoutes([]*entity.Route{testRoute("b")}, 0, entity.RoutesUpdateReasonNew)
	require.Eventually(t, func() bool {
		e.nav.mtx.Lock()
		defer e.nav.mtx.Unlock()
		return e.nav.pushes == 2
	}, 5*time.Second, time.Millisecond)

	close(second)
	waitClosed(t, doneB)
	close(first)
	waitClosed(t, doneA)

	assert.Equal(t, "b", e.session.PrimaryRoute().RequestUUID)
	assert.Equal(t, []string{"b"}, published.all())
}

func TestPendingPushSkipsRouteDerivedState(t *testing.T) {
	e := newEnv(t)
	progress := &recorder[*entity.RouteProgress]{}
	matched := &recorder[*entity.LocationMatcherResult]{}
	offRoute := &recorder[bool]{}
	banners := &recorder[*entity.BannerInstruction]{}
	e.session.RegisterRouteProgressObserver(entity.NewRouteProgressObserver(progress.add))
	e.session.RegisterLocationObserver(entity.NewLocationObserver(nil, matched.add))
	e.session.RegisterOffRouteObserver(entity.NewOffRouteObserver(offRoute.add))
	e.session.RegisterBannerInstructionsObserver(entity.NewBannerInstructionsObserver(banners.add))
	e.session.Start(true)

	gate := e.nav.gate("a")
	done := e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew)

	for _, z := range []int{100, 200} {
		st := status(entity.RouteStateOffRoute)
		st.Layer = layer(z)
		e.nav.tick(st)
		assert.Equal(t, z, *e.session.ZLevel())
	}
	close(gate)
	waitClosed(t, done)

	st := status(entity.RouteStateOffRoute)
	st.Layer = layer(300)
	e.nav.tick(st)
	assert.Equal(t, 300, *e.session.ZLevel())

	assert.Len(t, matched.all(), 3)
	assert.Len(t, progress.all(), 1)
	assert.Len(t, banners.all(), 1)
	// 注册回放一次，下发完成后的tick一次
	assert.Equal(t, []bool{false, true}, offRoute.all())
}

func TestProgressUpdatedAfterRouteIsSet(t *testing.T) {
	e := newEnv(t)
	one, two := &recorder[*entity.RouteProgress]{}, &recorder[*entity.RouteProgress]{}
	e.session.RegisterRouteProgressObserver(entity.NewRouteProgressObserver(one.add))
	e.session.RegisterRouteProgressObserver(entity.NewRouteProgressObserver(two.add))
	e.session.Start(true)

	gate := e.nav.gate("a")
	done := e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew)
	for iter := 0; iter < 5; iter++ {
		e.nav.tick(status(entity.RouteStateTracking))
	}
	close(gate)
	waitClosed(t, done)
	for iter := 0; iter < 2; iter++ {
		e.nav.tick(status(entity.RouteStateTracking))
	}
	assert.Len(t, one.all(), 2)
	assert.Len(t, two.all(), 2)
}

func TestProgressJobLastTickWins(t *testing.T) {
	e := newEnv(t)
	e.nav.bannerHold = make(chan struct{})
	e.nav.banner = &entity.BannerInstruction{Primary: "fallback"}
	progress := &recorder[*entity.RouteProgress]{}
	e.session.RegisterRouteProgressObserver(entity.NewRouteProgressObserver(progress.add))
	e.session.Start(true)
	waitClosed(t, e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew))

	for iter := 0; iter < 5; iter++ {
		st := status(entity.RouteStateTracking)
		st.BannerInstruction = nil
		e.nav.tick(st)
	}
	close(e.nav.bannerHold)
	e.session.Wait()

	got := progress.all()
	require.Len(t, got, 1)
	assert.Equal(t, "fallback", got[0].BannerInstruction.Primary)
	assert.Equal(t, "fallback", e.session.BannerInstruction().Primary)
}

func TestBannerAndVoiceFireOnChange(t *testing.T) {
	e := newEnv(t)
	banners := &recorder[*entity.BannerInstruction]{}
	voices := &recorder[*entity.VoiceInstruction]{}
	e.session.RegisterBannerInstructionsObserver(entity.NewBannerInstructionsObserver(banners.add))
	e.session.RegisterVoiceInstructionsObserver(entity.NewVoiceInstructionsObserver(voices.add))
	e.session.Start(true)
	waitClosed(t, e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew))

	for _, text := range []string{"In 100 m turn left", "In 100 m turn left", "Turn left"} {
		st := status(entity.RouteStateTracking)
		st.BannerInstruction = &entity.BannerInstruction{Primary: "Turn left"}
		st.VoiceInstruction = &entity.VoiceInstruction{Announcement: text}
		e.nav.tick(st)
	}
	assert.Len(t, banners.all(), 1)
	assert.Len(t, voices.all(), 2)
}

func TestRefreshUpdatesAnnotationsOnly(t *testing.T) {
	e := newEnv(t)
	started := &recorder[struct{}]{}
	e.session.RegisterNativeRouteProcessingListener(entity.NewNativeRouteProcessingListener(func() {
		started.add(struct{}{})
	}))
	waitClosed(t, e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew))
	assert.Len(t, started.all(), 1)

	refreshed := testRoute("a")
	refreshed.Duration = 20
	waitClosed(t, e.session.SetRoutes([]*entity.Route{refreshed}, 0, entity.RoutesUpdateReasonRefresh))

	assert.Len(t, e.nav.setCalls, 1)
	require.Len(t, e.nav.annotationCalls, 1)
	assert.Same(t, refreshed, e.nav.annotationCalls[0])
	assert.Same(t, refreshed, e.session.PrimaryRoute())
	assert.Len(t, started.all(), 1)
}

func TestRefreshWithoutRouteFallsBackToSetRoute(t *testing.T) {
	e := newEnv(t)
	waitClosed(t, e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonRefresh))
	assert.Len(t, e.nav.setCalls, 1)
	assert.Empty(t, e.nav.annotationCalls)
}

func TestUnregisterAllProcessingListeners(t *testing.T) {
	e := newEnv(t)
	called := false
	e.session.RegisterNativeRouteProcessingListener(entity.NewNativeRouteProcessingListener(func() { called = true }))
	e.session.UnregisterAllNativeRouteProcessingListeners()
	waitClosed(t, e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew))
	assert.False(t, called)
}

func TestLegIndexJobCanceledBySetRoutes(t *testing.T) {
	e := newEnv(t)
	e.nav.legHold = make(chan struct{})
	e.session.Start(true)

	results := &recorder[bool]{}
	e.session.UpdateLegIndex(1, results.add)
	done := e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew)
	assert.Equal(t, []bool{false}, results.all())

	waitClosed(t, done)
	e.session.Wait()
	assert.Equal(t, []bool{false}, results.all())
}

func TestUpdateLegIndexReportsResult(t *testing.T) {
	e := newEnv(t)
	ch := make(chan bool, 1)
	e.session.UpdateLegIndex(1, func(ok bool) { ch <- ok })
	select {
	case ok := <-ch:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "leg index callback not invoked")
	}
}

func TestRoadObjectsReplay(t *testing.T) {
	e := newEnv(t)
	early := &recorder[[]*entity.UpcomingRoadObject]{}
	e.session.RegisterRoadObjectsOnRouteObserver(entity.NewRoadObjectsOnRouteObserver(early.add))
	require.Len(t, early.all(), 1)
	assert.NotNil(t, early.all()[0])
	assert.Empty(t, early.all()[0])

	obj := &entity.RoadObject{ID: "border", Type: entity.RoadObjectCountryBorderCrossing}
	e.nav.info = &entity.RouteInfo{RoadObjects: []*entity.UpcomingRoadObject{entity.NewUpcomingRoadObject(obj, 10)}}
	waitClosed(t, e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew))
	require.Len(t, early.all(), 2)

	late := &recorder[[]*entity.UpcomingRoadObject]{}
	e.session.RegisterRoadObjectsOnRouteObserver(entity.NewRoadObjectsOnRouteObserver(late.add))
	require.Len(t, late.all(), 1)
	assert.Equal(t, "border", late.all()[0][0].RoadObject.ID)
}

func TestLocationsForwardedToNavigator(t *testing.T) {
	e := newEnv(t)
	raws := &recorder[entity.Location]{}
	e.session.RegisterLocationObserver(entity.NewLocationObserver(raws.add, nil))
	e.session.Start(true)

	speed := 5.
	locs := []entity.Location{
		{Longitude: 116.30, Latitude: 39.98, Speed: &speed},
		{Longitude: 116.31, Latitude: 39.98},
	}
	e.engine.listener.OnLocations(locs)

	assert.Len(t, raws.all(), 2)
	require.Len(t, e.nav.fixes, 2)
	assert.Equal(t, 5.0, *e.nav.fixes[0].Speed)
	assert.Equal(t, 116.31, e.session.RawLocation().Longitude)

	e.nav.tick(status(entity.RouteStateInvalid))
	m := e.session.LocationMatcherResult()
	require.NotNil(t, m)
	require.NotNil(t, m.Raw)
	assert.Equal(t, 116.31, m.Raw.Longitude)
}

func TestProgressDerivedFromStatus(t *testing.T) {
	e := newEnv(t)
	e.session.Start(true)
	route := testRoute("a")
	waitClosed(t, e.session.SetRoutes([]*entity.Route{route}, 0, entity.RoutesUpdateReasonNew))

	st := status(entity.RouteStateTracking)
	st.Layer = layer(1)
	e.nav.tick(st)
	p := e.session.RouteProgress()
	require.NotNil(t, p)
	assert.Same(t, route, p.Route)
	assert.Equal(t, entity.RouteProgressTracking, p.State)
	assert.InDelta(t, 25, p.DistanceTraveled, 1e-9)
	assert.InDelta(t, 0.25, p.FractionTraveled, 1e-9)
	assert.Equal(t, 1, p.RemainingWaypoints)
	assert.Same(t, route.Legs[0], p.CurrentLegProgress.Leg)
	assert.Same(t, route.Legs[0].Steps[0], p.CurrentLegProgress.CurrentStep.Step)
	assert.InDelta(t, 25, p.CurrentLegProgress.CurrentStep.DistanceTraveled, 1e-9)
	assert.Same(t, route.Legs[0].Steps[1], p.CurrentLegProgress.UpcomingStep)
	assert.Equal(t, 1, *p.ZLevel)

	// INVALID状态不产生进度
	e.nav.tick(status(entity.RouteStateInvalid))
	assert.Nil(t, e.session.RouteProgress())
}

func TestStatusForReplacedRouteOnlyUpdatesMatching(t *testing.T) {
	e := newEnv(t)
	progress := &recorder[*entity.RouteProgress]{}
	offRoute := &recorder[bool]{}
	e.session.RegisterRouteProgressObserver(entity.NewRouteProgressObserver(progress.add))
	e.session.RegisterOffRouteObserver(entity.NewOffRouteObserver(offRoute.add))
	e.session.Start(true)

	waitClosed(t, e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew))
	b := testRoute("b")
	waitClosed(t, e.session.SetRoutes([]*entity.Route{b}, 0, entity.RoutesUpdateReasonReroute))

	// 引擎在路线a上计算、在b下发完成后才送达的状态
	st := status(entity.RouteStateOffRoute)
	st.PrimaryRouteID = "a#0"
	st.Layer = layer(2)
	e.nav.tick(st)
	assert.Nil(t, e.session.RouteProgress())
	assert.False(t, e.session.IsOffRoute())
	assert.Equal(t, 2, *e.session.ZLevel())
	assert.NotNil(t, e.session.LocationMatcherResult())
	assert.Empty(t, progress.all())
	assert.Equal(t, []bool{false}, offRoute.all())

	st = status(entity.RouteStateTracking)
	st.PrimaryRouteID = b.ID()
	e.nav.tick(st)
	p := e.session.RouteProgress()
	require.NotNil(t, p)
	assert.Same(t, b, p.Route)
}

func TestRefreshKeepsProgressAndOffRoute(t *testing.T) {
	e := newEnv(t)
	obj := &entity.RoadObject{ID: "incident-1", Type: entity.RoadObjectIncident}
	e.nav.info = &entity.RouteInfo{RoadObjects: []*entity.UpcomingRoadObject{entity.NewUpcomingRoadObject(obj, 50)}}
	offRoute := &recorder[bool]{}
	objects := &recorder[int]{}
	e.session.RegisterOffRouteObserver(entity.NewOffRouteObserver(offRoute.add))
	e.session.RegisterRoadObjectsOnRouteObserver(entity.NewRoadObjectsOnRouteObserver(func(objs []*entity.UpcomingRoadObject) {
		objects.add(len(objs))
	}))
	e.session.Start(true)

	waitClosed(t, e.session.SetRoutes([]*entity.Route{testRoute("a")}, 0, entity.RoutesUpdateReasonNew))
	e.nav.tick(status(entity.RouteStateOffRoute))
	require.NotNil(t, e.session.RouteProgress())

	refreshed := testRoute("a")
	refreshed.Duration = 20
	done := e.session.SetRoutes([]*entity.Route{refreshed}, 0, entity.RoutesUpdateReasonRefresh)
	assert.NotNil(t, e.session.RouteProgress())
	assert.True(t, e.session.IsOffRoute())
	assert.Len(t, e.session.RoadObjects(), 1)
	waitClosed(t, done)

	e.nav.tick(status(entity.RouteStateOffRoute))
	assert.Same(t, refreshed, e.session.RouteProgress().Route)
	assert.Equal(t, []bool{false, true}, offRoute.all())
	assert.Equal(t, []int{0, 1}, objects.all())
}
