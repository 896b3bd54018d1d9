package routeoptions_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tripcore/entity"
	"github.com/tsinghua-fib-lab/tripcore/entity/routeoptions"
)

func ptr(v float64) *float64 { return &v }

func matcherAt(p orb.Point, speed, bearing *float64) *entity.LocationMatcherResult {
	return &entity.LocationMatcherResult{
		Enhanced: entity.Location{Longitude: p.Lon(), Latitude: p.Lat(), Speed: speed, Bearing: bearing},
	}
}

func TestAvoidManeuverRadius(t *testing.T) {
	cases := []struct {
		speed, seconds float64
		want           *float64
	}{
		{200, 1, ptr(200)},
		{0, 1, nil},
		{1000, 1, ptr(1000)},
		{5000, 1, ptr(1000)},
		{200, 0, nil},
	}
	for _, c := range cases {
		got := routeoptions.AvoidManeuverRadius(entity.ProfileDrivingTraffic, c.speed, c.seconds)
		assert.Equal(t, c.want, got, "speed=%v seconds=%v", c.speed, c.seconds)
	}
	assert.Equal(t, ptr(200), routeoptions.AvoidManeuverRadius(entity.ProfileDriving, 200, 1))
	assert.Nil(t, routeoptions.AvoidManeuverRadius(entity.ProfileWalking, 200, 1))
	assert.Nil(t, routeoptions.AvoidManeuverRadius(entity.ProfileCycling, 200, 1))
}

func TestUpdateMissingInputs(t *testing.T) {
	u := routeoptions.New(1)
	opts := entity.DefaultNavigationOptions(orb.Point{0, 0}, orb.Point{1, 1})
	progress := &entity.RouteProgress{}
	matcher := matcherAt(orb.Point{0.5, 0.5}, nil, nil)

	assert.ErrorIs(t, u.Update(nil, progress, matcher).Err, entity.ErrNoRouteOptions)
	assert.ErrorIs(t, u.Update(opts, nil, matcher).Err, entity.ErrNoRouteProgress)
	assert.ErrorIs(t, u.Update(opts, progress, nil).Err, entity.ErrNoLocation)
}

func TestUpdateReplacesOriginAndKeepsRemainingWaypoints(t *testing.T) {
	u := routeoptions.New(2)
	opts := entity.DefaultNavigationOptions(orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{2, 2}, orb.Point{3, 3})
	opts.WaypointNames = []string{"A", "B", "C", "D"}
	opts.Bearings = []*entity.Bearing{nil, {Angle: 10, Tolerance: 20}, nil, {Angle: 30, Tolerance: 20}}

	res := u.Update(opts, &entity.RouteProgress{LegIndex: 1}, matcherAt(orb.Point{1.5, 1.5}, ptr(15), ptr(45)))
	require.NoError(t, res.Err)
	out := res.Options

	assert.Equal(t, []orb.Point{{1.5, 1.5}, {2, 2}, {3, 3}}, out.Coordinates)
	assert.Equal(t, []string{"", "C", "D"}, out.WaypointNames)
	require.Len(t, out.Bearings, 3)
	assert.Equal(t, &entity.Bearing{Angle: 45, Tolerance: routeoptions.OriginBearingTolerance}, out.Bearings[0])
	assert.Nil(t, out.Bearings[1])
	assert.Equal(t, 30.0, out.Bearings[2].Angle)
	assert.Equal(t, ptr(30), out.AvoidManeuverRadius)

	// 原参数不变
	assert.Len(t, opts.Coordinates, 4)
	assert.Nil(t, opts.AvoidManeuverRadius)
}

func TestUpdateWithSilentWaypoints(t *testing.T) {
	u := routeoptions.New(0)
	opts := entity.DefaultNavigationOptions(orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{2, 2}, orb.Point{3, 3})
	opts.WaypointIndices = []int{0, 2, 3}
	opts.WaypointNames = []string{"A", "C", "D"}

	res := u.Update(opts, &entity.RouteProgress{LegIndex: 0}, matcherAt(orb.Point{0.5, 0.5}, ptr(10), nil))
	require.NoError(t, res.Err)
	assert.Equal(t, []orb.Point{{0.5, 0.5}, {1, 1}, {2, 2}, {3, 3}}, res.Options.Coordinates)
	assert.Equal(t, []int{0, 2, 3}, res.Options.WaypointIndices)
	assert.Equal(t, []string{"", "C", "D"}, res.Options.WaypointNames)
	assert.Nil(t, res.Options.Bearings)
	assert.Nil(t, res.Options.AvoidManeuverRadius)

	res = u.Update(opts, &entity.RouteProgress{LegIndex: 1}, matcherAt(orb.Point{2.5, 2.5}, nil, nil))
	require.NoError(t, res.Err)
	assert.Equal(t, []orb.Point{{2.5, 2.5}, {3, 3}}, res.Options.Coordinates)
	assert.Equal(t, []int{0, 1}, res.Options.WaypointIndices)
}

func TestUpdateNoWaypointsLeft(t *testing.T) {
	u := routeoptions.New(1)
	opts := entity.DefaultNavigationOptions(orb.Point{0, 0}, orb.Point{1, 1})
	res := u.Update(opts, &entity.RouteProgress{LegIndex: 1}, matcherAt(orb.Point{1, 1}, nil, nil))
	assert.ErrorIs(t, res.Err, entity.ErrNoWaypointsLeft)
	assert.Nil(t, res.Options)
}

func TestUpdateNonDrivingProfileHasNoAvoidRadius(t *testing.T) {
	u := routeoptions.New(5)
	opts := entity.DefaultNavigationOptions(orb.Point{0, 0}, orb.Point{1, 1})
	opts.Profile = entity.ProfileWalking
	res := u.Update(opts, &entity.RouteProgress{}, matcherAt(orb.Point{0.1, 0.1}, ptr(3), nil))
	require.NoError(t, res.Err)
	assert.Nil(t, res.Options.AvoidManeuverRadius)
}
