package entity

import "errors"

var (
	ErrNoRouteOptions      = errors.New("route options are missing")
	ErrInvalidRouteOptions = errors.New("invalid route options")
	ErrNoRouteProgress     = errors.New("route progress is missing")
	ErrNoLocation          = errors.New("location matcher result is missing")
	ErrNoWaypointsLeft     = errors.New("no waypoints left on the route")
	ErrRefreshIneligible   = errors.New("route is not refreshable")
	ErrNoRoutesInResponse  = errors.New("no routes in response")
	ErrRequestCanceled     = errors.New("request canceled")
	ErrRouterShutdown      = errors.New("router is shut down")
)
