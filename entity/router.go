package entity

import "fmt"

// 路线来源
type RouterOrigin string

const (
	RouterOriginOnline  RouterOrigin = "ONLINE"
	RouterOriginOffline RouterOrigin = "OFFLINE"
)

// 路线请求结果类型
type RouterOutcome int

const (
	RouterOutcomeReady RouterOutcome = iota
	RouterOutcomeFailure
	RouterOutcomeCanceled
)

func (o RouterOutcome) String() string {
	switch o {
	case RouterOutcomeReady:
		return "ready"
	case RouterOutcomeFailure:
		return "failure"
	case RouterOutcomeCanceled:
		return "canceled"
	}
	return fmt.Sprintf("RouterOutcome(%d)", int(o))
}

// 单个失败原因
type RouterFailure struct {
	URL     string // 已脱敏的请求地址
	Message string
	Code    int
	Err     error
}

// 路线请求结果，Outcome决定其余字段的含义
type RouterResult struct {
	Outcome  RouterOutcome
	Routes   []*Route        // Ready
	Origin   RouterOrigin    // Ready / Canceled
	Failures []RouterFailure // Failure
	Options  *RouteOptions
}

// Ready 构造成功结果
func Ready(routes []*Route, origin RouterOrigin) RouterResult {
	return RouterResult{Outcome: RouterOutcomeReady, Routes: routes, Origin: origin}
}

// Failed 构造失败结果
func Failed(options *RouteOptions, failures ...RouterFailure) RouterResult {
	return RouterResult{Outcome: RouterOutcomeFailure, Options: options, Failures: failures}
}

// Canceled 构造取消结果
func Canceled(options *RouteOptions, origin RouterOrigin) RouterResult {
	return RouterResult{Outcome: RouterOutcomeCanceled, Options: options, Origin: origin}
}

// 路线请求回调，每个请求恰好调用一次
type RouterCallback func(res RouterResult)

// 刷新结果，Err为nil时Route有效；取消时Err满足errors.Is(err, ErrRequestCanceled)
type RouteRefreshResult struct {
	Route *Route
	Err   error
}

// 刷新回调，每个请求恰好调用一次
type RouteRefreshCallback func(res RouteRefreshResult)
