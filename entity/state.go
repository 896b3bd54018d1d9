package entity

import (
	"fmt"
	"strings"
)

// 行程会话状态
type TripSessionState int

const (
	TripSessionStopped TripSessionState = iota
	TripSessionStarted
)

func (s TripSessionState) String() string {
	if s == TripSessionStarted {
		return "STARTED"
	}
	return "STOPPED"
}

// 重算状态类型
type RerouteStateType int

const (
	RerouteIdle RerouteStateType = iota
	RerouteFetchingRoute
	RerouteRouteFetched
	RerouteFailed
	RerouteInterrupted
)

func (t RerouteStateType) String() string {
	switch t {
	case RerouteIdle:
		return "Idle"
	case RerouteFetchingRoute:
		return "FetchingRoute"
	case RerouteRouteFetched:
		return "RouteFetched"
	case RerouteFailed:
		return "Failed"
	case RerouteInterrupted:
		return "Interrupted"
	}
	return fmt.Sprintf("RerouteStateType(%d)", int(t))
}

// 重算状态
// Origin仅在RouteFetched时有效；Message与Failures仅在Failed时有效
type RerouteState struct {
	Type     RerouteStateType
	Origin   RouterOrigin
	Message  string
	Err      error
	Failures []RouterFailure
}

func (s RerouteState) String() string {
	switch s.Type {
	case RerouteRouteFetched:
		return fmt.Sprintf("RouteFetched(%s)", s.Origin)
	case RerouteFailed:
		reasons := make([]string, 0, len(s.Failures))
		for _, f := range s.Failures {
			reasons = append(reasons, f.Message)
		}
		return fmt.Sprintf("Failed(%s: %s)", s.Message, strings.Join(reasons, "; "))
	}
	return s.Type.String()
}

var (
	RerouteStateIdle          = RerouteState{Type: RerouteIdle}
	RerouteStateFetchingRoute = RerouteState{Type: RerouteFetchingRoute}
	RerouteStateInterrupted   = RerouteState{Type: RerouteInterrupted}
)
